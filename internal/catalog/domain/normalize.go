package domain

import (
	"math"
	"strings"
	"time"
)

// RawItem is one row as emitted by a format detector, before normalization.
// It is never persisted.
type RawItem struct {
	Name     string
	Brand    *string
	Quantity *float64
	Unit     *string
}

// CanonicalItem is a RawItem after normalization: whitespace collapsed,
// identity key and availability derived. One per unique NameKey per batch.
type CanonicalItem struct {
	Name         string
	NameKey      string
	Brand        *string
	Quantity     *float64
	Unit         *string
	Availability Availability
	LastSeenAt   time.Time
}

// NameKey returns the normalized identity key for a product name: trimmed,
// inner whitespace collapsed to single spaces, lowercased.
func NameKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// CollapseWhitespace trims and collapses runs of whitespace without changing
// case. Used for display names and brands.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// AvailabilityFromQty derives availability from a quantity. Availability is
// always a pure function of quantity and is never stored independently.
func AvailabilityFromQty(qty *float64) Availability {
	if qty == nil || math.IsNaN(*qty) || math.IsInf(*qty, 0) {
		return AvailabilityUnknown
	}
	switch {
	case *qty > 0:
		return AvailabilityInStock
	case *qty == 0:
		return AvailabilityOutOfStock
	default:
		return AvailabilityNegative
	}
}

// Canonicalize normalizes a batch of raw items and deduplicates it by name
// key. On duplicate keys within a batch the last occurrence wins; the order
// of first appearance is preserved. Items with empty names are dropped.
func Canonicalize(items []RawItem, seenAt time.Time) []CanonicalItem {
	order := make([]string, 0, len(items))
	byKey := make(map[string]CanonicalItem, len(items))

	for _, raw := range items {
		name := CollapseWhitespace(raw.Name)
		if name == "" {
			continue
		}
		key := NameKey(name)

		var brand *string
		if raw.Brand != nil {
			if b := CollapseWhitespace(*raw.Brand); b != "" {
				brand = &b
			}
		}

		item := CanonicalItem{
			Name:         name,
			NameKey:      key,
			Brand:        brand,
			Quantity:     raw.Quantity,
			Unit:         raw.Unit,
			Availability: AvailabilityFromQty(raw.Quantity),
			LastSeenAt:   seenAt,
		}

		if _, exists := byKey[key]; !exists {
			order = append(order, key)
		}
		byKey[key] = item
	}

	out := make([]CanonicalItem, 0, len(order))
	for _, key := range order {
		out = append(out, byKey[key])
	}
	return out
}
