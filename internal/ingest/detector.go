package ingest

import (
	"fmt"

	"github.com/averta/stocksync/internal/catalog/domain"
	"github.com/averta/stocksync/pkg/logger"
)

// TableDetector locates the item table inside a tabular sheet and emits raw
// items. Implementations are independent heuristics for different export
// layouts.
type TableDetector interface {
	Name() string
	Detect(sheet *Sheet) ([]domain.RawItem, error)
}

// Chain evaluates detectors in order and short-circuits on the first that
// yields at least one item. Exhausting the chain is a detection failure.
type Chain struct {
	detectors []TableDetector
}

// NewTabularChain returns the detector chain for spreadsheet exports. Order
// matters: the header search handles the common layouts, the fixed-layout
// detector the older 4-column export.
func NewTabularChain() *Chain {
	return &Chain{detectors: []TableDetector{
		NewHeaderSearchDetector(),
		NewFixedLayoutDetector(),
	}}
}

// Detect runs the chain against a sheet. source names the input for error
// reporting.
func (c *Chain) Detect(sheet *Sheet, source string) ([]domain.RawItem, error) {
	for _, d := range c.detectors {
		items, err := d.Detect(sheet)
		if err != nil {
			logger.Logger.Debug().
				Str("detector", d.Name()).
				Str("source", source).
				Err(err).
				Msg("Detector rejected sheet, trying next")
			continue
		}
		if len(items) == 0 {
			continue
		}
		logger.Logger.Info().
			Str("detector", d.Name()).
			Str("source", source).
			Int("items", len(items)).
			Msg("Item table detected")
		return items, nil
	}
	return nil, fmt.Errorf("%w: %s: no detector found an item name and closing quantity table", domain.ErrDetectionFailed, source)
}
