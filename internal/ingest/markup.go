package ingest

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/averta/stocksync/internal/catalog/domain"
)

// markupNode is a generic element tree; the markup export's shape is not
// stable enough across versions for typed structs.
type markupNode struct {
	XMLName  xml.Name
	Attrs    []xml.Attr   `xml:",any,attr"`
	Children []markupNode `xml:",any"`
	Text     string       `xml:",chardata"`
}

func (n *markupNode) local() string {
	return strings.ToUpper(n.XMLName.Local)
}

// flatText returns the concatenated character data of a subtree, trimmed.
func (n *markupNode) flatText() string {
	var b strings.Builder
	n.collectText(&b)
	return strings.TrimSpace(b.String())
}

func (n *markupNode) collectText(b *strings.Builder) {
	b.WriteString(n.Text)
	for i := range n.Children {
		n.Children[i].collectText(b)
	}
}

// findDescendant returns the first descendant whose element name contains
// any of the given fragments.
func (n *markupNode) findDescendant(fragments ...string) *markupNode {
	for i := range n.Children {
		child := &n.Children[i]
		name := child.local()
		for _, f := range fragments {
			if strings.Contains(name, f) {
				return child
			}
		}
		if found := child.findDescendant(fragments...); found != nil {
			return found
		}
	}
	return nil
}

type markupEntry struct {
	name string
	qty  *float64
	unit *string
}

// ParseMarkupItems walks the hierarchical markup export: a display-name node
// immediately followed by a stock-info sibling yields one entry. Brand-shape
// plus one-entry lookahead then splits brand headings from product entries.
func ParseMarkupItems(data []byte) ([]domain.RawItem, error) {
	var root markupNode
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse markup export: %w", err)
	}

	entries := collectEntries(&root)
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: markup export: no display-name/stock-info pairs found", domain.ErrDetectionFailed)
	}

	var items []domain.RawItem
	var currentBrand *string
	for i, e := range entries {
		if brandShaped(e.name) {
			// Same lookahead rule as the tabular walks: a heading must be
			// followed by a non-brand entry to count as a brand bucket.
			if i+1 < len(entries) && !brandShaped(entries[i+1].name) {
				b := domain.CollapseWhitespace(e.name)
				currentBrand = &b
				continue
			}
			continue
		}
		items = append(items, domain.RawItem{
			Name:     e.name,
			Brand:    currentBrand,
			Quantity: e.qty,
			Unit:     e.unit,
		})
	}
	return items, nil
}

// collectEntries walks sibling lists pairwise through the whole tree.
func collectEntries(n *markupNode) []markupEntry {
	var entries []markupEntry
	children := n.Children
	for i := 0; i < len(children); i++ {
		child := &children[i]
		if isNameNode(child) {
			name := displayName(child)
			if name == "" {
				continue
			}
			entry := markupEntry{name: name}
			if i+1 < len(children) && isStockInfoNode(&children[i+1]) {
				entry.qty, entry.unit = stockInfo(&children[i+1])
				i++
			}
			entries = append(entries, entry)
			continue
		}
		entries = append(entries, collectEntries(child)...)
	}
	return entries
}

func isNameNode(n *markupNode) bool {
	name := n.local()
	return strings.Contains(name, "DISPNAME") || strings.Contains(name, "ACCNAME")
}

func isStockInfoNode(n *markupNode) bool {
	name := n.local()
	return strings.Contains(name, "STKINFO") || strings.Contains(name, "STOCKINFO")
}

func displayName(n *markupNode) string {
	if strings.Contains(n.local(), "DISPNAME") {
		return n.flatText()
	}
	if inner := n.findDescendant("DISPNAME"); inner != nil {
		return inner.flatText()
	}
	return n.flatText()
}

// stockInfo extracts (quantity, unit) from a stock-info subtree. The closing
// quantity arrives as a combined "<number> <unit>" string.
func stockInfo(n *markupNode) (*float64, *string) {
	if cl := n.findDescendant("CLQTY", "CLOSINGBAL", "CLBAL"); cl != nil {
		return SplitQtyUnit(cl.flatText())
	}
	return SplitQtyUnit(n.flatText())
}
