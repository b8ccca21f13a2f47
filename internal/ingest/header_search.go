package ingest

import (
	"fmt"
	"strings"

	"github.com/averta/stocksync/internal/catalog/domain"
)

const (
	headerScanRows  = 120 // rows inspected for a header
	headerGroupRows = 2   // multi-line headers span at most this many rows
	qtySampleRows   = 60  // rows sampled below a candidate qty column
	emptyRunGuard   = 8   // consecutive empty rows that end the walk
)

var itemNameLabels = []string{
	"item name",
	"name of item",
	"name of the item",
	"particulars",
	"stock item",
	"item description",
	"description of goods",
}

var unitLabels = []string{"unit", "units", "uom"}

// HeaderSearchDetector scans the top of the sheet for a header row (or a
// two-row header group) carrying an item-name label and a closing-quantity
// label, scores the candidate column placements and walks the table below
// the winner.
type HeaderSearchDetector struct{}

func NewHeaderSearchDetector() *HeaderSearchDetector {
	return &HeaderSearchDetector{}
}

func (d *HeaderSearchDetector) Name() string { return "header-search" }

type headerCandidate struct {
	headerRow int // last row of the header group; data starts below it
	nameCol   int
	qtyCol    int
	unitCol   int // -1 when absent
	score     int
}

func normalizeLabel(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

func matchesAny(label string, wanted []string) bool {
	for _, w := range wanted {
		if label == w || strings.Contains(label, w) {
			return true
		}
	}
	return false
}

// scoreQtyLabel weighs a quantity-column label. Closing/balance wording is
// rewarded, opening/inward/outward wording penalized so that the closing
// stock column beats the movement columns that share header text.
func scoreQtyLabel(label string) (int, bool) {
	if !strings.Contains(label, "closing") &&
		!strings.Contains(label, "balance") &&
		!strings.Contains(label, "qty") &&
		!strings.Contains(label, "quantity") &&
		!strings.Contains(label, "stock") {
		return 0, false
	}
	score := 0
	if strings.Contains(label, "closing") || strings.Contains(label, "balance") {
		score += 3
	}
	for _, bad := range []string{"opening", "inward", "outward"} {
		if strings.Contains(label, bad) {
			score -= 2
		}
	}
	return score, true
}

func (d *HeaderSearchDetector) Detect(sheet *Sheet) ([]domain.RawItem, error) {
	best, found := d.findHeader(sheet)
	if !found {
		return nil, fmt.Errorf("no header row with item name and closing quantity labels in first %d rows", headerScanRows)
	}
	return d.walk(sheet, best), nil
}

// findHeader scores every (name column, qty column) placement discovered in
// the scan window. Ties break to the earliest-discovered candidate, which is
// load-bearing on ambiguous exports: a strictly greater score is required to
// displace the incumbent.
func (d *HeaderSearchDetector) findHeader(sheet *Sheet) (headerCandidate, bool) {
	var best headerCandidate
	found := false

	limit := len(sheet.Rows)
	if limit > headerScanRows {
		limit = headerScanRows
	}

	for row := 0; row < limit; row++ {
		nameCol, unitCol := -1, -1
		type qtyCol struct {
			col, labelScore, lastRow int
		}
		var qtyCols []qtyCol

		// A header may span two physical rows; inspect the group as one.
		for gr := row; gr < row+headerGroupRows && gr < len(sheet.Rows); gr++ {
			for col := range sheet.Rows[gr] {
				label := normalizeLabel(sheet.Rows[gr][col].Text)
				if label == "" {
					continue
				}
				if nameCol < 0 && matchesAny(label, itemNameLabels) {
					nameCol = col
					continue
				}
				if unitCol < 0 && matchesAny(label, unitLabels) {
					unitCol = col
					continue
				}
				if s, ok := scoreQtyLabel(label); ok {
					qtyCols = append(qtyCols, qtyCol{col: col, labelScore: s, lastRow: gr})
				}
			}
		}
		if nameCol < 0 || len(qtyCols) == 0 {
			continue
		}

		for _, qc := range qtyCols {
			if qc.col == nameCol {
				continue
			}
			cand := headerCandidate{
				headerRow: qc.lastRow,
				nameCol:   nameCol,
				qtyCol:    qc.col,
				unitCol:   unitCol,
				score:     qc.labelScore + d.numericSupport(sheet, qc.lastRow+1, qc.col),
			}
			if cand.unitCol >= 0 {
				cand.score++
			}
			if !found || cand.score > best.score {
				best = cand
				found = true
			}
		}
	}
	return best, found
}

// numericSupport counts how many of the rows below the header parse as
// quantities in the candidate column. On real exports this dwarfs the label
// weights, anchoring the choice to the column that actually holds numbers.
func (d *HeaderSearchDetector) numericSupport(sheet *Sheet, startRow, col int) int {
	n := 0
	for row := startRow; row < startRow+qtySampleRows && row < len(sheet.Rows); row++ {
		text := sheet.CellAt(row, col).Text
		if parseNumber(text) != nil {
			n++
			continue
		}
		if qty, _ := SplitQtyUnit(text); qty != nil {
			n++
		}
	}
	return n
}

func (d *HeaderSearchDetector) walk(sheet *Sheet, h headerCandidate) []domain.RawItem {
	var items []domain.RawItem
	var currentBrand *string
	emptyRun := 0

	for row := h.headerRow + 1; row < len(sheet.Rows); row++ {
		if sheet.RowEmpty(row) {
			emptyRun++
			if emptyRun > emptyRunGuard {
				break
			}
			continue
		}
		emptyRun = 0

		name := strings.TrimSpace(sheet.CellAt(row, h.nameCol).Text)
		if isTotalMarker(name) {
			break
		}
		if name == "" {
			continue
		}

		qty, unit := d.cellQty(sheet, row, h)

		if qty == nil && brandShaped(name) {
			// One-row lookahead: a brand heading must be followed by a
			// non-brand row, otherwise it is a stray label.
			if next, ok := d.nextNonEmptyName(sheet, row+1, h.nameCol); ok && !d.rowBrandShaped(sheet, next, h) {
				b := domain.CollapseWhitespace(name)
				currentBrand = &b
			}
			continue
		}

		items = append(items, domain.RawItem{
			Name:     name,
			Brand:    currentBrand,
			Quantity: qty,
			Unit:     unit,
		})
	}
	return items
}

func (d *HeaderSearchDetector) cellQty(sheet *Sheet, row int, h headerCandidate) (*float64, *string) {
	text := sheet.CellAt(row, h.qtyCol).Text
	qty := parseNumber(text)
	var unit *string
	if qty == nil {
		qty, unit = SplitQtyUnit(text)
	}
	if h.unitCol >= 0 {
		if u := strings.TrimSpace(sheet.CellAt(row, h.unitCol).Text); u != "" {
			unit = &u
		}
	}
	return qty, unit
}

func (d *HeaderSearchDetector) nextNonEmptyName(sheet *Sheet, fromRow, nameCol int) (int, bool) {
	for row := fromRow; row < len(sheet.Rows); row++ {
		if sheet.RowEmpty(row) {
			continue
		}
		if strings.TrimSpace(sheet.CellAt(row, nameCol).Text) != "" {
			return row, true
		}
	}
	return 0, false
}

func (d *HeaderSearchDetector) rowBrandShaped(sheet *Sheet, row int, h headerCandidate) bool {
	name := sheet.CellAt(row, h.nameCol).Text
	qty, _ := d.cellQty(sheet, row, h)
	return qty == nil && brandShaped(name)
}
