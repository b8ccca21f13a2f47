package ingest

import (
	"fmt"
	"math"
	"strings"

	"github.com/averta/stocksync/internal/catalog/domain"
	"github.com/averta/stocksync/pkg/logger"
)

const (
	fixedColName  = 0
	fixedColQty   = 1
	fixedColRate  = 2
	fixedColValue = 3

	// fixedStartOffset is where the older export begins its data region,
	// below the fixed report banner.
	fixedStartOffset = 6

	// brandSumTolerance absorbs float drift when checking a candidate's
	// subtotal against the sum of its rows.
	brandSumTolerance = 1e-6
)

// FixedLayoutDetector handles the older export with a canonical four-column
// shape (name, quantity, rate, value). Brand headings are bold rows that are
// numerically complete; when the source carries no emphasis information a
// candidate heading is only accepted if the quantities of the rows under it
// sum to the heading's own quantity, the export's subtotal convention acting
// as a checksum.
type FixedLayoutDetector struct{}

func NewFixedLayoutDetector() *FixedLayoutDetector {
	return &FixedLayoutDetector{}
}

func (d *FixedLayoutDetector) Name() string { return "fixed-layout" }

func (d *FixedLayoutDetector) Detect(sheet *Sheet) ([]domain.RawItem, error) {
	start, ok := d.findDataStart(sheet)
	if !ok {
		return nil, fmt.Errorf("no numerically complete data row at or below offset %d", fixedStartOffset)
	}
	if sheet.HasBoldInfo {
		return d.walkBold(sheet, start), nil
	}
	return d.walkValidated(sheet, start), nil
}

func (d *FixedLayoutDetector) findDataStart(sheet *Sheet) (int, bool) {
	for row := fixedStartOffset; row < len(sheet.Rows); row++ {
		if !d.numericComplete(sheet, row) {
			continue
		}
		if !sheet.HasBoldInfo || sheet.CellAt(row, fixedColName).Bold {
			return row, true
		}
	}
	return 0, false
}

// numericComplete reports whether quantity, rate and value all parse.
func (d *FixedLayoutDetector) numericComplete(sheet *Sheet, row int) bool {
	for _, col := range []int{fixedColQty, fixedColRate, fixedColValue} {
		text := sheet.CellAt(row, col).Text
		if parseNumber(text) != nil {
			continue
		}
		if qty, _ := SplitQtyUnit(text); qty == nil {
			return false
		}
	}
	return true
}

func (d *FixedLayoutDetector) rowQty(sheet *Sheet, row int) (*float64, *string) {
	text := sheet.CellAt(row, fixedColQty).Text
	if qty := parseNumber(text); qty != nil {
		return qty, nil
	}
	return SplitQtyUnit(text)
}

func (d *FixedLayoutDetector) walkBold(sheet *Sheet, start int) []domain.RawItem {
	var items []domain.RawItem
	var currentBrand *string
	emptyRun := 0

	for row := start; row < len(sheet.Rows); row++ {
		if sheet.RowEmpty(row) {
			emptyRun++
			if emptyRun > emptyRunGuard {
				break
			}
			continue
		}
		emptyRun = 0

		name := strings.TrimSpace(sheet.CellAt(row, fixedColName).Text)
		if isTotalMarker(name) {
			break
		}
		if name == "" {
			continue
		}

		if sheet.CellAt(row, fixedColName).Bold && d.numericComplete(sheet, row) {
			b := domain.CollapseWhitespace(name)
			currentBrand = &b
			continue
		}

		qty, unit := d.rowQty(sheet, row)
		items = append(items, domain.RawItem{
			Name:     name,
			Brand:    currentBrand,
			Quantity: qty,
			Unit:     unit,
		})
	}
	return items
}

// walkValidated is the no-emphasis fallback. Candidate headings (numerically
// complete, brand-shaped name) are checked against the subtotal convention;
// a failed candidate is skipped as an ordinary row and clears the current
// brand so its rows are emitted unbranded rather than mis-attributed.
func (d *FixedLayoutDetector) walkValidated(sheet *Sheet, start int) []domain.RawItem {
	end := d.regionEnd(sheet, start)
	candidates := d.findCandidates(sheet, start, end)
	valid := d.validateCandidates(sheet, candidates, end)

	var items []domain.RawItem
	var currentBrand *string

	for row := start; row < end; row++ {
		if sheet.RowEmpty(row) {
			continue
		}
		name := strings.TrimSpace(sheet.CellAt(row, fixedColName).Text)
		if name == "" {
			continue
		}

		if idx, isCandidate := candidates[row]; isCandidate {
			if valid[idx] {
				b := domain.CollapseWhitespace(name)
				currentBrand = &b
			} else {
				currentBrand = nil
				logger.Logger.Debug().
					Str("label", name).
					Int("row", row).
					Msg("Brand candidate failed subtotal check, rows left unbranded")
			}
			continue
		}

		qty, unit := d.rowQty(sheet, row)
		items = append(items, domain.RawItem{
			Name:     name,
			Brand:    currentBrand,
			Quantity: qty,
			Unit:     unit,
		})
	}
	return items
}

func (d *FixedLayoutDetector) regionEnd(sheet *Sheet, start int) int {
	emptyRun := 0
	for row := start; row < len(sheet.Rows); row++ {
		if sheet.RowEmpty(row) {
			emptyRun++
			if emptyRun > emptyRunGuard {
				return row - emptyRun + 1
			}
			continue
		}
		emptyRun = 0
		if isTotalMarker(sheet.CellAt(row, fixedColName).Text) {
			return row
		}
	}
	return len(sheet.Rows)
}

// findCandidates maps row index to candidate ordinal for every row that
// could be a brand heading.
func (d *FixedLayoutDetector) findCandidates(sheet *Sheet, start, end int) map[int]int {
	candidates := make(map[int]int)
	ordinal := 0
	for row := start; row < end; row++ {
		name := sheet.CellAt(row, fixedColName).Text
		if d.numericComplete(sheet, row) && brandShaped(name) {
			candidates[row] = ordinal
			ordinal++
		}
	}
	return candidates
}

// validateCandidates sums the quantities of the plain rows between each
// candidate and the next and accepts the candidate only when the sum equals
// its own quantity.
func (d *FixedLayoutDetector) validateCandidates(sheet *Sheet, candidates map[int]int, end int) map[int]bool {
	rows := make([]int, 0, len(candidates))
	for row := range candidates {
		rows = append(rows, row)
	}
	// candidate rows in ascending order
	for i := 0; i < len(rows); i++ {
		for j := i + 1; j < len(rows); j++ {
			if rows[j] < rows[i] {
				rows[i], rows[j] = rows[j], rows[i]
			}
		}
	}

	valid := make(map[int]bool, len(rows))
	for i, row := range rows {
		next := end
		if i+1 < len(rows) {
			next = rows[i+1]
		}
		own, _ := d.rowQty(sheet, row)
		if own == nil {
			continue
		}
		sum := 0.0
		for r := row + 1; r < next; r++ {
			if _, isCandidate := candidates[r]; isCandidate {
				continue
			}
			if qty, _ := d.rowQty(sheet, r); qty != nil {
				sum += *qty
			}
		}
		valid[candidates[row]] = math.Abs(sum-*own) <= brandSumTolerance
	}
	return valid
}
