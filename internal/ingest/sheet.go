package ingest

import (
	"regexp"
	"strconv"
	"strings"
)

// Cell is one grid cell with its formatted text and emphasis flag.
type Cell struct {
	Text string
	Bold bool
}

// Sheet is the neutral grid every tabular detector works on. HasBoldInfo is
// false when the source carried no usable style information, which switches
// the fixed-layout detector to its checksum fallback.
type Sheet struct {
	Rows        [][]Cell
	HasBoldInfo bool
}

// CellAt returns the cell at (row, col), tolerating ragged rows.
func (s *Sheet) CellAt(row, col int) Cell {
	if row < 0 || row >= len(s.Rows) {
		return Cell{}
	}
	r := s.Rows[row]
	if col < 0 || col >= len(r) {
		return Cell{}
	}
	return r[col]
}

// RowEmpty reports whether every cell in a row is blank.
func (s *Sheet) RowEmpty(row int) bool {
	if row < 0 || row >= len(s.Rows) {
		return true
	}
	for _, c := range s.Rows[row] {
		if strings.TrimSpace(c.Text) != "" {
			return false
		}
	}
	return true
}

// unitMarkers are measure abbreviations that disqualify a cell from being a
// brand label and are recognized as unit suffixes of combined quantity
// strings.
var unitMarkers = []string{
	"nos", "no", "pcs", "pc", "kg", "kgs", "gm", "gms", "g", "mg",
	"ltr", "ltrs", "lt", "ml", "mtr", "mtrs", "mt", "cm", "mm", "ft", "inch",
	"box", "boxes", "set", "sets", "doz", "dozen", "pair", "pairs",
	"bag", "bags", "roll", "rolls", "pkt", "pkts", "bdl", "bdls", "sqft", "sqm",
	"ton", "tons", "unit", "units",
}

func isUnitMarker(word string) bool {
	w := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(word), "."))
	for _, m := range unitMarkers {
		if w == m {
			return true
		}
	}
	return false
}

const maxBrandLen = 40

// brandShaped reports whether a label looks like a brand-bucket heading:
// short, digit-free and free of unit markers.
func brandShaped(text string) bool {
	t := strings.TrimSpace(text)
	if t == "" || len(t) > maxBrandLen {
		return false
	}
	if strings.ContainsAny(t, "0123456789") {
		return false
	}
	for _, w := range strings.Fields(t) {
		if isUnitMarker(w) {
			return false
		}
	}
	return !isTotalMarker(t)
}

// isTotalMarker reports whether a label is a grand-total terminator row.
func isTotalMarker(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	return t == "grand total" || t == "total" || strings.HasPrefix(t, "grand total")
}

var numberPattern = regexp.MustCompile(`^\(?-?[\d,]+(?:\.\d+)?\)?$`)

// parseNumber parses a spreadsheet-formatted number ("1,234.50", "(12)" for
// negatives). Returns nil when the text is not numeric.
func parseNumber(text string) *float64 {
	t := strings.TrimSpace(text)
	if t == "" || !numberPattern.MatchString(t) {
		return nil
	}
	neg := false
	if strings.HasPrefix(t, "(") && strings.HasSuffix(t, ")") {
		neg = true
		t = t[1 : len(t)-1]
	}
	t = strings.ReplaceAll(t, ",", "")
	v, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return nil
	}
	if neg {
		v = -v
	}
	return &v
}

var qtyUnitPattern = regexp.MustCompile(`^\s*(-?[\d,]+(?:\.\d+)?)\s*([A-Za-z][A-Za-z.\s]*)?$`)

// SplitQtyUnit splits a combined "<number> <unit>" string as exported by the
// accounting system ("12 nos", "-2.5 kg"). The unit part may be absent.
func SplitQtyUnit(text string) (*float64, *string) {
	m := qtyUnitPattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return nil, nil
	}
	qty := parseNumber(m[1])
	if qty == nil {
		return nil, nil
	}
	var unit *string
	if u := strings.TrimSpace(m[2]); u != "" {
		unit = &u
	}
	return qty, unit
}
