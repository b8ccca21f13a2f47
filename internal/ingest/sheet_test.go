package ingest

import "testing"

// textSheet builds a sheet without emphasis information.
func textSheet(rows ...[]string) *Sheet {
	s := &Sheet{}
	for _, row := range rows {
		cells := make([]Cell, len(row))
		for i, text := range row {
			cells[i] = Cell{Text: text}
		}
		s.Rows = append(s.Rows, cells)
	}
	return s
}

func TestParseNumber(t *testing.T) {
	t.Run("plain and thousand-separated", func(t *testing.T) {
		if v := parseNumber("1,234.50"); v == nil || *v != 1234.5 {
			t.Errorf("parseNumber(1,234.50) = %v, want 1234.5", v)
		}
		if v := parseNumber("42"); v == nil || *v != 42 {
			t.Errorf("parseNumber(42) = %v, want 42", v)
		}
	})

	t.Run("parenthesized negative", func(t *testing.T) {
		if v := parseNumber("(12)"); v == nil || *v != -12 {
			t.Errorf("parseNumber((12)) = %v, want -12", v)
		}
	})

	t.Run("non-numeric returns nil", func(t *testing.T) {
		for _, text := range []string{"", "Widget", "12 nos", "1.2.3"} {
			if v := parseNumber(text); v != nil {
				t.Errorf("parseNumber(%q) = %v, want nil", text, *v)
			}
		}
	})
}

func TestSplitQtyUnit(t *testing.T) {
	t.Run("quantity with unit", func(t *testing.T) {
		qty, unit := SplitQtyUnit("12 nos")
		if qty == nil || *qty != 12 {
			t.Fatalf("qty = %v, want 12", qty)
		}
		if unit == nil || *unit != "nos" {
			t.Errorf("unit = %v, want nos", unit)
		}
	})

	t.Run("negative decimal with unit", func(t *testing.T) {
		qty, unit := SplitQtyUnit("-2.5 kg")
		if qty == nil || *qty != -2.5 {
			t.Fatalf("qty = %v, want -2.5", qty)
		}
		if unit == nil || *unit != "kg" {
			t.Errorf("unit = %v, want kg", unit)
		}
	})

	t.Run("bare number has no unit", func(t *testing.T) {
		qty, unit := SplitQtyUnit("7")
		if qty == nil || *qty != 7 {
			t.Fatalf("qty = %v, want 7", qty)
		}
		if unit != nil {
			t.Errorf("unit = %q, want nil", *unit)
		}
	})

	t.Run("plain text yields nothing", func(t *testing.T) {
		qty, unit := SplitQtyUnit("Widget Pro")
		if qty != nil || unit != nil {
			t.Errorf("got (%v, %v), want (nil, nil)", qty, unit)
		}
	})
}

func TestBrandShaped(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"Acme", true},
		{"Acme Industrial", true},
		{"Widget 5mm", false},  // digits
		{"12 nos", false},      // digits and unit
		{"Premium Pcs", false}, // unit marker
		{"Grand Total", false}, // terminator
		{"", false},
		{"An Extremely Long Label That Cannot Plausibly Be A Brand Bucket", false},
	}
	for _, c := range cases {
		if got := brandShaped(c.text); got != c.want {
			t.Errorf("brandShaped(%q) = %v, want %v", c.text, got, c.want)
		}
	}
}
