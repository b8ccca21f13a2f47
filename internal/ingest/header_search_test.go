package ingest

import (
	"testing"
)

func TestHeaderSearchDetect(t *testing.T) {
	d := NewHeaderSearchDetector()

	t.Run("finds header and walks table with brand headings", func(t *testing.T) {
		sheet := textSheet(
			[]string{"Stock Summary"},
			[]string{},
			[]string{"Particulars", "Opening Qty", "Closing Qty"},
			[]string{"Acme", "", ""},
			[]string{"Widget 5mm", "8", "12"},
			[]string{"Bolt M8", "3", "5 nos"},
			[]string{"Grand Total", "11", "17"},
		)

		items, err := d.Detect(sheet)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(items) != 2 {
			t.Fatalf("items = %d, want 2", len(items))
		}

		if items[0].Name != "Widget 5mm" {
			t.Errorf("first item = %q", items[0].Name)
		}
		if items[0].Brand == nil || *items[0].Brand != "Acme" {
			t.Errorf("first brand = %v, want Acme", items[0].Brand)
		}
		// Closing column wins over the opening column
		if items[0].Quantity == nil || *items[0].Quantity != 12 {
			t.Errorf("first qty = %v, want 12 (closing column)", items[0].Quantity)
		}

		// Combined quantity-unit cell is split
		if items[1].Quantity == nil || *items[1].Quantity != 5 {
			t.Errorf("second qty = %v, want 5", items[1].Quantity)
		}
		if items[1].Unit == nil || *items[1].Unit != "nos" {
			t.Errorf("second unit = %v, want nos", items[1].Unit)
		}
	})

	t.Run("grand total row ends the walk", func(t *testing.T) {
		sheet := textSheet(
			[]string{"Item Name", "Closing Balance"},
			[]string{"Widget 5mm", "3"},
			[]string{"Grand Total", "3"},
			[]string{"Footer note 123", "999"},
		)

		items, err := d.Detect(sheet)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(items) != 1 {
			t.Errorf("items = %d, want 1 (walk stops at total)", len(items))
		}
	})

	t.Run("two-row header group", func(t *testing.T) {
		sheet := textSheet(
			[]string{"Particulars", "Closing"},
			[]string{"", "Quantity"},
			[]string{"Widget 5mm", "4"},
			[]string{"Bolt M8", "2"},
		)

		items, err := d.Detect(sheet)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(items) != 2 {
			t.Errorf("items = %d, want 2", len(items))
		}
	})

	t.Run("dedicated unit column overrides combined unit", func(t *testing.T) {
		sheet := textSheet(
			[]string{"Item Name", "Closing Qty", "Unit"},
			[]string{"Widget 5mm", "7", "kg"},
		)

		items, err := d.Detect(sheet)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if items[0].Unit == nil || *items[0].Unit != "kg" {
			t.Errorf("unit = %v, want kg", items[0].Unit)
		}
	})

	t.Run("equal-score columns break ties to the earlier one", func(t *testing.T) {
		// Two identical labels with identical numeric support score the
		// same; only a strictly greater score may displace the incumbent,
		// so the column discovered first wins.
		sheet := textSheet(
			[]string{"Item Name", "Closing Qty", "Closing Qty"},
			[]string{"Widget 5mm", "4", "9"},
			[]string{"Bolt M8", "2", "7"},
		)

		items, err := d.Detect(sheet)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(items) != 2 {
			t.Fatalf("items = %d, want 2", len(items))
		}
		if items[0].Quantity == nil || *items[0].Quantity != 4 {
			t.Errorf("first qty = %v, want 4 from the earlier column", items[0].Quantity)
		}
		if items[1].Quantity == nil || *items[1].Quantity != 2 {
			t.Errorf("second qty = %v, want 2 from the earlier column", items[1].Quantity)
		}
	})

	t.Run("stray brand-shaped label before another heading is skipped", func(t *testing.T) {
		sheet := textSheet(
			[]string{"Item Name", "Closing Qty"},
			[]string{"Stray Label", ""},
			[]string{"Acme", ""},
			[]string{"Widget 5mm", "2"},
		)

		items, err := d.Detect(sheet)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(items) != 1 {
			t.Fatalf("items = %d, want 1", len(items))
		}
		// The stray label is followed by another brand-shaped row, so only
		// the second heading becomes the brand
		if items[0].Brand == nil || *items[0].Brand != "Acme" {
			t.Errorf("brand = %v, want Acme", items[0].Brand)
		}
	})

	t.Run("no header is an error", func(t *testing.T) {
		sheet := textSheet(
			[]string{"Just", "Some"},
			[]string{"Random", "Cells"},
		)
		if _, err := d.Detect(sheet); err == nil {
			t.Error("expected error for sheet without header")
		}
	})
}
