package command

import (
	"context"
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/averta/stocksync/internal/catalog/domain"
	"github.com/averta/stocksync/internal/catalog/repository"
)

func summarySheet(t *testing.T) []byte {
	t.Helper()
	wb := excelize.NewFile()
	defer wb.Close()
	sheet := wb.GetSheetName(0)

	rows := [][]string{
		{"Particulars", "Closing Qty"},
		{"Widget 5mm", "12"},
		{"Bolt M8", "5 nos"},
		{"Grand Total", "17"},
	}
	for ri, row := range rows {
		for ci, text := range row {
			axis, _ := excelize.CoordinatesToCellName(ci+1, ri+1)
			if err := wb.SetCellValue(sheet, axis, text); err != nil {
				t.Fatalf("failed to set cell: %v", err)
			}
		}
	}

	buf, err := wb.WriteToBuffer()
	if err != nil {
		t.Fatalf("failed to serialize workbook: %v", err)
	}
	return buf.Bytes()
}

func TestImportFromBytes(t *testing.T) {
	ctx := context.Background()

	t.Run("xlsx snapshot lands in the store", func(t *testing.T) {
		repo := repository.NewMemoryCatalogRepository()
		handler := NewImportFileHandler(NewUpsertBatchHandler(repo, nil, nil))

		result, err := handler.HandleFromBytes(ctx, "summary.xlsx", summarySheet(t))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.ParsedCount != 2 {
			t.Errorf("ParsedCount = %d, want 2", result.ParsedCount)
		}
		if result.UpsertedCount != 2 {
			t.Errorf("UpsertedCount = %d, want 2", result.UpsertedCount)
		}

		found, _ := repo.FindByNameKeys([]string{"bolt m8"})
		p, ok := found["bolt m8"]
		if !ok {
			t.Fatal("bolt m8 not imported")
		}
		if p.Product.StockQty == nil || *p.Product.StockQty != 5 {
			t.Errorf("qty = %v, want 5", p.Product.StockQty)
		}
		if p.Product.Unit == nil || *p.Product.Unit != "nos" {
			t.Errorf("unit = %v, want nos", p.Product.Unit)
		}
	})

	t.Run("markup snapshot goes through the markup parser", func(t *testing.T) {
		repo := repository.NewMemoryCatalogRepository()
		handler := NewImportFileHandler(NewUpsertBatchHandler(repo, nil, nil))

		data := []byte(`<ENVELOPE>
  <DSPACCNAME><DSPDISPNAME>Widget 5mm</DSPDISPNAME></DSPACCNAME>
  <DSPSTKINFO><DSPCLQTY>3 nos</DSPCLQTY></DSPSTKINFO>
</ENVELOPE>`)

		result, err := handler.HandleFromBytes(ctx, "export.xml", data)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.UpsertedCount != 1 {
			t.Errorf("UpsertedCount = %d, want 1", result.UpsertedCount)
		}
	})

	t.Run("unknown extension is unsupported", func(t *testing.T) {
		repo := repository.NewMemoryCatalogRepository()
		handler := NewImportFileHandler(NewUpsertBatchHandler(repo, nil, nil))

		_, err := handler.HandleFromBytes(ctx, "snapshot.csv", []byte("a,b"))
		if !errors.Is(err, domain.ErrUnsupportedFormat) {
			t.Errorf("error = %v, want ErrUnsupportedFormat", err)
		}
	})

	t.Run("undetectable sheet is a detection failure", func(t *testing.T) {
		repo := repository.NewMemoryCatalogRepository()
		handler := NewImportFileHandler(NewUpsertBatchHandler(repo, nil, nil))

		wb := excelize.NewFile()
		wb.SetCellValue(wb.GetSheetName(0), "A1", "nothing useful")
		buf, err := wb.WriteToBuffer()
		wb.Close()
		if err != nil {
			t.Fatalf("failed to serialize workbook: %v", err)
		}

		_, err = handler.HandleFromBytes(ctx, "noise.xlsx", buf.Bytes())
		if !errors.Is(err, domain.ErrDetectionFailed) {
			t.Errorf("error = %v, want ErrDetectionFailed", err)
		}
	})
}
