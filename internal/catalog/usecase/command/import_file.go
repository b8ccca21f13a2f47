package command

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/averta/stocksync/internal/catalog/domain"
	"github.com/averta/stocksync/internal/ingest"
	"github.com/averta/stocksync/pkg/logger"
)

// ImportResult reports one snapshot import.
type ImportResult struct {
	ParsedCount   int `json:"parsed_count"`
	UpsertedCount int `json:"upserted_count"`
}

// ImportFileHandler ingests a stock-export snapshot: format detection by
// file extension, detector chain, canonicalization, then the shared upsert
// path.
type ImportFileHandler struct {
	chain  *ingest.Chain
	upsert *UpsertBatchHandler
}

// NewImportFileHandler creates a new import handler
func NewImportFileHandler(upsert *UpsertBatchHandler) *ImportFileHandler {
	return &ImportFileHandler{
		chain:  ingest.NewTabularChain(),
		upsert: upsert,
	}
}

// HandleFromPath imports the snapshot file at path.
func (h *ImportFileHandler) HandleFromPath(ctx context.Context, path string) (*ImportResult, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read import file: %w", err)
	}
	return h.HandleFromBytes(ctx, filepath.Base(path), content)
}

// HandleFromBytes imports an in-memory snapshot. The filename's extension
// selects the detector family.
func (h *ImportFileHandler) HandleFromBytes(ctx context.Context, filename string, content []byte) (*ImportResult, error) {
	var raw []domain.RawItem
	var err error

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		var sheet *ingest.Sheet
		sheet, err = ingest.LoadWorkbookBytes(content)
		if err == nil {
			raw, err = h.chain.Detect(sheet, filename)
		}
	case ".xml":
		raw, err = ingest.ParseMarkupItems(content)
	default:
		return nil, fmt.Errorf("%w: %s (want .xlsx or .xml)", domain.ErrUnsupportedFormat, filename)
	}
	if err != nil {
		return nil, err
	}

	importRowsTotal.Add(float64(len(raw)))

	items := domain.Canonicalize(raw, time.Now())
	result, err := h.upsert.Handle(ctx, UpsertBatchCommand{Items: items})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx).
		Str("source", filename).
		Int("parsed", len(raw)).
		Int("upserted", result.Upserted).
		Int("changes", result.Changes).
		Msg("Snapshot imported")

	return &ImportResult{
		ParsedCount:   len(raw),
		UpsertedCount: result.Upserted,
	}, nil
}
