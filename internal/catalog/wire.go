//go:build wireinject
// +build wireinject

package catalog

import (
	"github.com/google/wire"

	"github.com/averta/stocksync/internal/catalog/delivery/http"
	"github.com/averta/stocksync/internal/catalog/domain"
	"github.com/averta/stocksync/internal/catalog/usecase/command"
	syncsvc "github.com/averta/stocksync/internal/sync"
)

// InitializeUpsertHandler builds the batch upsert engine. notifier and
// mirror may be nil when Kafka or Redis are disabled.
func InitializeUpsertHandler(
	repo domain.CatalogRepository,
	notifier command.ChangeNotifier,
	mirror command.Mirror,
) *command.UpsertBatchHandler {
	wire.Build(command.NewUpsertBatchHandler)
	return nil
}

// InitializeHTTPHandler builds the HTTP handler with all dependencies.
// scheduler may be nil when the live source is disabled.
func InitializeHTTPHandler(
	repo domain.CatalogRepository,
	upsert *command.UpsertBatchHandler,
	mirror command.Mirror,
	scheduler *syncsvc.Scheduler,
) *http.CatalogHandler {
	wire.Build(
		command.NewImportFileHandler,
		command.NewSetPriceHandler,
		http.NewCatalogHandler,
	)
	return nil
}
