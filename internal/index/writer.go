package index

import (
	"context"
	"fmt"

	"github.com/mgpai22/querier/internal/logging"
	"github.com/mgpai22/querier/internal/segment"
)

// Writer adds record batches to a named index and persists it.
type Writer struct {
	store  Store
	logger *logging.Logger
}

func NewWriter(store Store, logger *logging.Logger) *Writer {
	return &Writer{
		store:  store,
		logger: logging.OrNop(logger).With("component", "index"),
	}
}

// Write loads the named index, creating it when it cannot be loaded, inserts
// the records and persists the result. It returns the number of records
// written. Records already present under the same id are replaced.
func (w *Writer) Write(ctx context.Context, name string, records []segment.Record) (int, error) {
	idx, err := w.store.Load(ctx, name)
	if err != nil {
		w.logger.Warnw("index not loaded, creating a new one", "index", name, "error", err)
		idx, err = w.store.Create(ctx, name)
		if err != nil {
			return 0, fmt.Errorf("failed to create index %s: %w", name, err)
		}
	}

	if err := idx.Insert(ctx, records); err != nil {
		return 0, fmt.Errorf("failed to insert into index %s: %w", name, err)
	}

	if err := idx.Persist(ctx); err != nil {
		return 0, err
	}

	w.logger.Infow("index persisted", "index", name, "records", len(records))
	return len(records), nil
}
