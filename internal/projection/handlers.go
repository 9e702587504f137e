// Package projection applies ledger records to the marketplace
// aggregates. Handlers are idempotent: every side effect is a
// delete-if-exists, an upsert by natural key, or a recompute from source,
// so re-delivering a record after a partial failure cannot double-apply.
package projection

import (
	"errors"

	"go.uber.org/zap"

	"marketScope/internal/storage"
)

// ErrConsistency marks a record whose required context is missing, e.g. a
// sale without its preceding transfer activity. The record stays
// unprocessed and blocks later records until the gap is resolved.
var ErrConsistency = errors.New("consistency violation")

// Handlers implements replay.Projector against a storage.Store.
type Handlers struct {
	store  storage.Store
	logger *zap.Logger
}

func NewHandlers(store storage.Store, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{store: store, logger: logger}
}
