// Package transactions persists the transaction ledger.
package transactions

import (
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/hodlbook/internal/domain"
)

const (
	BackendJSON = "json"
	BackendWAL  = "wal"
)

// ErrNotFound is returned when no transaction has the given id.
var ErrNotFound = errors.New("transaction not found")

// Store is an ordered, append-only transaction ledger. Load returns records in
// insertion order.
type Store interface {
	Load() ([]domain.Transaction, error)
	Append(tx domain.Transaction) error
	Delete(id string) error
	Clear() error
	Close() error
}

// Open opens the store for the configured backend. For the json backend path
// is a file, for wal it is a directory.
func Open(backend, path string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case BackendJSON, "":
		return NewJSONStore(path)
	case BackendWAL:
		return NewWALStore(path)
	default:
		return nil, errors.Errorf("unknown store backend %q", backend)
	}
}

// assignMissingIDs gives records loaded without an id a fresh one and reports
// whether anything changed.
func assignMissingIDs(txs []domain.Transaction) bool {
	changed := false
	for i := range txs {
		if txs[i].ID == "" {
			txs[i].ID = uuid.New().String()
			changed = true
		}
	}
	return changed
}

func validateForAppend(tx domain.Transaction) error {
	if tx.ID == "" {
		return errors.New("transaction id is required")
	}
	return errors.Wrap(tx.Validate(), "invalid transaction")
}
