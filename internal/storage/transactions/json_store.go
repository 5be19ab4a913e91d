package transactions

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/hodlbook/internal/domain"
)

// DefaultJSONPath is the ledger file used when none is configured.
const DefaultJSONPath = "./data/transactions.json"

// JSONStore keeps the ledger as a flat JSON array in one file. The file is
// re-read on every call so hand edits are picked up.
type JSONStore struct {
	path string
	mu   sync.Mutex
}

// NewJSONStore creates the parent directory of path if needed.
func NewJSONStore(path string) (*JSONStore, error) {
	if path == "" {
		path = DefaultJSONPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "create transactions dir")
	}
	return &JSONStore{path: path}, nil
}

// Load reads all transactions. A missing or empty file is an empty ledger.
func (s *JSONStore) Load() ([]domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs, err := s.read()
	if err != nil {
		return nil, err
	}
	if assignMissingIDs(txs) {
		if err := s.write(txs); err != nil {
			return nil, err
		}
	}
	return txs, nil
}

func (s *JSONStore) Append(tx domain.Transaction) error {
	if err := validateForAppend(tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	txs, err := s.read()
	if err != nil {
		return err
	}
	assignMissingIDs(txs)
	for _, existing := range txs {
		if existing.ID == tx.ID {
			return errors.Errorf("transaction %s already exists", tx.ID)
		}
	}
	return s.write(append(txs, tx))
}

func (s *JSONStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs, err := s.read()
	if err != nil {
		return err
	}
	assignMissingIDs(txs)

	kept := txs[:0]
	found := false
	for _, tx := range txs {
		if tx.ID == id {
			found = true
			continue
		}
		kept = append(kept, tx)
	}
	if !found {
		return errors.Wrapf(ErrNotFound, "id %s", id)
	}
	return s.write(kept)
}

func (s *JSONStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(nil)
}

func (s *JSONStore) Close() error { return nil }

func (s *JSONStore) read() ([]domain.Transaction, error) {
	payload, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "read transactions")
	}
	if len(payload) == 0 {
		return nil, nil
	}

	var txs []domain.Transaction
	if err := json.Unmarshal(payload, &txs); err != nil {
		return nil, errors.Wrap(err, "decode transactions")
	}
	return txs, nil
}

// write replaces the file atomically via temp file.
func (s *JSONStore) write(txs []domain.Transaction) error {
	if txs == nil {
		txs = []domain.Transaction{}
	}
	payload, err := json.MarshalIndent(txs, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode transactions")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return errors.Wrap(err, "write transactions temp file")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, "persist transactions")
	}
	return nil
}
