package transactions

import (
	"encoding/json"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"
	"github.com/vadiminshakov/hodlbook/internal/domain"
)

const (
	DefaultWALDir = "./data/wal"
	segmentLimit  = 1000
	// old segments are dropped by gowal past this count, keep it high
	maxSegments = 10000

	addKeyPrefix    = "tx_add_"
	deleteKeyPrefix = "tx_delete_"
	clearKey        = "tx_clear"
)

// WALStore journals every ledger mutation to a WAL and keeps the replayed
// ledger in memory.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
	txs []domain.Transaction
}

// NewWALStore opens the WAL in dir and replays it.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = DefaultWALDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create WAL dir %s", dir)
	}

	wal, err := gowal.NewWAL(gowal.Config{
		Dir:              dir,
		Prefix:           "tx_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "init transactions WAL")
	}

	s := &WALStore{wal: wal}
	if err := s.replay(); err != nil {
		_ = wal.Close()
		return nil, err
	}
	return s, nil
}

func (s *WALStore) replay() error {
	var txs []domain.Transaction
	for msg := range s.wal.Iterator() {
		switch {
		case msg.Key == clearKey:
			txs = nil
		case strings.HasPrefix(msg.Key, addKeyPrefix):
			var tx domain.Transaction
			if err := json.Unmarshal(msg.Value, &tx); err != nil {
				return errors.Wrapf(err, "decode WAL record %s", msg.Key)
			}
			if tx.ID == "" {
				tx.ID = strings.TrimPrefix(msg.Key, addKeyPrefix)
			}
			txs = append(txs, tx)
		case strings.HasPrefix(msg.Key, deleteKeyPrefix):
			txs = removeByID(txs, strings.TrimPrefix(msg.Key, deleteKeyPrefix))
		}
	}
	s.txs = txs
	return nil
}

func (s *WALStore) Load() ([]domain.Transaction, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("transactions store is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Transaction, len(s.txs))
	copy(out, s.txs)
	return out, nil
}

func (s *WALStore) Append(tx domain.Transaction) error {
	if s == nil || s.wal == nil {
		return errors.New("transactions store is not initialized")
	}
	if err := validateForAppend(tx); err != nil {
		return err
	}

	payload, err := json.Marshal(tx)
	if err != nil {
		return errors.Wrap(err, "marshal transaction")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if indexOf(s.txs, tx.ID) >= 0 {
		return errors.Errorf("transaction %s already exists", tx.ID)
	}
	if err := s.wal.Write(s.wal.CurrentIndex()+1, addKeyPrefix+tx.ID, payload); err != nil {
		return errors.Wrap(err, "write transaction to WAL")
	}
	s.txs = append(s.txs, tx)
	return nil
}

func (s *WALStore) Delete(id string) error {
	if s == nil || s.wal == nil {
		return errors.New("transactions store is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if indexOf(s.txs, id) < 0 {
		return errors.Wrapf(ErrNotFound, "id %s", id)
	}
	if err := s.wal.Write(s.wal.CurrentIndex()+1, deleteKeyPrefix+id, []byte(id)); err != nil {
		return errors.Wrap(err, "write delete to WAL")
	}
	s.txs = removeByID(s.txs, id)
	return nil
}

func (s *WALStore) Clear() error {
	if s == nil || s.wal == nil {
		return errors.New("transactions store is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.wal.Write(s.wal.CurrentIndex()+1, clearKey, []byte(clearKey)); err != nil {
		return errors.Wrap(err, "write clear to WAL")
	}
	s.txs = nil
	return nil
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("transactions store is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}

func indexOf(txs []domain.Transaction, id string) int {
	for i, tx := range txs {
		if tx.ID == id {
			return i
		}
	}
	return -1
}

func removeByID(txs []domain.Transaction, id string) []domain.Transaction {
	i := indexOf(txs, id)
	if i < 0 {
		return txs
	}
	out := make([]domain.Transaction, 0, len(txs)-1)
	out = append(out, txs[:i]...)
	return append(out, txs[i+1:]...)
}
