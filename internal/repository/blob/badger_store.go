package blob

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// BadgerStore is an embedded on-disk store for the terminal client.
type BadgerStore struct {
	db     *badger.DB
	prefix string
}

func NewBadgerStore(dirPath, prefix string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dirPath).
		WithLoggingLevel(badger.ERROR)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}

	return &BadgerStore{db: db, prefix: prefix}, nil
}

func (s *BadgerStore) key(scope string) []byte {
	return []byte(s.prefix + scope)
}

func (s *BadgerStore) Load(_ context.Context, scope string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key(scope))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("badger get: %w", err)
	}
	return out, nil
}

func (s *BadgerStore) Save(_ context.Context, scope string, blob []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.key(scope), blob)
	})
}

func (s *BadgerStore) Delete(_ context.Context, scope string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(s.key(scope))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

func (s *BadgerStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
