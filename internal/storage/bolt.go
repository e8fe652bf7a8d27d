package storage

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aleksaelezovic/rofi-tracker/pkg/store"
	"go.etcd.io/bbolt"
	berrors "go.etcd.io/bbolt/errors"
)

// lockTimeout bounds the wait for another launcher process holding the file
const lockTimeout = time.Second

var tables = []store.Table{store.TableEntries, store.TableRecent}

// BoltStorage implements Storage using a single bbolt file, one bucket per
// table
type BoltStorage struct {
	db *bbolt.DB
}

// NewBoltStorage opens or creates the database file at path
func NewBoltStorage(path string) (*BoltStorage, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{
		Timeout: lockTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db at %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, table := range tables {
			if _, err := tx.CreateBucketIfNotExists(bucketName(table)); err != nil {
				return fmt.Errorf("failed to create %s bucket: %w", table, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStorage{db: db}, nil
}

func bucketName(table store.Table) []byte {
	return []byte(table.String())
}

// Begin starts a new transaction
func (s *BoltStorage) Begin(writable bool) (store.Transaction, error) {
	tx, err := s.db.Begin(writable)
	if err != nil {
		return nil, err
	}
	return &BoltTransaction{tx: tx, writable: writable}, nil
}

// Close closes the storage
func (s *BoltStorage) Close() error {
	return s.db.Close()
}

// BoltTransaction implements Transaction using bbolt
type BoltTransaction struct {
	tx       *bbolt.Tx
	writable bool
}

func (t *BoltTransaction) bucket(table store.Table) (*bbolt.Bucket, error) {
	b := t.tx.Bucket(bucketName(table))
	if b == nil {
		return nil, fmt.Errorf("missing bucket for table %s", table)
	}
	return b, nil
}

// Get retrieves a value by key
func (t *BoltTransaction) Get(table store.Table, key []byte) ([]byte, error) {
	b, err := t.bucket(table)
	if err != nil {
		return nil, err
	}

	value := b.Get(key)
	if value == nil {
		return nil, store.ErrNotFound
	}
	// Only valid for the life of the transaction
	return bytes.Clone(value), nil
}

// Set stores a key-value pair
func (t *BoltTransaction) Set(table store.Table, key, value []byte) error {
	if !t.writable {
		return store.ErrTransactionRO
	}

	b, err := t.bucket(table)
	if err != nil {
		return err
	}
	if value == nil {
		value = []byte{}
	}
	return b.Put(key, value)
}

// Delete removes a key
func (t *BoltTransaction) Delete(table store.Table, key []byte) error {
	if !t.writable {
		return store.ErrTransactionRO
	}

	b, err := t.bucket(table)
	if err != nil {
		return err
	}
	return b.Delete(key)
}

// Scan iterates over every key in a table
func (t *BoltTransaction) Scan(table store.Table) (store.Iterator, error) {
	b, err := t.bucket(table)
	if err != nil {
		return nil, err
	}
	return &BoltIterator{c: b.Cursor()}, nil
}

// Commit commits the transaction. Read-only transactions are released.
func (t *BoltTransaction) Commit() error {
	if !t.writable {
		return t.tx.Rollback()
	}
	return t.tx.Commit()
}

// Rollback rolls back the transaction. It is a no-op after Commit.
func (t *BoltTransaction) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, berrors.ErrTxClosed) {
		return err
	}
	return nil
}

// BoltIterator implements Iterator over a bucket cursor
type BoltIterator struct {
	c       *bbolt.Cursor
	started bool
	key     []byte
	value   []byte
}

// Next advances to the next item
func (i *BoltIterator) Next() bool {
	if !i.started {
		i.key, i.value = i.c.First()
		i.started = true
	} else {
		i.key, i.value = i.c.Next()
	}
	return i.key != nil
}

// Key returns the current key
func (i *BoltIterator) Key() []byte {
	if i.key == nil {
		return nil
	}
	return bytes.Clone(i.key)
}

// Value returns the current value
func (i *BoltIterator) Value() ([]byte, error) {
	if i.key == nil {
		return nil, store.ErrNotFound
	}
	return bytes.Clone(i.value), nil
}

// Close closes the iterator
func (i *BoltIterator) Close() error {
	return nil
}
