package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/xxh3"
)

// KeySize is the size of an identifier key (128-bit xxhash3)
const KeySize = 16

// Entry records a document opened from the launcher
type Entry struct {
	ID         string    `cbor:"1,keyasint"`
	Locator    string    `cbor:"2,keyasint"`
	Count      uint64    `cbor:"3,keyasint"`
	LastOpened time.Time `cbor:"4,keyasint"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano

	var err error
	if encMode, err = opts.EncMode(); err != nil {
		panic("store: CBOR encoder initialization failed: " + err.Error())
	}
	if decMode, err = (cbor.DecOptions{}).DecMode(); err != nil {
		panic("store: CBOR decoder initialization failed: " + err.Error())
	}
}

// History keeps the documents opened through the launcher, most recent first
type History struct {
	storage Storage
}

// NewHistory creates a history on top of a storage backend
func NewHistory(storage Storage) *History {
	return &History{storage: storage}
}

// Close closes the underlying storage
func (h *History) Close() error {
	return h.storage.Close()
}

// HashID computes the 128-bit xxhash3 key of an identifier
func HashID(id string) [KeySize]byte {
	hash := xxh3.HashString128(id)
	var key [KeySize]byte
	binary.BigEndian.PutUint64(key[0:8], hash.Hi)
	binary.BigEndian.PutUint64(key[8:16], hash.Lo)
	return key
}

// recentKey orders keys newest first under a plain ascending scan
func recentKey(at time.Time, key [KeySize]byte) []byte {
	result := make([]byte, 8+KeySize)
	binary.BigEndian.PutUint64(result[0:8], math.MaxUint64-uint64(at.UnixNano())) // #nosec G115 - intentional bit-pattern conversion for ordering
	copy(result[8:], key[:])
	return result
}

// Record notes that id was opened at the given time
func (h *History) Record(id, locator string, at time.Time) error {
	txn, err := h.storage.Begin(true)
	if err != nil {
		return err
	}
	defer txn.Rollback()

	key := HashID(id)
	entry := Entry{ID: id}

	previous, err := getEntry(txn, key)
	switch {
	case err == nil:
		entry = *previous
		if err := txn.Delete(TableRecent, recentKey(previous.LastOpened, key)); err != nil {
			return fmt.Errorf("failed to remove recency key: %w", err)
		}
	case !errors.Is(err, ErrNotFound):
		return err
	}

	entry.Locator = locator
	entry.Count++
	entry.LastOpened = at

	value, err := encMode.Marshal(&entry)
	if err != nil {
		return fmt.Errorf("failed to encode entry: %w", err)
	}
	if err := txn.Set(TableEntries, key[:], value); err != nil {
		return err
	}
	if err := txn.Set(TableRecent, recentKey(at, key), nil); err != nil {
		return err
	}

	return txn.Commit()
}

// Lookup returns the entry recorded for id
func (h *History) Lookup(id string) (*Entry, error) {
	txn, err := h.storage.Begin(false)
	if err != nil {
		return nil, err
	}
	defer txn.Rollback()

	return getEntry(txn, HashID(id))
}

// Recent returns up to limit entries, most recently opened first. A limit
// of zero or less returns every entry.
func (h *History) Recent(limit int) ([]Entry, error) {
	txn, err := h.storage.Begin(false)
	if err != nil {
		return nil, err
	}
	defer txn.Rollback()

	it, err := txn.Scan(TableRecent)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var entries []Entry
	for it.Next() {
		if limit > 0 && len(entries) >= limit {
			break
		}

		k := it.Key()
		if len(k) != 8+KeySize {
			return nil, fmt.Errorf("corrupt recency key of %d bytes", len(k))
		}
		var key [KeySize]byte
		copy(key[:], k[8:])

		entry, err := getEntry(txn, key)
		if err != nil {
			return nil, fmt.Errorf("recency index points at missing entry: %w", err)
		}
		entries = append(entries, *entry)
	}

	return entries, nil
}

func getEntry(txn Transaction, key [KeySize]byte) (*Entry, error) {
	value, err := txn.Get(TableEntries, key[:])
	if err != nil {
		return nil, err
	}

	var entry Entry
	if err := decMode.Unmarshal(value, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode entry: %w", err)
	}
	return &entry, nil
}
