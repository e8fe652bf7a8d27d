package storage

import (
	"fmt"
	"strings"

	"github.com/aleksaelezovic/rofi-tracker/pkg/store"
)

// Storage backends
const (
	BackendBadger = "badger"
	BackendBolt   = "bolt"
)

// Backends lists the accepted backend names
var Backends = []string{BackendBadger, BackendBolt}

// Open opens the named backend at path. Badger treats path as a directory,
// bolt as a file.
func Open(backend, path string) (store.Storage, error) {
	switch strings.ToLower(backend) {
	case BackendBadger, "":
		return NewBadgerStorage(path)
	case BackendBolt:
		return NewBoltStorage(path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
