// ABOUTME: Key-value persistence for the credential vault
// ABOUTME: Store interface plus a badger-backed implementation shared across processes
package vault

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v3"
)

// ErrNotFound is returned by Store.Get when a key is absent.
var ErrNotFound = errors.New("vault: key not found")

// DefaultLockWait is how long an operation waits for another process to release the store.
const DefaultLockWait = 5 * time.Second

// Store is the minimal KV surface the vault needs.
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

// BadgerStore keeps vault records in a badger database.
//
// An on-disk store opens the database for each operation and closes it again,
// so several weekcal processes (watch, tui, one-off commands) can share the
// directory. Badger allows a single writer per directory; an operation waits
// up to LockWait for the lock.
type BadgerStore struct {
	dir      string
	LockWait time.Duration

	mu       sync.Mutex
	inMemory bool
	db       *badger.DB // held open for in-memory stores only
}

// OpenBadger prepares an on-disk store in dir, creating it if needed.
func OpenBadger(dir string) (*BadgerStore, error) {
	s := &BadgerStore{dir: dir, LockWait: DefaultLockWait}
	// A bad path fails here.
	if err := s.with(func(*badger.DB) error { return nil }); err != nil {
		return nil, err
	}
	return s, nil
}

// OpenInMemory opens a store that lives only as long as the process.
func OpenInMemory() (*BadgerStore, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory vault store: %w", err)
	}
	return &BadgerStore{inMemory: true, db: db}, nil
}

func diskOptions(dir string) badger.Options {
	return badger.DefaultOptions(dir).
		WithLogger(nil).
		WithMemTableSize(1 << 20).
		WithValueLogFileSize(1 << 20).
		WithNumVersionsToKeep(1)
}

func isLocked(err error) bool {
	return err != nil && strings.Contains(err.Error(), "Cannot acquire directory lock")
}

// with runs fn against an open database.
func (s *BadgerStore) with(fn func(*badger.DB) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inMemory {
		if s.db == nil {
			return errors.New("vault store is closed")
		}
		return fn(s.db)
	}

	deadline := time.Now().Add(s.LockWait)
	for {
		db, err := badger.Open(diskOptions(s.dir))
		if err == nil {
			runErr := fn(db)
			if closeErr := db.Close(); closeErr != nil && runErr == nil {
				runErr = fmt.Errorf("failed to close vault store: %w", closeErr)
			}
			return runErr
		}
		if !isLocked(err) || time.Now().After(deadline) {
			return fmt.Errorf("failed to open vault store: %w", err)
		}
		time.Sleep(25 * time.Millisecond)
	}
}

// Get returns a copy of the value at key.
func (s *BadgerStore) Get(key string) ([]byte, error) {
	var out []byte
	err := s.with(func(db *badger.DB) error {
		return db.View(func(txn *badger.Txn) error {
			item, err := txn.Get([]byte(key))
			if err != nil {
				return err
			}
			out, err = item.ValueCopy(nil)
			return err
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return out, nil
}

// Set writes value at key.
func (s *BadgerStore) Set(key string, value []byte) error {
	err := s.with(func(db *badger.DB) error {
		return db.Update(func(txn *badger.Txn) error {
			return txn.Set([]byte(key), value)
		})
	})
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *BadgerStore) Delete(key string) error {
	err := s.with(func(db *badger.DB) error {
		return db.Update(func(txn *badger.Txn) error {
			return txn.Delete([]byte(key))
		})
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Close releases an in-memory database. On-disk stores hold nothing between operations.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
