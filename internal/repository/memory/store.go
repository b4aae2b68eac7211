// Package memory provides in-process implementations of the repository
// interfaces backed by maps. It powers the unit-test suite and dev mode
// without a database; Postgres stays the canonical backend.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"cabinet/internal/domain/models"
	"cabinet/internal/domain/repositories"
)

// closureKey identifies one (ancestor, descendant) index row
type closureKey struct {
	ancestor   uuid.UUID
	descendant uuid.UUID
}

// Store holds all state shared by the memory repositories. A single RWMutex
// guards the maps; transactions additionally serialize through txMu.
type Store struct {
	mu      sync.RWMutex
	txMu    sync.Mutex
	folders map[uuid.UUID]*models.Folder
	files   map[uuid.UUID]*models.File
	closure map[closureKey]int
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		folders: make(map[uuid.UUID]*models.Folder),
		files:   make(map[uuid.UUID]*models.File),
		closure: make(map[closureKey]int),
	}
}

// TransactionManager serializes mutations against the store. There is no
// rollback: services validate before writing, and transactional failure
// semantics are covered by the Postgres backend.
type TransactionManager struct {
	store *Store
}

// NewTransactionManager creates a transaction manager over the store
func NewTransactionManager(store *Store) repositories.TransactionManager {
	return &TransactionManager{store: store}
}

// ExecTx runs fn while holding the store's transaction lock
func (tm *TransactionManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	tm.store.txMu.Lock()
	defer tm.store.txMu.Unlock()
	return fn(ctx)
}

// copyFolder returns a detached copy so callers never alias stored state
func copyFolder(f *models.Folder) *models.Folder {
	c := *f
	if f.ParentID != nil {
		p := *f.ParentID
		c.ParentID = &p
	}
	if f.DeletedAt != nil {
		t := *f.DeletedAt
		c.DeletedAt = &t
	}
	if f.DeleteBatchID != nil {
		b := *f.DeleteBatchID
		c.DeleteBatchID = &b
	}
	return &c
}

// copyFile returns a detached copy so callers never alias stored state
func copyFile(f *models.File) *models.File {
	c := *f
	if f.FolderID != nil {
		p := *f.FolderID
		c.FolderID = &p
	}
	if f.DeletedAt != nil {
		t := *f.DeletedAt
		c.DeletedAt = &t
	}
	if f.DeleteBatchID != nil {
		b := *f.DeleteBatchID
		c.DeleteBatchID = &b
	}
	return &c
}
