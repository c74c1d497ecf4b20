package testdb

import (
	"fmt"
	"sync"

	"github.com/nsdb/catalogcoord/catalog"
	"github.com/nsdb/catalogcoord/catalog/catalogstore"
	"github.com/nsdb/catalogcoord/catalog/directory"
	"github.com/nsdb/catalogcoord/catalog/engine"
)

// Entry is a reference DbCatalogEntry: it turns each abstract
// operation into a direct call against the shared Catalog and engine,
// with no distributed or replicated behavior of its own.
type Entry struct {
	name string
	cat  *catalogstore.Catalog
	eng  engine.KvEngine

	mu          sync.Mutex
	collections map[catalog.Namespace]struct{}
}

// NewFactory returns a directory.Factory producing Entry values backed
// by cat. The host argument every Factory receives is used only to
// obtain the engine; Entry keeps no reference to the coordinator
// itself.
func NewFactory(cat *catalogstore.Catalog) directory.Factory {
	return func(dbName string, host directory.CoordinatorHandle) directory.DbCatalogEntry {
		return &Entry{
			name:        dbName,
			cat:         cat,
			eng:         host.Engine(),
			collections: make(map[catalog.Namespace]struct{}),
		}
	}
}

// Name implements directory.DbCatalogEntry.
func (e *Entry) Name() string { return e.name }

// InitCollection implements directory.DbCatalogEntry.
func (e *Entry) InitCollection(txn engine.Txn, ns catalog.Namespace, forRepair bool) error {
	if forRepair {
		return e.ReinitCollectionAfterRepair(txn, ns)
	}
	e.mu.Lock()
	e.collections[ns] = struct{}{}
	e.mu.Unlock()
	return nil
}

// ReinitCollectionAfterRepair implements directory.DbCatalogEntry.
func (e *Entry) ReinitCollectionAfterRepair(_ engine.Txn, ns catalog.Namespace) error {
	if _, ok := e.cat.GetMetadata(ns); !ok {
		return fmt.Errorf("testdb: no catalog metadata for %q after repair", ns)
	}
	e.mu.Lock()
	e.collections[ns] = struct{}{}
	e.mu.Unlock()
	return nil
}

// GetCollectionNamespaces implements directory.DbCatalogEntry.
func (e *Entry) GetCollectionNamespaces() []catalog.Namespace {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]catalog.Namespace, 0, len(e.collections))
	for ns := range e.collections {
		out = append(out, ns)
	}
	return out
}

// DropCollection implements directory.DbCatalogEntry: it drops every
// ident backing ns (collection and indexes) and removes its catalog
// record.
func (e *Entry) DropCollection(txn engine.Txn, ns catalog.Namespace) error {
	meta, ok := e.cat.GetMetadata(ns)
	if !ok {
		return fmt.Errorf("testdb: unknown namespace %q", ns)
	}
	for _, ident := range meta.AllIdents() {
		if err := e.eng.DropIdent(txn, ident); err != nil {
			return fmt.Errorf("dropping ident %q for %q: %w", ident, ns, err)
		}
	}
	if err := e.cat.RemoveCollection(txn, ns); err != nil {
		return err
	}
	e.mu.Lock()
	delete(e.collections, ns)
	e.mu.Unlock()
	return nil
}

// IsEmpty implements directory.DbCatalogEntry.
func (e *Entry) IsEmpty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.collections) == 0
}

// CreateCollection is a test-only helper, not part of DbCatalogEntry,
// that creates the backing ident, writes the catalog record and
// registers the namespace with this entry in one call.
func (e *Entry) CreateCollection(txn engine.Txn, ns catalog.Namespace, meta catalog.CollectionMetadata) error {
	if err := e.eng.CreateGroupedRecordStore(txn, meta.Ident, ns, meta.Options, meta.MaxPrefix); err != nil {
		return fmt.Errorf("creating record store for %q: %w", ns, err)
	}
	if err := e.cat.PutCollection(txn, ns, meta); err != nil {
		return err
	}
	return e.InitCollection(txn, ns, false)
}
