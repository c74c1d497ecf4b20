package directory

import (
	"sync"

	"github.com/nsdb/catalogcoord/catalog"
	"github.com/nsdb/catalogcoord/catalog/engine"
)

// DbCatalogEntry is the per-database handle: an abstract factory +
// handle owned exclusively by the coordinator's Directory. Concrete
// collection/index operations are implemented above this layer; the
// coordinator only observes and reconciles.
type DbCatalogEntry interface {
	// Name returns the database name this entry was created for.
	Name() string
	// InitCollection registers ns as present in this database,
	// reinitializing it in place if forRepair is set.
	InitCollection(txn engine.Txn, ns catalog.Namespace, forRepair bool) error
	// ReinitCollectionAfterRepair reinitializes ns after the engine
	// has repaired its backing ident.
	ReinitCollectionAfterRepair(txn engine.Txn, ns catalog.Namespace) error
	// GetCollectionNamespaces lists every namespace this entry
	// currently reports as present.
	GetCollectionNamespaces() []catalog.Namespace
	// DropCollection drops ns: its backing idents and catalog record.
	DropCollection(txn engine.Txn, ns catalog.Namespace) error
	// IsEmpty reports whether this entry has zero namespaces.
	IsEmpty() bool
}

// CoordinatorHandle is the narrow, non-owning view of the coordinator
// a Factory receives. It exists to break the natural cyclic reference
// between Coordinator and DbCatalogEntry: the factory is handed just
// enough surface to build a working entry without holding a reference
// that would extend the coordinator's own lifetime.
type CoordinatorHandle interface {
	Engine() engine.KvEngine
}

// Factory creates a new DbCatalogEntry for dbName. The directory calls
// it only when dbName has no entry, so at most once while an entry for
// that name is held; after the entry is removed by a committed drop (or
// by DestroyAll), the next GetOrCreate calls it again.
type Factory func(dbName string, host CoordinatorHandle) DbCatalogEntry

// Directory is the mutex-guarded database-name -> DbCatalogEntry map.
// The mutex is held across map lookup and mutation, and also across the
// factory call in GetOrCreate and each entry's IsEmpty in ListNonEmpty.
// The directory itself makes no engine call while holding it.
type Directory struct {
	mu      sync.Mutex
	entries map[string]DbCatalogEntry
	factory Factory
	host    CoordinatorHandle
}

// New builds an empty Directory using factory to create entries lazily
// and host as the non-owning coordinator view passed to it.
func New(factory Factory, host CoordinatorHandle) *Directory {
	return &Directory{
		entries: make(map[string]DbCatalogEntry),
		factory: factory,
		host:    host,
	}
}

// GetOrCreate returns dbName's entry, creating it via the factory on
// miss. Creation is never registered for rollback: database entries
// are implicit and are never explicitly "created" as a transactional
// event, only ever destroyed by dropDatabase.
func (d *Directory) GetOrCreate(dbName string) DbCatalogEntry {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.entries[dbName]; ok {
		return e
	}
	e := d.factory(dbName, d.host)
	d.entries[dbName] = e
	return e
}

// Lookup returns dbName's entry without creating one.
func (d *Directory) Lookup(dbName string) (DbCatalogEntry, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.entries[dbName]
	return e, ok
}

// ListNonEmpty returns the names of every database whose entry reports
// at least one namespace. Empty entries (created lazily on lookup but
// never populated) are not reported.
func (d *Directory) ListNonEmpty() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.entries))
	for name, e := range d.entries {
		if !e.IsEmpty() {
			out = append(out, name)
		}
	}
	return out
}

// RemoveForDrop removes dbName's entry from the map and transfers its
// ownership into a rollback change registered on txn: if txn commits,
// the entry is considered destroyed; if txn aborts, the entry is
// reinserted at the same key so a subsequent GetOrCreate(dbName)
// returns the very same instance. It reports ok=false if dbName has no
// entry.
func (d *Directory) RemoveForDrop(txn engine.Txn, dbName string) (entry DbCatalogEntry, ok bool) {
	d.mu.Lock()
	entry, ok = d.entries[dbName]
	if ok {
		delete(d.entries, dbName)
	}
	d.mu.Unlock()
	if !ok {
		return nil, false
	}

	txn.OnRollback(func() {
		d.mu.Lock()
		d.entries[dbName] = entry
		d.mu.Unlock()
	})

	return entry, true
}

// DestroyAll removes and returns every entry currently held, used by
// the coordinator's clean-shutdown path. It is not rollback-aware:
// shutdown does not run inside a transaction that could abort.
func (d *Directory) DestroyAll() []DbCatalogEntry {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]DbCatalogEntry, 0, len(d.entries))
	for name, e := range d.entries {
		out = append(out, e)
		delete(d.entries, name)
	}
	return out
}
