package catalogstore

import (
	"fmt"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/nsdb/catalogcoord/catalog"
	"github.com/nsdb/catalogcoord/catalog/engine"
)

// Options affect only how idents for new collections/indexes are named;
// they carry no semantic weight for the accessors below.
type Options struct {
	// DirectoryPerDB namespaces ident names by database when set.
	DirectoryPerDB bool
	// DirectoryForIndexes namespaces index ident names under an
	// "index/" segment when set.
	DirectoryForIndexes bool
}

// Catalog is the durable NS -> CollectionMetadata mapping, backed by a
// record store living inside catalog.ReservedCatalogIdent.
type Catalog struct {
	eng   engine.KvEngine
	opts  Options
	store engine.RecordStore

	mu      sync.RWMutex
	entries map[catalog.Namespace]catalog.CollectionMetadata
}

// New builds a Catalog bound to eng. Init must be called before use.
func New(eng engine.KvEngine, opts Options) *Catalog {
	return &Catalog{
		eng:     eng,
		opts:    opts,
		entries: make(map[catalog.Namespace]catalog.CollectionMetadata),
	}
}

// Init opens the reserved catalog ident's record store (which the
// coordinator must already have created) and loads every record into
// the in-memory index, verifying that idents are unique across the
// whole catalog.
func (c *Catalog) Init(txn engine.Txn) error {
	store, err := c.eng.GetGroupedRecordStore(
		txn,
		catalog.ReservedCatalogIdent,
		catalog.Namespace(catalog.ReservedCatalogIdent),
		catalog.CollectionOptions{},
		0,
	)
	if err != nil {
		return catalog.NewFatal(catalog.FatalCorruptCatalog, "opening reserved catalog ident: %v", err)
	}
	c.store = store

	entries := make(map[catalog.Namespace]catalog.CollectionMetadata)
	seen := make(catalog.IdentSet)

	err = store.Iterate(func(id string, data []byte) error {
		var rec record
		if err := msgpack.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("decoding catalog record %q: %w", id, err)
		}
		ns := catalog.Namespace(rec.NS)
		for _, ident := range rec.Metadata.AllIdents() {
			if seen.Has(ident) {
				return fmt.Errorf("ident %q referenced by more than one namespace (last: %q)", ident, ns)
			}
			seen[ident] = struct{}{}
		}
		entries[ns] = rec.Metadata
		return nil
	})
	if err != nil {
		return catalog.NewFatal(catalog.FatalCorruptCatalog, "loading catalog records: %v", err)
	}

	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()
	return nil
}

// GetAllCollections returns every namespace known to the catalog.
func (c *Catalog) GetAllCollections() []catalog.Namespace {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]catalog.Namespace, 0, len(c.entries))
	for ns := range c.entries {
		out = append(out, ns)
	}
	return out
}

// GetAllIdents returns every ident referenced by the catalog (every
// collection ident plus every index ident). It excludes the reserved
// catalog ident itself.
func (c *Catalog) GetAllIdents() []catalog.Ident {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]catalog.Ident, 0, len(c.entries))
	for _, meta := range c.entries {
		out = append(out, meta.AllIdents()...)
	}
	return out
}

// GetCollectionIdent returns the collection ident for ns.
func (c *Catalog) GetCollectionIdent(ns catalog.Namespace) (catalog.Ident, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	meta, ok := c.entries[ns]
	if !ok {
		return "", false
	}
	return meta.Ident, true
}

// GetIndexIdent returns the ident of index indexName on ns.
func (c *Catalog) GetIndexIdent(ns catalog.Namespace, indexName string) (catalog.Ident, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	meta, ok := c.entries[ns]
	if !ok {
		return "", false
	}
	return meta.IndexIdent(indexName)
}

// GetMetadata returns the full metadata record for ns.
func (c *Catalog) GetMetadata(ns catalog.Namespace) (catalog.CollectionMetadata, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	meta, ok := c.entries[ns]
	return meta, ok
}

// IsUserDataIdent reports whether id was created for user data
// (a collection or an index) rather than being an internal ident.
func (c *Catalog) IsUserDataIdent(id catalog.Ident) bool {
	return id.IsUserData()
}

// PutCollection inserts or replaces the metadata record for ns. It is
// called by the per-database collection handle (DbCatalogEntry) when a
// collection or index is created, dropped, or otherwise mutated; the
// Catalog itself never originates these calls.
func (c *Catalog) PutCollection(txn engine.Txn, ns catalog.Namespace, meta catalog.CollectionMetadata) error {
	data, err := msgpack.Marshal(record{NS: string(ns), Metadata: meta})
	if err != nil {
		return fmt.Errorf("encoding catalog record for %q: %w", ns, err)
	}
	if err := upsert(c.store, txn, string(ns), data); err != nil {
		return err
	}

	c.mu.Lock()
	prev, hadPrev := c.entries[ns]
	c.entries[ns] = meta
	c.mu.Unlock()

	txn.OnRollback(func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if hadPrev {
			c.entries[ns] = prev
		} else {
			delete(c.entries, ns)
		}
	})
	return nil
}

// RemoveCollection deletes the metadata record for ns.
func (c *Catalog) RemoveCollection(txn engine.Txn, ns catalog.Namespace) error {
	if err := c.store.Delete(txn, string(ns)); err != nil {
		return fmt.Errorf("removing catalog record for %q: %w", ns, err)
	}

	c.mu.Lock()
	prev, hadPrev := c.entries[ns]
	delete(c.entries, ns)
	c.mu.Unlock()

	if hadPrev {
		txn.OnRollback(func() {
			c.mu.Lock()
			c.entries[ns] = prev
			c.mu.Unlock()
		})
	}
	return nil
}

// IdentName builds the backend ident name for a newly created
// collection or index, honoring DirectoryPerDB/DirectoryForIndexes.
func (c *Catalog) IdentName(ns catalog.Namespace, indexName string, generation string) catalog.Ident {
	prefix := "collection-"
	segment := ""
	if indexName != "" {
		prefix = "index-"
		if c.opts.DirectoryForIndexes {
			segment = "index/"
		}
	}
	dbSegment := ""
	if c.opts.DirectoryPerDB {
		dbSegment = ns.DB() + "/"
	}
	return catalog.Ident(dbSegment + segment + prefix + generation)
}

// upsert inserts id, falling back to update only when Insert reports
// that the record already exists. The Catalog's own record store
// treats "namespace already has a record" as the ordinary
// re-registration path (e.g. after repair), not an error; any other
// Insert failure is a genuine error and must not be masked by
// Update's unrelated "not found" error.
func upsert(store engine.RecordStore, txn engine.Txn, id string, data []byte) error {
	err := store.Insert(txn, id, data)
	if err == nil {
		return nil
	}
	if !engine.ErrRecordExists.Has(err) {
		return err
	}
	return store.Update(txn, id, data)
}
