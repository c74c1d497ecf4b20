// Package internal holds the concurrent data structures backing
// engine/memkv. It mirrors the teacher's lib/db/engines/maple/internal
// package: a concurrent map keyed by hashable identifiers, built on
// puzpuzpuz/xsync rather than a mutex-guarded map.
package internal

import (
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/nsdb/catalogcoord/catalog"
)

// RecordStore is the in-memory backing of one storage table: an
// unordered concurrent map from record id to its serialized payload.
type RecordStore struct {
	Records *xsync.MapOf[string, []byte]
}

// NewRecordStore allocates an empty record store.
func NewRecordStore() *RecordStore {
	return &RecordStore{Records: xsync.NewMapOf[string, []byte]()}
}

// Registry is the engine-wide table of idents currently present on
// "disk", each mapped to its RecordStore. A single concurrent map is
// sufficient here: unlike per-key traffic in a KVDB, ident churn is
// driven by collection/index create-drop, several orders of magnitude
// less frequent, so the shard-array partitioning the teacher uses for
// maple's key space would only add complexity without a throughput
// benefit.
type Registry struct {
	idents *xsync.MapOf[catalog.Ident, *RecordStore]
}

// NewRegistry allocates an empty ident registry.
func NewRegistry() *Registry {
	return &Registry{idents: xsync.NewMapOf[catalog.Ident, *RecordStore]()}
}

// Create inserts a new, empty record store for id. It reports false if
// id already exists.
func (r *Registry) Create(id catalog.Ident) bool {
	_, loaded := r.idents.LoadOrStore(id, NewRecordStore())
	return !loaded
}

// Get returns the record store for id, if any.
func (r *Registry) Get(id catalog.Ident) (*RecordStore, bool) {
	return r.idents.Load(id)
}

// Has reports whether id is present in the registry.
func (r *Registry) Has(id catalog.Ident) bool {
	_, ok := r.idents.Load(id)
	return ok
}

// Drop removes id from the registry. It reports false if id was absent.
func (r *Registry) Drop(id catalog.Ident) bool {
	_, existed := r.idents.LoadAndDelete(id)
	return existed
}

// All returns every ident currently in the registry, in an unspecified
// order.
func (r *Registry) All() []catalog.Ident {
	out := make([]catalog.Ident, 0, r.idents.Size())
	r.idents.Range(func(id catalog.Ident, _ *RecordStore) bool {
		out = append(out, id)
		return true
	})
	return out
}
