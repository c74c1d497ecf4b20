package catalog

import "strings"

// dropPendingMarker is the naming-convention substring the replication
// reaper injects into a namespace once it has renamed a collection aside
// for deferred reclamation, e.g. "mydb.system.drop.12345i67t.orders".
const dropPendingMarker = ".system.drop."

// ReservedCatalogIdent is the one internal ident that stores the Catalog
// itself. It is never a user-data ident and never appears in
// Catalog.getAllIdents.
const ReservedCatalogIdent Ident = "_mdb_catalog"

// LocalDBName is the database name reserved for non-replicated,
// node-local state (oplog, replication bookkeeping, ...).
const LocalDBName = "local"

// Namespace identifies a user-visible collection as "db.collection".
type Namespace string

// NewNamespace joins a database and collection name into a Namespace.
func NewNamespace(db, collection string) Namespace {
	return Namespace(db + "." + collection)
}

// DB returns the database-name prefix of the namespace, i.e. everything
// up to the first '.'.
func (ns Namespace) DB() string {
	db, _, _ := strings.Cut(string(ns), ".")
	return db
}

// Collection returns everything after the first '.'.
func (ns Namespace) Collection() string {
	_, coll, _ := strings.Cut(string(ns), ".")
	return coll
}

// String implements fmt.Stringer.
func (ns Namespace) String() string {
	return string(ns)
}

// DropPending reports whether this namespace has already been renamed
// aside by the replication reaper and is only waiting for reclamation.
func (ns Namespace) DropPending() bool {
	return strings.Contains(string(ns), dropPendingMarker)
}

// IsTmpMapReduce reports whether the namespace is a temporary
// map-reduce output collection ("tmp.mr.*"), a known non-replicated
// special case even though it lives outside the "local" database.
func (ns Namespace) IsTmpMapReduce() bool {
	return strings.HasPrefix(ns.Collection(), "tmp.mr")
}

// IsSystemIndexes reports whether the namespace is the legacy
// "system.indexes" pseudo-collection.
func (ns Namespace) IsSystemIndexes() bool {
	return ns.Collection() == "system.indexes"
}

// IsSystemProfile reports whether the namespace is a database's
// "system.profile" collection, populated by the profiler and never
// replicated even outside "local".
func (ns Namespace) IsSystemProfile() bool {
	return ns.Collection() == "system.profile"
}

// IsReplicated reports whether writes to this namespace are expected to
// flow through the replication oplog. Namespaces in the "local" database,
// temporary map-reduce output, the legacy system.indexes pseudo
// collection and system.profile collections are never replicated.
func (ns Namespace) IsReplicated() bool {
	if ns.DB() == LocalDBName {
		return false
	}
	if ns.IsTmpMapReduce() || ns.IsSystemIndexes() || ns.IsSystemProfile() {
		return false
	}
	return true
}
