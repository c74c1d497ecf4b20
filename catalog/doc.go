// Package catalog defines the shared vocabulary of the catalog coordinator:
// namespaces, idents, and the metadata record the coordinator persists for
// every collection it tracks.
//
// The package deliberately holds no behavior beyond simple predicates and
// accessors. It exists so that catalogstore, directory, reconcile, dropplan
// and coordinator can all agree on the same NS/Ident/CollectionMetadata
// shapes without importing each other.
//
// Key Components:
//
//   - Namespace: a "db.collection" string, with DB()/Collection() accessors
//     and a DropPending() predicate used by the reaper naming convention.
//
//   - Ident: an opaque backend-chosen storage-object identifier, with an
//     IsUserData() predicate distinguishing collection/index tables from
//     internal idents such as the reserved catalog ident.
//
//   - CollectionMetadata: the per-namespace record stored inside the
//     reserved catalog ident (collection ident, index descriptors, options,
//     max prefix).
package catalog
