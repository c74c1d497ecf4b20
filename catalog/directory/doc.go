// Package directory implements the in-memory DbDirectory: the
// mutex-guarded map from database name to owned DbCatalogEntry, with
// rollback-aware removal for dropDatabase.
//
// DbCatalogEntry itself is an external collaborator (the per-database
// catalog object with per-collection operations); this package only
// declares the interface it observes, mirroring how the teacher's
// lib/store package declares IStore without implementing every
// backend.
package directory
