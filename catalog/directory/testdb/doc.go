// Package testdb is a reference DbCatalogEntry implementation used by
// catalog/coordinatortest to exercise the coordinator end to end,
// mirroring how the teacher's lib/store/lstore.storeImpl is a thin,
// non-distributed reference implementation of store.IStore that
// exists purely so the interface has something concrete to test
// against.
package testdb
