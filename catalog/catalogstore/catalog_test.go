package catalogstore_test

import (
	"testing"

	"github.com/nsdb/catalogcoord/catalog"
	"github.com/nsdb/catalogcoord/catalog/catalogstore"
	"github.com/nsdb/catalogcoord/catalog/engine/memkv"
)

func newInitedCatalog(t *testing.T) (*memkv.Engine, *catalogstore.Catalog) {
	t.Helper()
	eng := memkv.NewEngine(memkv.DefaultOptions())

	txn := eng.NewRecoveryUnit()
	if err := eng.CreateGroupedRecordStore(txn, catalog.ReservedCatalogIdent, catalog.Namespace(catalog.ReservedCatalogIdent), catalog.CollectionOptions{}, 0); err != nil {
		t.Fatalf("creating reserved ident: %v", err)
	}

	cat := catalogstore.New(eng, catalogstore.Options{})
	if err := cat.Init(txn); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	return eng, cat
}

func TestCatalogPutGetRemove(t *testing.T) {
	eng, cat := newInitedCatalog(t)

	ns := catalog.NewNamespace("db", "coll")
	meta := catalog.CollectionMetadata{Ident: "collection-1"}

	txn := eng.NewRecoveryUnit()
	if err := cat.PutCollection(txn, ns, meta); err != nil {
		t.Fatalf("PutCollection: %v", err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	got, ok := cat.GetMetadata(ns)
	if !ok {
		t.Fatalf("GetMetadata(%q) not found after PutCollection", ns)
	}
	if got.Ident != meta.Ident {
		t.Errorf("GetMetadata(%q).Ident = %q, want %q", ns, got.Ident, meta.Ident)
	}

	txn = eng.NewRecoveryUnit()
	if err := cat.RemoveCollection(txn, ns); err != nil {
		t.Fatalf("RemoveCollection: %v", err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if _, ok := cat.GetMetadata(ns); ok {
		t.Errorf("GetMetadata(%q) still found after RemoveCollection", ns)
	}
}

func TestCatalogInitReloadsFromStore(t *testing.T) {
	eng, cat := newInitedCatalog(t)

	ns := catalog.NewNamespace("db", "coll")
	meta := catalog.CollectionMetadata{Ident: "collection-1", Indexes: []catalog.IndexDescriptor{{Name: "_id_", Ident: "index-1"}}}

	txn := eng.NewRecoveryUnit()
	if err := cat.PutCollection(txn, ns, meta); err != nil {
		t.Fatalf("PutCollection: %v", err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	reloaded := catalogstore.New(eng, catalogstore.Options{})
	txn = eng.NewRecoveryUnit()
	if err := reloaded.Init(txn); err != nil {
		t.Fatalf("Init on reload: %v", err)
	}
	txn.Abort()

	got, ok := reloaded.GetMetadata(ns)
	if !ok {
		t.Fatalf("reloaded catalog missing %q", ns)
	}
	if len(got.Indexes) != 1 || got.Indexes[0].Ident != "index-1" {
		t.Errorf("reloaded metadata mismatch: %+v", got)
	}
}

func TestCatalogPutCollectionRollbackRestoresPriorEntry(t *testing.T) {
	eng, cat := newInitedCatalog(t)

	ns := catalog.NewNamespace("db", "coll")
	original := catalog.CollectionMetadata{Ident: "collection-1"}

	txn := eng.NewRecoveryUnit()
	if err := cat.PutCollection(txn, ns, original); err != nil {
		t.Fatalf("PutCollection: %v", err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	txn = eng.NewRecoveryUnit()
	replacement := catalog.CollectionMetadata{Ident: "collection-1", Indexes: []catalog.IndexDescriptor{{Name: "_id_", Ident: "index-1"}}}
	if err := cat.PutCollection(txn, ns, replacement); err != nil {
		t.Fatalf("PutCollection: %v", err)
	}
	txn.Abort()

	got, ok := cat.GetMetadata(ns)
	if !ok {
		t.Fatalf("GetMetadata(%q) missing after aborted PutCollection", ns)
	}
	if len(got.Indexes) != 0 {
		t.Errorf("aborted PutCollection was not rolled back in-memory: %+v", got)
	}
}

func TestCatalogPutCollectionRollbackOnFreshEntryRemovesIt(t *testing.T) {
	eng, cat := newInitedCatalog(t)

	ns := catalog.NewNamespace("db", "coll")
	txn := eng.NewRecoveryUnit()
	if err := cat.PutCollection(txn, ns, catalog.CollectionMetadata{Ident: "collection-1"}); err != nil {
		t.Fatalf("PutCollection: %v", err)
	}
	txn.Abort()

	if _, ok := cat.GetMetadata(ns); ok {
		t.Errorf("GetMetadata(%q) still present after aborting its only PutCollection", ns)
	}
}

func TestCatalogRemoveCollectionRollbackRestoresEntry(t *testing.T) {
	eng, cat := newInitedCatalog(t)

	ns := catalog.NewNamespace("db", "coll")
	meta := catalog.CollectionMetadata{Ident: "collection-1"}

	txn := eng.NewRecoveryUnit()
	if err := cat.PutCollection(txn, ns, meta); err != nil {
		t.Fatalf("PutCollection: %v", err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	txn = eng.NewRecoveryUnit()
	if err := cat.RemoveCollection(txn, ns); err != nil {
		t.Fatalf("RemoveCollection: %v", err)
	}
	txn.Abort()

	got, ok := cat.GetMetadata(ns)
	if !ok {
		t.Fatalf("GetMetadata(%q) missing after aborted RemoveCollection", ns)
	}
	if got.Ident != meta.Ident {
		t.Errorf("GetMetadata(%q) = %+v, want restored %+v", ns, got, meta)
	}
}

func TestCatalogGetAllIdentsExcludesReserved(t *testing.T) {
	eng, cat := newInitedCatalog(t)

	ns := catalog.NewNamespace("db", "coll")
	meta := catalog.CollectionMetadata{Ident: "collection-1"}

	txn := eng.NewRecoveryUnit()
	if err := cat.PutCollection(txn, ns, meta); err != nil {
		t.Fatalf("PutCollection: %v", err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	idents := catalog.NewIdentSet(cat.GetAllIdents())
	if idents.Has(catalog.ReservedCatalogIdent) {
		t.Errorf("GetAllIdents leaked the reserved catalog ident")
	}
	if !idents.Has("collection-1") {
		t.Errorf("GetAllIdents missing %q", "collection-1")
	}
}
