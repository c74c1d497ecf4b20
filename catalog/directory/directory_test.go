package directory_test

import (
	"testing"

	"github.com/nsdb/catalogcoord/catalog"
	"github.com/nsdb/catalogcoord/catalog/directory"
	"github.com/nsdb/catalogcoord/catalog/engine"
	"github.com/nsdb/catalogcoord/catalog/engine/memkv"
)

type fakeEntry struct {
	name  string
	empty bool
}

func (e *fakeEntry) Name() string { return e.name }
func (e *fakeEntry) InitCollection(engine.Txn, catalog.Namespace, bool) error {
	return nil
}
func (e *fakeEntry) ReinitCollectionAfterRepair(engine.Txn, catalog.Namespace) error {
	return nil
}
func (e *fakeEntry) GetCollectionNamespaces() []catalog.Namespace { return nil }
func (e *fakeEntry) DropCollection(engine.Txn, catalog.Namespace) error {
	return nil
}
func (e *fakeEntry) IsEmpty() bool { return e.empty }

type fakeHost struct {
	eng engine.KvEngine
}

func (h *fakeHost) Engine() engine.KvEngine { return h.eng }

func newDirectory(t *testing.T) (*directory.Directory, *fakeHost) {
	t.Helper()
	host := &fakeHost{eng: memkv.NewEngine(memkv.DefaultOptions())}
	factory := func(dbName string, h directory.CoordinatorHandle) directory.DbCatalogEntry {
		return &fakeEntry{name: dbName}
	}
	return directory.New(factory, host), host
}

func TestDirectoryGetOrCreateIsStable(t *testing.T) {
	dir, _ := newDirectory(t)

	a := dir.GetOrCreate("db1")
	b := dir.GetOrCreate("db1")
	if a != b {
		t.Errorf("GetOrCreate returned different instances for the same database name")
	}
}

func TestDirectoryRemoveForDropRollback(t *testing.T) {
	dir, host := newDirectory(t)

	original := dir.GetOrCreate("db1")

	txn := host.eng.NewRecoveryUnit()
	entry, ok := dir.RemoveForDrop(txn, "db1")
	if !ok || entry != original {
		t.Fatalf("RemoveForDrop did not return the original entry")
	}

	if _, ok := dir.Lookup("db1"); ok {
		t.Errorf("entry still present in directory before rollback")
	}

	txn.Abort()

	got, ok := dir.Lookup("db1")
	if !ok || got != original {
		t.Errorf("aborting the transaction did not reinstate the original entry")
	}
}

func TestDirectoryRemoveForDropCommit(t *testing.T) {
	dir, host := newDirectory(t)
	dir.GetOrCreate("db1")

	txn := host.eng.NewRecoveryUnit()
	if _, ok := dir.RemoveForDrop(txn, "db1"); !ok {
		t.Fatalf("RemoveForDrop reported not found")
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if _, ok := dir.Lookup("db1"); ok {
		t.Errorf("entry still present in directory after commit")
	}
}

func TestDirectoryListNonEmpty(t *testing.T) {
	dir, _ := newDirectory(t)

	busy := dir.GetOrCreate("busy").(*fakeEntry)
	busy.empty = false
	idle := dir.GetOrCreate("idle").(*fakeEntry)
	idle.empty = true

	got := dir.ListNonEmpty()
	if len(got) != 1 || got[0] != "busy" {
		t.Errorf("ListNonEmpty() = %v, want [busy]", got)
	}
}
