package dropplan_test

import (
	"testing"

	"github.com/nsdb/catalogcoord/catalog"
	"github.com/nsdb/catalogcoord/catalog/catalogstore"
	"github.com/nsdb/catalogcoord/catalog/directory"
	"github.com/nsdb/catalogcoord/catalog/directory/testdb"
	"github.com/nsdb/catalogcoord/catalog/dropplan"
	"github.com/nsdb/catalogcoord/catalog/engine"
	"github.com/nsdb/catalogcoord/catalog/engine/memkv"
)

type noClock struct{}

func (noClock) ClusterTimestamp() (engine.Timestamp, bool) { return 0, false }

type fakeHost struct{ eng engine.KvEngine }

func (h *fakeHost) Engine() engine.KvEngine { return h.eng }

func newFixture(t *testing.T) (*memkv.Engine, *catalogstore.Catalog, *directory.Directory) {
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

	dir := directory.New(testdb.NewFactory(cat), &fakeHost{eng: eng})
	return eng, cat, dir
}

func createNS(t *testing.T, eng engine.KvEngine, dir *directory.Directory, ns catalog.Namespace) {
	t.Helper()
	entry := dir.GetOrCreate(ns.DB()).(*testdb.Entry)
	meta := catalog.CollectionMetadata{Ident: catalog.Ident("collection-" + string(ns))}

	txn := eng.NewRecoveryUnit()
	if err := entry.CreateCollection(txn, ns, meta); err != nil {
		t.Fatalf("CreateCollection(%q): %v", ns, err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func TestPlanExecuteDropsBothPhases(t *testing.T) {
	eng, _, dir := newFixture(t)

	live := catalog.NewNamespace("d", "a")
	pending := catalog.NewNamespace("d", "system.drop.1i0t0.b")
	createNS(t, eng, dir, live)
	createNS(t, eng, dir, pending)

	entry, ok := dir.Lookup("d")
	if !ok {
		t.Fatalf("no directory entry for %q", "d")
	}

	plan := dropplan.New(eng, dir, noClock{})
	outerTxn := eng.NewRecoveryUnit()

	if err := plan.Execute(outerTxn, "d", entry); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if err := outerTxn.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if !entry.IsEmpty() {
		t.Errorf("entry still reports namespaces after Execute")
	}
	if _, ok := dir.Lookup("d"); ok {
		t.Errorf("directory still has an entry for %q after Execute", "d")
	}
}

func TestPlanExecuteAbortReinstatesDirectoryEntry(t *testing.T) {
	eng, _, dir := newFixture(t)

	ns := catalog.NewNamespace("d", "a")
	createNS(t, eng, dir, ns)

	entry, _ := dir.Lookup("d")
	plan := dropplan.New(eng, dir, noClock{})
	outerTxn := eng.NewRecoveryUnit()

	if err := plan.Execute(outerTxn, "d", entry); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	outerTxn.Abort()

	got, ok := dir.Lookup("d")
	if !ok || got != entry {
		t.Errorf("aborting the outer transaction did not reinstate the original entry")
	}
}

func TestPlanExecutePhaseASafetyViolation(t *testing.T) {
	eng, _, dir := newFixture(t)

	replicated := catalog.NewNamespace("d", "a")
	createNS(t, eng, dir, replicated)

	entry, _ := dir.Lookup("d")
	plan := dropplan.New(eng, dir, noClock{})
	plan.SetInitialDataTimestamp(1)

	outerTxn := eng.NewRecoveryUnit()
	defer outerTxn.Abort()

	err := plan.Execute(outerTxn, "d", entry)
	if err == nil {
		t.Fatalf("expected a fatal error for a replicated namespace reaching Phase A")
	}
	if _, ok := err.(*catalog.FatalError); !ok {
		t.Errorf("expected *catalog.FatalError, got %T: %v", err, err)
	}
}
