package coordinatortest

import (
	"testing"

	"github.com/nsdb/catalogcoord/catalog"
	"github.com/nsdb/catalogcoord/catalog/catalogstore"
	"github.com/nsdb/catalogcoord/catalog/coordinator"
	"github.com/nsdb/catalogcoord/catalog/directory/testdb"
	"github.com/nsdb/catalogcoord/catalog/engine"
)

// EngineFactory creates a new, empty engine instance for one subtest.
// Each subtest gets its own engine so subtests never interfere.
type EngineFactory func() engine.KvEngine

// ClockFactory creates a new engine.LogicalClock. Tests that don't care
// about replication may pass NoClock.
type ClockFactory func() engine.LogicalClock

// noClock is a LogicalClock for a standalone node: it never has a
// cluster time to offer.
type noClock struct{}

func (noClock) ClusterTimestamp() (engine.Timestamp, bool) { return 0, false }

// NoClock is a ClockFactory for a standalone node with no replication.
func NoClock() engine.LogicalClock { return noClock{} }

// RunCoordinatorTests runs the coordinator's scenario and invariant
// suite against engines produced by factory.
func RunCoordinatorTests(t *testing.T, name string, factory EngineFactory, clockFactory ClockFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("FreshStart", func(t *testing.T) {
			testFreshStart(t, factory, clockFactory)
		})
		t.Run("OrphanIdentDropped", func(t *testing.T) {
			testOrphanIdentDropped(t, factory, clockFactory)
		})
		t.Run("MissingCollectionIdentIsUnrecoverable", func(t *testing.T) {
			testMissingCollectionIdentIsUnrecoverable(t, factory, clockFactory)
		})
		t.Run("MissingIndexIdentIsRebuildTarget", func(t *testing.T) {
			testMissingIndexIdentIsRebuildTarget(t, factory, clockFactory)
		})
		t.Run("DropDatabaseMixedPhases", func(t *testing.T) {
			testDropDatabaseMixedPhases(t, factory, clockFactory)
		})
		t.Run("DropDatabaseAbortReinstatesDirectory", func(t *testing.T) {
			testDropDatabaseAbortReinstatesDirectory(t, factory, clockFactory)
		})
	})
}

type harness struct {
	eng   engine.KvEngine
	cat   *catalogstore.Catalog
	coord *coordinator.Coordinator
}

func newHarness(t *testing.T, factory EngineFactory, clockFactory ClockFactory, opts coordinator.Options) *harness {
	t.Helper()
	eng := factory()

	// The Catalog instance is created up front so testdb's factory can
	// close over it; the coordinator reopens and Init()s the very same
	// instance during New.
	cat := catalogstore.New(eng, catalogstore.Options{
		DirectoryPerDB:      opts.DirectoryPerDB,
		DirectoryForIndexes: opts.DirectoryForIndexes,
	})

	coord, err := coordinator.New(eng, opts, testdb.NewFactory(cat), clockFactory(), nil, nil)
	if err != nil {
		t.Fatalf("coordinator.New: %v", err)
	}

	return &harness{eng: eng, cat: cat, coord: coord}
}

// createCollection builds a fresh collection, plus an "_id_" index when
// withIndex is set, and registers it with both the catalog and the database's directory
// entry, mirroring what a real collection-creation path above this
// layer would do inside its own transaction.
func createCollection(t *testing.T, h *harness, ns catalog.Namespace, withIndex bool) {
	t.Helper()
	txn, ok := h.coord.NewTransaction()
	if !ok {
		t.Fatalf("NewTransaction: coordinator already shut down")
	}

	collIdent := h.cat.IdentName(ns, "", ns.Collection())
	if err := h.eng.CreateGroupedRecordStore(txn, collIdent, ns, catalog.CollectionOptions{}, 0); err != nil {
		t.Fatalf("creating collection record store: %v", err)
	}

	meta := catalog.CollectionMetadata{Ident: collIdent}
	if withIndex {
		idxIdent := h.cat.IdentName(ns, "_id_", "_id_")
		if err := h.eng.CreateGroupedRecordStore(txn, idxIdent, ns, catalog.CollectionOptions{}, 0); err != nil {
			t.Fatalf("creating index record store: %v", err)
		}
		meta.Indexes = append(meta.Indexes, catalog.IndexDescriptor{Name: "_id_", Ident: idxIdent})
	}

	if err := h.cat.PutCollection(txn, ns, meta); err != nil {
		t.Fatalf("PutCollection: %v", err)
	}

	entry, ok := h.coord.GetDatabaseCatalogEntry(ns.DB()).(*testdb.Entry)
	if !ok {
		t.Fatalf("directory entry for %q is not *testdb.Entry", ns.DB())
	}
	if err := entry.InitCollection(txn, ns, false); err != nil {
		t.Fatalf("InitCollection: %v", err)
	}

	if err := txn.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func testFreshStart(t *testing.T, factory EngineFactory, clockFactory ClockFactory) {
	h := newHarness(t, factory, clockFactory, coordinator.Options{})

	if got := h.coord.ListDatabases(); len(got) != 0 {
		t.Errorf("fresh coordinator reports databases: %v", got)
	}

	txn, ok := h.coord.NewTransaction()
	if !ok {
		t.Fatalf("NewTransaction failed on fresh coordinator")
	}
	defer txn.Abort()

	targets, err := h.coord.Reconcile(txn)
	if err != nil {
		t.Fatalf("Reconcile on empty catalog: %v", err)
	}
	if len(targets) != 0 {
		t.Errorf("fresh catalog reported rebuild targets: %v", targets)
	}
}

func testOrphanIdentDropped(t *testing.T, factory EngineFactory, clockFactory ClockFactory) {
	h := newHarness(t, factory, clockFactory, coordinator.Options{})

	ns := catalog.NewNamespace("db", "kept")
	createCollection(t, h, ns, false)

	txn, ok := h.coord.NewTransaction()
	if !ok {
		t.Fatalf("NewTransaction failed")
	}
	orphan := catalog.Ident("collection-orphan")
	if err := h.eng.CreateGroupedRecordStore(txn, orphan, catalog.NewNamespace("db", "orphan"), catalog.CollectionOptions{}, 0); err != nil {
		t.Fatalf("creating orphan ident: %v", err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	readTxn, ok := h.coord.NewTransaction()
	if !ok {
		t.Fatalf("NewTransaction failed")
	}
	defer readTxn.Abort()

	if _, err := h.coord.Reconcile(readTxn); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	if h.eng.HasIdent(readTxn, orphan) {
		t.Errorf("orphan ident %q survived reconciliation", orphan)
	}
	if !h.eng.HasIdent(readTxn, mustCollectionIdent(t, h, ns)) {
		t.Errorf("reconciliation dropped a non-orphan ident")
	}
}

func testMissingCollectionIdentIsUnrecoverable(t *testing.T, factory EngineFactory, clockFactory ClockFactory) {
	h := newHarness(t, factory, clockFactory, coordinator.Options{})

	ns := catalog.NewNamespace("db", "broken")
	createCollection(t, h, ns, false)

	ident := mustCollectionIdent(t, h, ns)
	txn, ok := h.coord.NewTransaction()
	if !ok {
		t.Fatalf("NewTransaction failed")
	}
	if err := h.eng.DropIdent(txn, ident); err != nil {
		t.Fatalf("dropping ident directly: %v", err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	readTxn, ok := h.coord.NewTransaction()
	if !ok {
		t.Fatalf("NewTransaction failed")
	}
	defer readTxn.Abort()

	_, err := h.coord.Reconcile(readTxn)
	if err == nil {
		t.Fatalf("expected Reconcile to fail after removing a live collection's ident")
	}
	if !catalog.ErrUnrecoverableRollback.Has(err) {
		t.Errorf("expected an ErrUnrecoverableRollback, got %v", err)
	}
}

func testMissingIndexIdentIsRebuildTarget(t *testing.T, factory EngineFactory, clockFactory ClockFactory) {
	h := newHarness(t, factory, clockFactory, coordinator.Options{})

	ns := catalog.NewNamespace("db", "indexed")
	createCollection(t, h, ns, true)

	meta, ok := h.cat.GetMetadata(ns)
	if !ok || len(meta.Indexes) == 0 {
		t.Fatalf("expected collection metadata with an index")
	}
	idxIdent := meta.Indexes[0].Ident

	txn, ok := h.coord.NewTransaction()
	if !ok {
		t.Fatalf("NewTransaction failed")
	}
	if err := h.eng.DropIdent(txn, idxIdent); err != nil {
		t.Fatalf("dropping index ident directly: %v", err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	readTxn, ok := h.coord.NewTransaction()
	if !ok {
		t.Fatalf("NewTransaction failed")
	}
	defer readTxn.Abort()

	targets, err := h.coord.Reconcile(readTxn)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(targets) != 1 || targets[0].NS != ns || targets[0].IndexName != meta.Indexes[0].Name {
		t.Errorf("expected exactly one rebuild target for %q, got %v", ns, targets)
	}
}

func testDropDatabaseMixedPhases(t *testing.T, factory EngineFactory, clockFactory ClockFactory) {
	h := newHarness(t, factory, clockFactory, coordinator.Options{})

	live := catalog.NewNamespace("d", "a")
	pending := catalog.NewNamespace("d", "system.drop.12345i0t0.b")
	createCollection(t, h, live, false)
	createCollection(t, h, pending, false)

	txn, ok := h.coord.NewTransaction()
	if !ok {
		t.Fatalf("NewTransaction failed")
	}

	if err := h.coord.DropDatabase(txn, "d"); err != nil {
		t.Fatalf("DropDatabase: %v", err)
	}

	if err := txn.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if _, ok := h.cat.GetMetadata(live); ok {
		t.Errorf("phase A namespace %q still has catalog metadata", live)
	}
	if _, ok := h.cat.GetMetadata(pending); ok {
		t.Errorf("phase B namespace %q still has catalog metadata", pending)
	}

	for _, dbName := range h.coord.ListDatabases() {
		if dbName == "d" {
			t.Errorf("database %q still reported as non-empty after DropDatabase", dbName)
		}
	}
}

func testDropDatabaseAbortReinstatesDirectory(t *testing.T, factory EngineFactory, clockFactory ClockFactory) {
	h := newHarness(t, factory, clockFactory, coordinator.Options{})

	ns := catalog.NewNamespace("d", "a")
	createCollection(t, h, ns, false)

	before := h.coord.GetDatabaseCatalogEntry("d")

	txn, ok := h.coord.NewTransaction()
	if !ok {
		t.Fatalf("NewTransaction failed")
	}
	if err := h.coord.DropDatabase(txn, "d"); err != nil {
		t.Fatalf("DropDatabase: %v", err)
	}
	txn.Abort()

	after := h.coord.GetDatabaseCatalogEntry("d")
	if before != after {
		t.Errorf("aborting DropDatabase did not reinstate the original directory entry instance")
	}
}

func mustCollectionIdent(t *testing.T, h *harness, ns catalog.Namespace) catalog.Ident {
	t.Helper()
	id, ok := h.cat.GetCollectionIdent(ns)
	if !ok {
		t.Fatalf("no collection ident for %q", ns)
	}
	return id
}
