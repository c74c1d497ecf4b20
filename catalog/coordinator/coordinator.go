package coordinator

import (
	"fmt"
	"sync"

	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"

	"github.com/nsdb/catalogcoord/catalog"
	"github.com/nsdb/catalogcoord/catalog/catalogstore"
	"github.com/nsdb/catalogcoord/catalog/directory"
	"github.com/nsdb/catalogcoord/catalog/dropplan"
	"github.com/nsdb/catalogcoord/catalog/engine"
	"github.com/nsdb/catalogcoord/catalog/reconcile"
)

var log = logger.GetLogger("coordinator")

// PrefixAllocator publishes the highest collection prefix observed at
// startup to whatever process-wide allocator hands out fresh prefixes
// for newly created collections. A nil PrefixAllocator is valid; New
// simply skips publication.
type PrefixAllocator interface {
	Publish(maxPrefix int64)
}

// Options configures the coordinator's construction-time behavior.
type Options struct {
	// DirectoryPerDB requires engine.CapDirectoryPerDB.
	DirectoryPerDB bool
	// DirectoryForIndexes namespaces index idents under an "index/"
	// segment, independently of DirectoryPerDB.
	DirectoryForIndexes bool
	// ForRepair runs an already-present reserved catalog ident through
	// the engine's repair path during New, and passes forRepair=true to
	// every enumerated collection's InitCollection. New does not call
	// the engine's repair on collection idents itself.
	ForRepair bool
}

// Coordinator is the facade a database server holds: it owns the
// catalog, the directory of open databases, the reconciler and the
// drop plan, and is the only one of the six components client code
// talks to directly.
type Coordinator struct {
	eng   engine.KvEngine
	clock engine.LogicalClock
	opts  Options

	cat        *catalogstore.Catalog
	dir        *directory.Directory
	reconciler *reconcile.Reconciler
	plan       *dropplan.Plan

	metrics *coordinatorMetrics

	mu                   sync.Mutex
	inBackup             bool
	shutDown             bool
	initialDataTimestamp engine.Timestamp
}

// New wires up a Coordinator over eng: it validates opts against the
// engine's reported capabilities, creates or repairs the reserved
// catalog ident, loads the Catalog, and re-registers every collection
// the Catalog already knows about with a directory entry built by
// factory. Everything up to and including the reserved-ident creation
// runs inside one internal transaction, committed at the end of New;
// a returned error means that transaction was aborted and nothing was
// persisted.
func New(eng engine.KvEngine, opts Options, factory directory.Factory, clock engine.LogicalClock, allocator PrefixAllocator, metricSet *metrics.Set) (*Coordinator, error) {
	if opts.DirectoryPerDB && !eng.Capabilities().Has(engine.CapDirectoryPerDB) {
		return nil, catalog.NewFatal(catalog.FatalDirectoryPerDBUnsupported,
			"directoryPerDB requested but the engine does not report CapDirectoryPerDB")
	}

	c := &Coordinator{
		eng:   eng,
		clock: clock,
		opts:  opts,
	}
	c.metrics = newCoordinatorMetrics(metricSet, c.directorySize)

	txn := eng.NewRecoveryUnit()

	if !eng.HasIdent(txn, catalog.ReservedCatalogIdent) {
		err := eng.CreateGroupedRecordStore(txn, catalog.ReservedCatalogIdent,
			catalog.Namespace(catalog.ReservedCatalogIdent), catalog.CollectionOptions{}, 0)
		if err != nil {
			txn.Abort()
			return nil, catalog.NewFatal(catalog.FatalCatalogIdentCreateFailed,
				"creating reserved catalog ident: %v", err)
		}
	} else if opts.ForRepair {
		if err := eng.RepairIdent(txn, catalog.ReservedCatalogIdent); err != nil {
			txn.Abort()
			return nil, catalog.NewFatal(catalog.FatalCatalogIdentCreateFailed,
				"repairing reserved catalog ident: %v", err)
		}
	}

	cat := catalogstore.New(eng, catalogstore.Options{
		DirectoryPerDB:      opts.DirectoryPerDB,
		DirectoryForIndexes: opts.DirectoryForIndexes,
	})
	if err := cat.Init(txn); err != nil {
		txn.Abort()
		return nil, err
	}
	c.cat = cat
	c.dir = directory.New(factory, c)
	c.reconciler = reconcile.New(eng, cat)
	c.plan = dropplan.New(eng, c.dir, clock)

	var maxPrefix int64
	for _, ns := range cat.GetAllCollections() {
		entry := c.dir.GetOrCreate(ns.DB())
		if err := entry.InitCollection(txn, ns, opts.ForRepair); err != nil {
			txn.Abort()
			return nil, fmt.Errorf("re-registering namespace %q: %w", ns, err)
		}
		if meta, ok := cat.GetMetadata(ns); ok && meta.MaxPrefix > maxPrefix {
			maxPrefix = meta.MaxPrefix
		}
	}

	if allocator != nil {
		allocator.Publish(maxPrefix)
	}

	if err := txn.Commit(); err != nil {
		return nil, fmt.Errorf("committing coordinator startup transaction: %w", err)
	}

	log.Infof("coordinator: started, %d database(s), max prefix %d", len(c.dir.ListNonEmpty()), maxPrefix)
	return c, nil
}

// Engine implements directory.CoordinatorHandle.
func (c *Coordinator) Engine() engine.KvEngine {
	return c.eng
}

func (c *Coordinator) directorySize() float64 {
	return float64(len(c.dir.ListNonEmpty()))
}

// Reconcile runs the one-shot catalog/engine ident reconciliation over
// readTxn and returns the indexes that must be rebuilt.
func (c *Coordinator) Reconcile(readTxn engine.Txn) ([]reconcile.RebuildTarget, error) {
	before := len(c.eng.GetAllIdents(readTxn))
	targets, err := c.reconciler.Run(readTxn)
	if err != nil {
		return nil, err
	}
	after := len(c.eng.GetAllIdents(readTxn))
	orphansDropped := before - after
	if orphansDropped < 0 {
		orphansDropped = 0
	}
	c.metrics.observeReconcile(orphansDropped, len(targets))
	return targets, nil
}

// NewTransaction returns a fresh recovery unit, or ok=false once
// CleanShutdown has run.
func (c *Coordinator) NewTransaction() (engine.Txn, bool) {
	c.mu.Lock()
	down := c.shutDown
	c.mu.Unlock()
	if down {
		return nil, false
	}
	return c.eng.NewRecoveryUnit(), true
}

// ListDatabases returns the names of every non-empty database.
func (c *Coordinator) ListDatabases() []string {
	return c.dir.ListNonEmpty()
}

// GetDatabaseCatalogEntry returns dbName's directory entry, creating
// one lazily if it does not yet exist.
func (c *Coordinator) GetDatabaseCatalogEntry(dbName string) directory.DbCatalogEntry {
	return c.dir.GetOrCreate(dbName)
}

// CloseDatabase releases any in-process resources associated with
// dbName without dropping its data. The directory holds no closeable
// per-database resource of its own, so this is a no-op that always
// reports success.
func (c *Coordinator) CloseDatabase(dbName string) bool {
	return true
}

// DropDatabase drops every collection dbName reports, in two phases,
// and removes its directory entry under a rollback change registered
// on txn. It reports catalog.ErrNamespaceNotFound if dbName has no
// entry.
func (c *Coordinator) DropDatabase(txn engine.Txn, dbName string) error {
	entry, ok := c.dir.Lookup(dbName)
	if !ok {
		return catalog.ErrNamespaceNotFound.New("database %q", dbName)
	}

	var phaseACount, phaseBCount int
	for _, ns := range entry.GetCollectionNamespaces() {
		if ns.DropPending() {
			phaseBCount++
		} else {
			phaseACount++
		}
	}

	err := c.plan.Execute(txn, dbName, entry)
	c.metrics.observeDropDatabase(phaseACount, phaseBCount)
	return err
}

// RepairRecordStore repairs ns's backing ident and reinitializes its
// directory entry from the repaired store.
func (c *Coordinator) RepairRecordStore(txn engine.Txn, ns catalog.Namespace) error {
	ident, ok := c.cat.GetCollectionIdent(ns)
	if !ok {
		return catalog.ErrNamespaceNotFound.New("namespace %q", ns)
	}
	if err := c.eng.RepairIdent(txn, ident); err != nil {
		return fmt.Errorf("repairing ident %q for %q: %w", ident, ns, err)
	}
	entry, ok := c.dir.Lookup(ns.DB())
	if !ok {
		return catalog.ErrNamespaceNotFound.New("database %q", ns.DB())
	}
	return entry.ReinitCollectionAfterRepair(txn, ns)
}

// RepairDatabase repairs every collection dbName currently reports.
// It stops at the first failure and returns which namespace it was
// working on when it failed.
func (c *Coordinator) RepairDatabase(txn engine.Txn, dbName string) error {
	entry, ok := c.dir.Lookup(dbName)
	if !ok {
		return catalog.ErrNamespaceNotFound.New("database %q", dbName)
	}
	for _, ns := range entry.GetCollectionNamespaces() {
		if err := c.RepairRecordStore(txn, ns); err != nil {
			return fmt.Errorf("repairing %q: %w", ns, err)
		}
	}
	return nil
}

// BeginBackup puts the engine into backup mode. It reports
// ErrBadValue if backup mode is already in progress.
func (c *Coordinator) BeginBackup(txn engine.Txn) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inBackup {
		return catalog.ErrBadValue.New("beginBackup called while a backup is already in progress")
	}
	if err := c.eng.BeginBackup(txn); err != nil {
		return err
	}
	c.inBackup = true
	return nil
}

// EndBackup ends backup mode started by BeginBackup. It is fatal to
// call without a matching BeginBackup: the caller's own bookkeeping
// is expected to prevent that, so reaching it here is an invariant
// breach rather than a recoverable condition.
func (c *Coordinator) EndBackup(txn engine.Txn) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.inBackup {
		return catalog.NewFatal(catalog.FatalBackupNotInProgress, "endBackup called without a matching beginBackup")
	}
	if err := c.eng.EndBackup(txn); err != nil {
		return err
	}
	c.inBackup = false
	return nil
}

// SetStableTimestamp forwards to the engine.
func (c *Coordinator) SetStableTimestamp(ts engine.Timestamp) {
	c.eng.SetStableTimestamp(ts)
}

// SetOldestTimestamp forwards to the engine.
func (c *Coordinator) SetOldestTimestamp(ts engine.Timestamp) {
	c.eng.SetOldestTimestamp(ts)
}

// SetInitialDataTimestamp forwards to the engine and caches ts for the
// drop plan's Phase A safety assertion.
func (c *Coordinator) SetInitialDataTimestamp(ts engine.Timestamp) {
	c.mu.Lock()
	c.initialDataTimestamp = ts
	c.mu.Unlock()
	c.eng.SetInitialDataTimestamp(ts)
	c.plan.SetInitialDataTimestamp(ts)
}

// RecoverToStableTimestamp forwards to the engine.
func (c *Coordinator) RecoverToStableTimestamp() (engine.Timestamp, error) {
	return c.eng.RecoverToStableTimestamp()
}

// SupportsRecoverToStableTimestamp forwards to the engine.
func (c *Coordinator) SupportsRecoverToStableTimestamp() bool {
	return c.eng.SupportsRecoverToStableTimestamp()
}

// SupportsReadConcernSnapshot forwards to the engine.
func (c *Coordinator) SupportsReadConcernSnapshot() bool {
	return c.eng.SupportsReadConcernSnapshot()
}

// ReplicationBatchIsComplete forwards to the engine.
func (c *Coordinator) ReplicationBatchIsComplete() bool {
	return c.eng.ReplicationBatchIsComplete()
}

// IsDurable forwards to the engine.
func (c *Coordinator) IsDurable() bool {
	return c.eng.IsDurable()
}

// IsEphemeral forwards to the engine.
func (c *Coordinator) IsEphemeral() bool {
	return c.eng.IsEphemeral()
}

// GetSnapshotManager forwards to the engine.
func (c *Coordinator) GetSnapshotManager() engine.SnapshotManager {
	return c.eng.GetSnapshotManager()
}

// FlushAllFiles forwards to the engine.
func (c *Coordinator) FlushAllFiles(txn engine.Txn, sync bool) error {
	return c.eng.FlushAllFiles(txn, sync)
}

// SetJournalListener forwards to the engine.
func (c *Coordinator) SetJournalListener(jl engine.JournalListener) {
	c.eng.SetJournalListener(jl)
}

// CleanShutdown destroys every directory entry, releases the engine
// and marks the coordinator so that later NewTransaction calls report
// ok=false. It does not destroy the underlying engine value; the host
// retains ownership of the engine across the coordinator's lifetime.
func (c *Coordinator) CleanShutdown() {
	c.mu.Lock()
	if c.shutDown {
		c.mu.Unlock()
		return
	}
	c.shutDown = true
	c.mu.Unlock()

	c.dir.DestroyAll()
	c.eng.Shutdown()
	log.Infof("coordinator: clean shutdown complete")
}
