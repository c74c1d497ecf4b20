package dropplan

import (
	"sync/atomic"

	"github.com/lni/dragonboat/v4/logger"

	"github.com/nsdb/catalogcoord/catalog"
	"github.com/nsdb/catalogcoord/catalog/directory"
	"github.com/nsdb/catalogcoord/catalog/engine"
)

var log = logger.GetLogger("dropplan")

// Plan executes dropDatabase for one database, given its directory
// entry and the outer transaction the caller invoked dropDatabase
// with.
type Plan struct {
	eng   engine.KvEngine
	dir   *directory.Directory
	clock engine.LogicalClock

	// initialDataTimestamp gates the Phase A safety assertion. It is
	// written by the coordinator's SetInitialDataTimestamp and read by
	// Execute, potentially from different goroutines; the sentinel zero
	// value means "not in stable-checkpoint mode".
	initialDataTimestamp atomic.Uint64
}

// New builds a Plan over eng and dir, forwarding commit timestamps from
// clock.
func New(eng engine.KvEngine, dir *directory.Directory, clock engine.LogicalClock) *Plan {
	return &Plan{eng: eng, dir: dir, clock: clock}
}

// SetInitialDataTimestamp caches the coordinator's initial-data
// timestamp for the Phase A safety assertion.
func (p *Plan) SetInitialDataTimestamp(ts engine.Timestamp) {
	p.initialDataTimestamp.Store(uint64(ts))
}

// Execute drops every namespace entry currently reports, partitioned
// into Phase A (untimestamped) and Phase B (timestamped), then removes
// dbName from dir under a rollback change registered on outerTxn.
//
// Both phases always run, in order, regardless of per-collection
// errors within a phase; the first error seen across either phase is
// returned. A fatal invariant breach (the Phase A safety assertion, or
// a non-empty entry after Phase B) is returned immediately and takes
// priority over an accumulated per-collection error.
func (p *Plan) Execute(outerTxn engine.Txn, dbName string, entry directory.DbCatalogEntry) error {
	phaseA, phaseB := partition(entry.GetCollectionNamespaces())

	if engine.Timestamp(p.initialDataTimestamp.Load()).IsSet() {
		for _, ns := range phaseA {
			if violatesPhaseASafety(ns) {
				return catalog.NewFatal(catalog.FatalDropPhaseASafetyViolation,
					"namespace %q is replicated but reached the untimestamped drop phase of dropDatabase(%q)", ns, dbName)
			}
		}
	}

	errA := p.runPhaseA(entry, phaseA)
	errB := p.runPhaseB(outerTxn, dbName, entry, phaseB)

	if !entry.IsEmpty() {
		return catalog.NewFatal(catalog.FatalDropPhaseBNotEmpty,
			"database %q still reports collections after dropDatabase completed", dbName)
	}

	if errA != nil {
		return errA
	}
	return errB
}

// partition splits namespaces into Phase A (not drop-pending) and
// Phase B (drop-pending) sets, preserving relative order.
func partition(namespaces []catalog.Namespace) (phaseA, phaseB []catalog.Namespace) {
	for _, ns := range namespaces {
		if ns.DropPending() {
			phaseB = append(phaseB, ns)
		} else {
			phaseA = append(phaseA, ns)
		}
	}
	return phaseA, phaseB
}

// violatesPhaseASafety reports whether ns should never have survived to
// Phase A while the engine is in stable-checkpoint mode. IsReplicated
// already carves out the known legitimate Phase A survivors (temporary
// map-reduce output, system.indexes, system.profile), so a replicated
// namespace reaching here is always a safety violation.
func violatesPhaseASafety(ns catalog.Namespace) bool {
	return ns.IsReplicated()
}

// runPhaseA drops every Phase A namespace inside its own write
// transaction, without a commit timestamp, attempting every collection
// regardless of individual errors.
func (p *Plan) runPhaseA(entry directory.DbCatalogEntry, namespaces []catalog.Namespace) error {
	if len(namespaces) == 0 {
		return nil
	}

	txn := p.eng.NewRecoveryUnit()
	guard := guardPhaseA(txn)
	defer guard.Release()

	var firstErr error
	for _, ns := range namespaces {
		if err := entry.DropCollection(txn, ns); err != nil {
			log.Warningf("dropplan: phase A failed to drop %q: %v", ns, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		log.Infof("dropplan: phase A dropped %q (untimestamped)", ns)
	}

	// Phase A always attempts to commit its successful drops, even if
	// some collections in the phase failed: a failed drop must not
	// discard the drops that succeeded.
	if err := txn.Commit(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// runPhaseB drops every Phase B namespace inside its own write
// transaction, timestamped per guardPhaseB, then removes dbName from
// the directory under a rollback change registered on outerTxn.
//
// The phase-local transaction inherits outerTxn's commit timestamp
// before guardPhaseB runs, so a secondary applying an oplog entry
// (which sets a commit timestamp on outerTxn before calling Execute)
// has that timestamp carried onto the timestamped drops instead of
// being replaced by the logical clock's value.
func (p *Plan) runPhaseB(outerTxn engine.Txn, dbName string, entry directory.DbCatalogEntry, namespaces []catalog.Namespace) error {
	txn := p.eng.NewRecoveryUnit()
	if ts := outerTxn.CommitTimestamp(); ts.IsSet() {
		txn.SetCommitTimestamp(ts)
	}
	guard := guardPhaseB(txn, p.clock)
	defer guard.Release()

	var firstErr error
	for _, ns := range namespaces {
		if err := entry.DropCollection(txn, ns); err != nil {
			log.Warningf("dropplan: phase B failed to drop %q: %v", ns, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		log.Infof("dropplan: phase B dropped %q (timestamped)", ns)
	}

	p.dir.RemoveForDrop(outerTxn, dbName)

	if err := txn.Commit(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
