package reconcile

import (
	"github.com/lni/dragonboat/v4/logger"

	"github.com/nsdb/catalogcoord/catalog"
	"github.com/nsdb/catalogcoord/catalog/catalogstore"
	"github.com/nsdb/catalogcoord/catalog/engine"
)

var log = logger.GetLogger("reconcile")

// RebuildTarget names one index whose backing ident is missing from
// the engine and must be rebuilt by the caller.
type RebuildTarget struct {
	NS        catalog.Namespace
	IndexName string
}

// Reconciler compares the Engine's ident set against the Catalog's and
// classifies the difference: orphaned user-data idents are dropped,
// missing collection idents are fatal, missing index idents are
// reported for rebuild.
type Reconciler struct {
	eng engine.KvEngine
	cat *catalogstore.Catalog
}

// New builds a Reconciler over eng and cat.
func New(eng engine.KvEngine, cat *catalogstore.Catalog) *Reconciler {
	return &Reconciler{eng: eng, cat: cat}
}

// Run executes the three-step procedure against a snapshot read through
// readTxn. Orphan-ident drops (step 1) each run and commit in their own
// write transaction, independent of readTxn, so that engine state is
// monotone by the time step 2 inspects it: a drop that failed to commit
// must not be treated as having removed the ident.
func (r *Reconciler) Run(readTxn engine.Txn) ([]RebuildTarget, error) {
	engineIdents := catalog.NewIdentSet(r.eng.GetAllIdents(readTxn))
	delete(engineIdents, catalog.ReservedCatalogIdent)
	catalogIdents := catalog.NewIdentSet(r.cat.GetAllIdents())

	for _, id := range engineIdents.Minus(catalogIdents) {
		if !id.IsUserData() {
			// Not ours to manage; e.g. an internal ident owned by
			// another subsystem.
			continue
		}
		if err := r.dropOrphan(id); err != nil {
			return nil, err
		}
		delete(engineIdents, id)
	}

	var rebuild []RebuildTarget
	for _, ns := range r.cat.GetAllCollections() {
		meta, ok := r.cat.GetMetadata(ns)
		if !ok {
			continue
		}
		if !engineIdents.Has(meta.Ident) {
			return nil, catalog.ErrUnrecoverableRollback.New(
				"namespace %q: collection ident %q is missing from the engine", ns, meta.Ident)
		}
		for _, idx := range meta.Indexes {
			if !engineIdents.Has(idx.Ident) {
				rebuild = append(rebuild, RebuildTarget{NS: ns, IndexName: idx.Name})
			}
		}
	}

	log.Infof("reconcile: complete, %d index rebuild(s) required", len(rebuild))
	return rebuild, nil
}

func (r *Reconciler) dropOrphan(id catalog.Ident) error {
	txn := r.eng.NewRecoveryUnit()
	if err := r.eng.DropIdent(txn, id); err != nil {
		txn.Abort()
		return catalog.NewFatal(catalog.FatalCorruptCatalog,
			"reconcile: dropping orphan ident %q: %v", id, err)
	}
	if err := txn.Commit(); err != nil {
		return catalog.NewFatal(catalog.FatalCorruptCatalog,
			"reconcile: committing drop of orphan ident %q: %v", id, err)
	}
	log.Infof("reconcile: dropped orphan ident %q", id)
	return nil
}
