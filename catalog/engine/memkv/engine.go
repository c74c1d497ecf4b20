package memkv

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/nsdb/catalogcoord/catalog"
	"github.com/nsdb/catalogcoord/catalog/engine"
	"github.com/nsdb/catalogcoord/catalog/engine/memkv/internal"
)

// Options configures a memkv Engine, mirroring the teacher's
// db.DBOptions / DefaultOptions convention.
type Options struct {
	// Capabilities is the capability bitset this engine instance
	// reports; tests can clear engine.CapDirectoryPerDB to exercise
	// the coordinator's construction-time capability check.
	Capabilities engine.Capability
	// Durable, if true, reports IsDurable()==true; otherwise the
	// engine reports itself ephemeral.
	Durable bool
}

// DefaultOptions returns a durable engine advertising every capability
// the coordinator can ask for.
func DefaultOptions() Options {
	return Options{
		Capabilities: engine.CapDurable |
			engine.CapDocLocking |
			engine.CapDBLocking |
			engine.CapDirectoryPerDB |
			engine.CapRecoverToStableTimestamp |
			engine.CapReadConcernSnapshot,
		Durable: true,
	}
}

// Engine is an in-memory reference implementation of engine.KvEngine.
type Engine struct {
	opts     Options
	registry *internal.Registry

	mu         sync.Mutex
	inBackup   bool
	journal    engine.JournalListener
	stableTS   atomic.Uint64
	oldestTS   atomic.Uint64
	initialTS  atomic.Uint64
	batchReady atomic.Bool
}

// NewEngine creates a new, empty memkv Engine.
func NewEngine(opts Options) *Engine {
	e := &Engine{
		opts:     opts,
		registry: internal.NewRegistry(),
	}
	e.batchReady.Store(true)
	return e
}

func (e *Engine) NewRecoveryUnit() engine.Txn {
	return newTxn()
}

func (e *Engine) HasIdent(_ engine.Txn, id catalog.Ident) bool {
	return e.registry.Has(id)
}

func (e *Engine) GetAllIdents(_ engine.Txn) []catalog.Ident {
	return e.registry.All()
}

func (e *Engine) CreateGroupedRecordStore(_ engine.Txn, id catalog.Ident, _ catalog.Namespace, _ catalog.CollectionOptions, _ int64) error {
	if !e.registry.Create(id) {
		return fmt.Errorf("memkv: ident %q already exists", id)
	}
	return nil
}

func (e *Engine) GetGroupedRecordStore(_ engine.Txn, id catalog.Ident, _ catalog.Namespace, _ catalog.CollectionOptions, _ int64) (engine.RecordStore, error) {
	backing, ok := e.registry.Get(id)
	if !ok {
		return nil, fmt.Errorf("memkv: ident %q not found", id)
	}
	return &recordStore{backing: backing}, nil
}

func (e *Engine) DropIdent(_ engine.Txn, id catalog.Ident) error {
	if !e.registry.Drop(id) {
		return fmt.Errorf("memkv: ident %q not found", id)
	}
	return nil
}

func (e *Engine) RepairIdent(_ engine.Txn, id catalog.Ident) error {
	if !e.registry.Has(id) {
		return fmt.Errorf("memkv: cannot repair unknown ident %q", id)
	}
	return nil
}

func (e *Engine) BeginBackup(_ engine.Txn) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inBackup {
		return fmt.Errorf("memkv: backup already in progress")
	}
	e.inBackup = true
	return nil
}

func (e *Engine) EndBackup(_ engine.Txn) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inBackup = false
	return nil
}

func (e *Engine) Capabilities() engine.Capability {
	return e.opts.Capabilities
}

func (e *Engine) IsDurable() bool {
	return e.opts.Durable
}

func (e *Engine) IsEphemeral() bool {
	return !e.opts.Durable
}

func (e *Engine) GetSnapshotManager() engine.SnapshotManager {
	return nil
}

func (e *Engine) FlushAllFiles(_ engine.Txn, _ bool) error {
	return nil
}

func (e *Engine) SetJournalListener(jl engine.JournalListener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.journal = jl
}

func (e *Engine) SetStableTimestamp(ts engine.Timestamp) {
	e.stableTS.Store(uint64(ts))
	if jl := e.currentJournalListener(); jl != nil {
		jl.OnDurable(ts)
	}
}

func (e *Engine) currentJournalListener() engine.JournalListener {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.journal
}

func (e *Engine) SetOldestTimestamp(ts engine.Timestamp) {
	e.oldestTS.Store(uint64(ts))
}

func (e *Engine) SetInitialDataTimestamp(ts engine.Timestamp) {
	e.initialTS.Store(uint64(ts))
}

func (e *Engine) RecoverToStableTimestamp() (engine.Timestamp, error) {
	if !e.SupportsRecoverToStableTimestamp() {
		return 0, fmt.Errorf("memkv: recover-to-stable-timestamp not supported")
	}
	return engine.Timestamp(e.stableTS.Load()), nil
}

func (e *Engine) SupportsRecoverToStableTimestamp() bool {
	return e.opts.Capabilities.Has(engine.CapRecoverToStableTimestamp)
}

func (e *Engine) SupportsReadConcernSnapshot() bool {
	return e.opts.Capabilities.Has(engine.CapReadConcernSnapshot)
}

func (e *Engine) ReplicationBatchIsComplete() bool {
	return e.batchReady.Load()
}

func (e *Engine) Shutdown() {
	// memkv holds no resources external to the process; shutdown is a
	// no-op but is idempotent, as required of every KvEngine.
}

// NewIdent generates a fresh, uniquely named user-data ident using the
// naming convention catalog.Ident.IsUserData expects.
func NewIdent(kind string) catalog.Ident {
	prefix := "collection-"
	if kind == "index" {
		prefix = "index-"
	}
	return catalog.Ident(prefix + uuid.NewString())
}
