// Package engine defines the abstract storage backend the catalog
// coordinator sits on top of. Nothing in this package is implemented by
// the coordinator itself: KvEngine, Txn and LogicalClock are all
// injected services, consumed the same way the teacher's db.KVDB
// interface is consumed by lib/store's IStore implementations.
//
// See engine/memkv for a reference implementation used by this
// module's own tests.
package engine

import (
	"github.com/zeebo/errs"

	"github.com/nsdb/catalogcoord/catalog"
)

// Timestamp is an engine-facing logical clock value. It is opaque to
// the coordinator except for the sentinel Timestamp(0), which the
// engine treats as "unset"/"null".
type Timestamp uint64

// IsSet reports whether the timestamp carries a real value.
func (t Timestamp) IsSet() bool {
	return t != 0
}

// Capability is a bitset of engine-reported capabilities, mirroring the
// teacher's db.Feature bit-flag convention (lib/db/db.go) but scoped to
// the properties the coordinator itself must gate behavior on.
type Capability uint64

const (
	CapDurable Capability = 1 << iota
	CapEphemeral
	CapDocLocking
	CapDBLocking
	CapDirectoryPerDB
	CapRecoverToStableTimestamp
	CapReadConcernSnapshot
)

// Has reports whether every bit set in want is also set in c.
func (c Capability) Has(want Capability) bool {
	return c&want == want
}

// Txn is a recovery unit: a scoped unit of work that either commits or
// aborts, with hooks that fire on either outcome. Rollback hooks fire in
// reverse order of registration, matching a standard unwind order.
type Txn interface {
	// OnCommit registers fn to run once the transaction has committed.
	OnCommit(fn func())
	// OnRollback registers fn to run if the transaction aborts instead
	// of committing.
	OnRollback(fn func())

	// SetCommitTimestamp overrides the timestamp assigned to writes
	// made in this transaction. Passing Timestamp(0) clears it.
	SetCommitTimestamp(ts Timestamp)
	// CommitTimestamp returns the timestamp currently configured for
	// this transaction, or the zero Timestamp if unset.
	CommitTimestamp() Timestamp

	// Commit finalizes the transaction and runs OnCommit hooks in
	// registration order.
	Commit() error
	// Abort discards the transaction's writes and runs OnRollback
	// hooks in reverse registration order.
	Abort()
}

// ErrRecordExists is the error class Insert returns when id is already
// present. Callers that treat re-registration as a valid path (e.g.
// catalogstore's upsert) match against this class rather than falling
// back to Update on any Insert error.
var ErrRecordExists = errs.Class("record exists")

// RecordStore is a single backend storage object: an ordered collection
// of opaque byte-string records keyed by an opaque string id.
type RecordStore interface {
	// Insert adds a new record. It returns an error satisfying
	// ErrRecordExists.Has if id is already present.
	Insert(txn Txn, id string, data []byte) error
	Update(txn Txn, id string, data []byte) error
	Delete(txn Txn, id string) error
	// Iterate visits every record in an unspecified but stable order.
	// Returning an error from fn stops iteration and is returned as-is.
	Iterate(fn func(id string, data []byte) error) error
}

// SnapshotManager is an opaque handle to the engine's point-in-time
// snapshot machinery, forwarded without interpretation.
type SnapshotManager interface{}

// JournalListener is notified by the engine when the durable journal
// advances, forwarded without interpretation.
type JournalListener interface {
	OnDurable(ts Timestamp)
}

// KvEngine is the opaque backend object store the coordinator sits on
// top of: it creates, drops and repairs idents, enumerates them,
// produces transactions, and reports its capabilities and durability
// posture.
type KvEngine interface {
	NewRecoveryUnit() Txn

	HasIdent(txn Txn, id catalog.Ident) bool
	GetAllIdents(txn Txn) []catalog.Ident
	CreateGroupedRecordStore(txn Txn, id catalog.Ident, ns catalog.Namespace, opts catalog.CollectionOptions, prefix int64) error
	GetGroupedRecordStore(txn Txn, id catalog.Ident, ns catalog.Namespace, opts catalog.CollectionOptions, prefix int64) (RecordStore, error)
	DropIdent(txn Txn, id catalog.Ident) error
	RepairIdent(txn Txn, id catalog.Ident) error

	BeginBackup(txn Txn) error
	EndBackup(txn Txn) error

	Capabilities() Capability
	IsDurable() bool
	IsEphemeral() bool

	GetSnapshotManager() SnapshotManager
	FlushAllFiles(txn Txn, sync bool) error
	SetJournalListener(jl JournalListener)

	SetStableTimestamp(ts Timestamp)
	SetOldestTimestamp(ts Timestamp)
	SetInitialDataTimestamp(ts Timestamp)
	RecoverToStableTimestamp() (Timestamp, error)
	SupportsRecoverToStableTimestamp() bool
	SupportsReadConcernSnapshot() bool
	ReplicationBatchIsComplete() bool

	// Shutdown releases engine-internal resources acquired by the
	// coordinator's use of it. It does not destroy the engine value
	// itself; the host retains ownership across the engine's own
	// lifetime.
	Shutdown()
}

// LogicalClock is the cluster-wide logical clock the coordinator
// forwards commit timestamps from. On a standalone node it may report
// no current time.
type LogicalClock interface {
	// ClusterTimestamp returns the current cluster time as a
	// Timestamp, or ok=false on a standalone node with no cluster
	// time available.
	ClusterTimestamp() (ts Timestamp, ok bool)
}
