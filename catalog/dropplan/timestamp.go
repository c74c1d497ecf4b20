package dropplan

import "github.com/nsdb/catalogcoord/catalog/engine"

// commitTimestampGuard restores a transaction's commit timestamp on
// Release, guaranteeing restoration on every exit path (normal return,
// error, panic) when acquired at the top of a function and released
// via defer. A guard that did not itself change the timestamp is a
// no-op on Release.
type commitTimestampGuard struct {
	txn   engine.Txn
	saved engine.Timestamp
	owns  bool
}

// Release restores the timestamp this guard saved, if it changed it.
func (g *commitTimestampGuard) Release() {
	if g.owns {
		g.txn.SetCommitTimestamp(g.saved)
	}
}

// guardPhaseA saves txn's current commit timestamp (which may have been
// set by an enclosing block on the secondary replication path) and
// clears it, so Phase A's drops are never timestamped.
func guardPhaseA(txn engine.Txn) *commitTimestampGuard {
	saved := txn.CommitTimestamp()
	txn.SetCommitTimestamp(0)
	return &commitTimestampGuard{txn: txn, saved: saved, owns: true}
}

// guardPhaseB sets txn's commit timestamp to the logical clock's
// current value, but only if none is already set and the clock has one
// to offer (it may not, on a standalone node). A timestamp already set
// on txn is left untouched: the caller (runPhaseB) seeds it from the
// outer transaction on the secondary replication path, and that
// inherited value must survive Release. If this call did not change
// the timestamp, Release is a no-op.
func guardPhaseB(txn engine.Txn, clock engine.LogicalClock) *commitTimestampGuard {
	if txn.CommitTimestamp().IsSet() {
		return &commitTimestampGuard{}
	}
	ts, ok := clock.ClusterTimestamp()
	if !ok {
		return &commitTimestampGuard{}
	}
	txn.SetCommitTimestamp(ts)
	return &commitTimestampGuard{txn: txn, saved: 0, owns: true}
}
