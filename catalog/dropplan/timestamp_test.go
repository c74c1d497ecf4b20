package dropplan

import (
	"testing"

	"github.com/nsdb/catalogcoord/catalog/engine"
	"github.com/nsdb/catalogcoord/catalog/engine/memkv"
)

func TestGuardPhaseARestoresSavedTimestamp(t *testing.T) {
	eng := memkv.NewEngine(memkv.DefaultOptions())
	txn := eng.NewRecoveryUnit()
	defer txn.Abort()

	txn.SetCommitTimestamp(42)

	guard := guardPhaseA(txn)
	if txn.CommitTimestamp().IsSet() {
		t.Errorf("guardPhaseA did not clear the commit timestamp")
	}
	guard.Release()

	if got := txn.CommitTimestamp(); got != 42 {
		t.Errorf("Release() restored %v, want 42", got)
	}
}

type fixedClock struct{ ts uint64 }

func (c fixedClock) ClusterTimestamp() (engine.Timestamp, bool) {
	return engine.Timestamp(c.ts), true
}

func TestGuardPhaseBSetsClockTimestampWhenUnset(t *testing.T) {
	eng := memkv.NewEngine(memkv.DefaultOptions())
	txn := eng.NewRecoveryUnit()
	defer txn.Abort()

	guard := guardPhaseB(txn, fixedClock{ts: 7})
	if got := txn.CommitTimestamp(); got != 7 {
		t.Errorf("guardPhaseB did not set the clock's timestamp, got %v", got)
	}

	guard.Release()
	if txn.CommitTimestamp().IsSet() {
		t.Errorf("Release() should clear a timestamp guardPhaseB itself set")
	}
}

func TestGuardPhaseBLeavesExistingTimestampAlone(t *testing.T) {
	eng := memkv.NewEngine(memkv.DefaultOptions())
	txn := eng.NewRecoveryUnit()
	defer txn.Abort()

	txn.SetCommitTimestamp(9)
	guard := guardPhaseB(txn, fixedClock{ts: 7})
	guard.Release()

	if got := txn.CommitTimestamp(); got != 9 {
		t.Errorf("guardPhaseB disturbed a caller-set timestamp: got %v, want 9", got)
	}
}
