package memkv

import "github.com/nsdb/catalogcoord/catalog/engine"

// txn is memkv's recovery unit. Writes made through the engine while a
// txn is open take effect immediately (memkv has no WAL to stage
// them against); txn only accumulates the commit/rollback hooks the
// coordinator's directory package relies on for ownership hand-off.
type txn struct {
	onCommit   []func()
	onRollback []func()
	commitTS   engine.Timestamp
	done       bool
}

func newTxn() *txn {
	return &txn{}
}

func (t *txn) OnCommit(fn func()) {
	t.onCommit = append(t.onCommit, fn)
}

func (t *txn) OnRollback(fn func()) {
	t.onRollback = append(t.onRollback, fn)
}

func (t *txn) SetCommitTimestamp(ts engine.Timestamp) {
	t.commitTS = ts
}

func (t *txn) CommitTimestamp() engine.Timestamp {
	return t.commitTS
}

func (t *txn) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	for _, fn := range t.onCommit {
		fn()
	}
	return nil
}

func (t *txn) Abort() {
	if t.done {
		return
	}
	t.done = true
	for i := len(t.onRollback) - 1; i >= 0; i-- {
		t.onRollback[i]()
	}
}
