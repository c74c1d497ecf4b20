// Package memkv is an in-memory reference implementation of
// engine.KvEngine, used by this module's own test suite the same way
// the teacher's lib/db/engines/maple is a reference implementation of
// db.KVDB exercised by lib/db/testing.RunKVDBTests.
//
// It is not meant for production use: idents and their records live
// only in process memory, transactions apply writes eagerly instead of
// staging them, and there is no crash recovery. What it does provide
// faithfully is the ident lifecycle (create/drop/repair/enumerate),
// capability reporting, and the commit/rollback hook ordering that
// catalog/coordinatortest relies on to exercise the coordinator's
// rollback-sensitive paths.
package memkv
