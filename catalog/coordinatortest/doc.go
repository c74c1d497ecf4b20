// Package coordinatortest exercises catalog/coordinator against a
// caller-supplied engine.KvEngine factory, mirroring the teacher's
// lib/db/testing generic multi-backend harness: any engine that
// implements engine.KvEngine faithfully can be run through the same
// suite by calling RunCoordinatorTests from that engine's own test
// file.
package coordinatortest
