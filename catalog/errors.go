package catalog

import (
	"fmt"

	"github.com/zeebo/errs"
)

// Error classes for the recoverable error kinds the coordinator returns
// to callers. Modeled on storj's errs.Class convention: a small fixed
// set of named categories, each producing wrapped, classifiable errors.
var (
	// ErrBadValue reports invalid configuration or an illegal state
	// transition, e.g. a second concurrent beginBackup.
	ErrBadValue = errs.Class("bad value")

	// ErrNamespaceNotFound reports dropDatabase on an unknown database.
	ErrNamespaceNotFound = errs.Class("namespace not found")

	// ErrUnrecoverableRollback reports that the reconciler found a
	// catalog-listed collection whose backing ident is gone.
	ErrUnrecoverableRollback = errs.Class("unrecoverable rollback")
)

// FatalCode identifies a specific fatal invariant breach for
// diagnostics. These are stable across releases so operators can grep
// logs and crash reports for a numeric identifier.
type FatalCode int

const (
	// FatalCatalogIdentCreateFailed: the engine refused to create the
	// reserved catalog ident on first-time initialization, or (with
	// ForRepair) failed to repair an existing one.
	FatalCatalogIdentCreateFailed FatalCode = iota + 1
	// FatalDirectoryPerDBUnsupported: directoryPerDB was requested but
	// the engine does not support it.
	FatalDirectoryPerDBUnsupported
	// FatalCorruptCatalog: the reserved catalog ident's record store
	// could not be read back during init, or the reconciler failed to
	// drop (or commit the drop of) an orphaned user-data ident.
	FatalCorruptCatalog
	// FatalDropPhaseASafetyViolation: a namespace surviving Phase A of
	// dropDatabase was replicated and not one of the known exceptions.
	FatalDropPhaseASafetyViolation
	// FatalDropPhaseBNotEmpty: the database handle still reported
	// collections after Phase B's drops were committed.
	FatalDropPhaseBNotEmpty
	// FatalBackupNotInProgress: endBackup was called without a
	// matching beginBackup.
	FatalBackupNotInProgress
)

// String names the code for log lines and panic messages.
func (c FatalCode) String() string {
	switch c {
	case FatalCatalogIdentCreateFailed:
		return "CatalogIdentCreateFailed"
	case FatalDirectoryPerDBUnsupported:
		return "DirectoryPerDBUnsupported"
	case FatalCorruptCatalog:
		return "CorruptCatalog"
	case FatalDropPhaseASafetyViolation:
		return "DropPhaseASafetyViolation"
	case FatalDropPhaseBNotEmpty:
		return "DropPhaseBNotEmpty"
	case FatalBackupNotInProgress:
		return "BackupNotInProgress"
	default:
		return "Unknown"
	}
}

// FatalError reports a fatal invariant breach. The coordinator's
// convention is that these do not return control to the caller in a
// recoverable way: they are logged and the process is expected to
// terminate. Tests observe them as a normal Go error value instead.
type FatalError struct {
	Code FatalCode
	Msg  string
}

// Error implements the error interface.
func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal invariant breach (code %d %s): %s", int(e.Code), e.Code, e.Msg)
}

// NewFatal builds a FatalError with a formatted message.
func NewFatal(code FatalCode, format string, args ...interface{}) *FatalError {
	return &FatalError{Code: code, Msg: fmt.Sprintf(format, args...)}
}
