// Package coordinator implements the Coordinator facade: it wires the
// engine, catalog, directory, reconciler and drop plan together and
// exposes the small public surface a database server built on top of
// this layer actually calls (open database, drop database, backup
// mode, timestamp forwarding, shutdown).
package coordinator
