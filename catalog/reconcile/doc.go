// Package reconcile implements the Reconciler: the one-shot procedure,
// invoked once after startup before the server accepts traffic, that
// classifies differences between the Catalog's view and the Engine's
// view of idents.
package reconcile
