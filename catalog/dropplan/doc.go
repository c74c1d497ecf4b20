// Package dropplan implements DropDatabasePlan: dropDatabase's
// partitioning of a database's namespaces into an untimestamped Phase A
// and a timestamped Phase B, executed under the correct commit-
// timestamp regime for each.
package dropplan
