package coordinator

import "github.com/VictoriaMetrics/metrics"

// coordinatorMetrics groups the counters and gauges the coordinator
// publishes. Passing a nil *metrics.Set to newCoordinatorMetrics builds
// a private, unregistered set instead of touching the global default
// set, so tests can construct many coordinators without colliding on
// metric names.
type coordinatorMetrics struct {
	set *metrics.Set

	reconcileOrphansDropped *metrics.Counter
	reconcileRebuilds       *metrics.Counter
	dropDatabasePhaseA      *metrics.Counter
	dropDatabasePhaseB      *metrics.Counter
	directorySize           *metrics.Gauge
}

func newCoordinatorMetrics(set *metrics.Set, sizeFn func() float64) *coordinatorMetrics {
	owned := set == nil
	if owned {
		set = metrics.NewSet()
	}

	m := &coordinatorMetrics{
		set:                     set,
		reconcileOrphansDropped: set.NewCounter(`catalog_reconcile_orphans_dropped_total`),
		reconcileRebuilds:       set.NewCounter(`catalog_reconcile_rebuilds_required_total`),
		dropDatabasePhaseA:      set.NewCounter(`catalog_drop_database_total{phase="a"}`),
		dropDatabasePhaseB:      set.NewCounter(`catalog_drop_database_total{phase="b"}`),
	}
	m.directorySize = set.NewGauge(`catalog_directory_size`, sizeFn)
	return m
}

func (m *coordinatorMetrics) observeReconcile(orphansDropped, rebuildsRequired int) {
	m.reconcileOrphansDropped.Add(orphansDropped)
	m.reconcileRebuilds.Add(rebuildsRequired)
}

func (m *coordinatorMetrics) observeDropDatabase(phaseACount, phaseBCount int) {
	m.dropDatabasePhaseA.Add(phaseACount)
	m.dropDatabasePhaseB.Add(phaseBCount)
}
