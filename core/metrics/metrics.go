package metrics

import (
	"schema-manager/core/reconcile"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Recorder exports schema manager activity as prometheus metrics.
// It implements reconcile.Observer.
type Recorder struct {
	mutations      *prometheus.CounterVec
	statements     *prometheus.CounterVec
	drops          *prometheus.CounterVec
	introspections *prometheus.CounterVec
	invalidations  *prometheus.CounterVec
	sessions       prometheus.Gauge
}

var _ reconcile.Observer = (*Recorder)(nil)

// New creates a recorder and registers its collectors with reg.
// A nil reg means prometheus.DefaultRegisterer.
func New(namespace string, reg prometheus.Registerer) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "schema_manager"
	}

	r := &Recorder{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Schema mutation calls by outcome",
		}, []string{"outcome"}),
		statements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Objects changed by mutation calls, by operation",
		}, []string{"operation"}),
		drops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "drops_total",
			Help:      "Objects dropped by explicit drop calls, by kind",
		}, []string{"kind"}),
		introspections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "introspections_total",
			Help:      "Live metadata reads, by object kind",
		}, []string{"kind"}),
		invalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_invalidations_total",
			Help:      "Execution context invalidations, by reason",
		}, []string{"reason"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Open provisioning sessions",
		}),
	}

	for _, c := range []prometheus.Collector{r.mutations, r.statements, r.drops, r.introspections, r.invalidations, r.sessions} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ObserveMutation counts one mutation call and the operations it performed.
func (r *Recorder) ObserveMutation(result *reconcile.Result, err error) {
	if err != nil {
		r.mutations.WithLabelValues(OutcomeError).Inc()
		return
	}
	r.mutations.WithLabelValues(OutcomeSuccess).Inc()
	if result == nil {
		return
	}
	r.statements.WithLabelValues("table_deploy").Add(float64(len(result.TablesDeployed)))
	r.statements.WithLabelValues("table_drop").Add(float64(len(result.TablesDropped)))
	r.statements.WithLabelValues("table_truncate").Add(float64(len(result.TablesTruncated)))
	r.statements.WithLabelValues("view_drop").Add(float64(len(result.ViewsDropped)))
	r.statements.WithLabelValues("view_deploy").Add(float64(len(result.ViewsDeployed)))
}

// ObserveDrop counts objects removed by a successful drop call.
func (r *Recorder) ObserveDrop(kind string, count int, err error) {
	if err != nil {
		return
	}
	r.drops.WithLabelValues(kind).Add(float64(count))
}

func (r *Recorder) ObserveIntrospection(kind string) {
	r.introspections.WithLabelValues(kind).Inc()
}

func (r *Recorder) ObserveInvalidation(reason string) {
	r.invalidations.WithLabelValues(reason).Inc()
}

// SessionOpened and SessionClosed track provisioning sessions.
func (r *Recorder) SessionOpened() { r.sessions.Inc() }
func (r *Recorder) SessionClosed() { r.sessions.Dec() }
