package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects planning and execution counters. All methods are nil-safe
// so services can run without a registry wired.
type Metrics struct {
	planningRuns        prometheus.Counter
	planningDuration    prometheus.Histogram
	planningErrors      prometheus.Counter
	plannedOrders       *prometheus.CounterVec
	transitions         *prometheus.CounterVec
	reservations        prometheus.Counter
	reservationFailures *prometheus.CounterVec
}

// New registers the collectors with the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		planningRuns: factory.NewCounter(prometheus.CounterOpts{
			Name: "planner_planning_runs_total",
			Help: "Completed MRP planning runs.",
		}),
		planningDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "planner_planning_run_duration_seconds",
			Help:    "Wall time of MRP planning runs.",
			Buckets: prometheus.DefBuckets,
		}),
		planningErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "planner_planning_demand_errors_total",
			Help: "Demands that failed within otherwise successful runs.",
		}),
		plannedOrders: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "planner_planned_orders_total",
			Help: "Planned orders emitted, by order type.",
		}, []string{"type"}),
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "planner_order_transitions_total",
			Help: "Production order status transitions, by target status.",
		}, []string{"target"}),
		reservations: factory.NewCounter(prometheus.CounterOpts{
			Name: "planner_reservations_total",
			Help: "Material reservations created at order start.",
		}),
		reservationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "planner_reservation_failures_total",
			Help: "Order starts refused, by failure kind.",
		}, []string{"kind"}),
	}
}

// PlanningRun records one completed run.
func (m *Metrics) PlanningRun(duration time.Duration, orders, errors int) {
	if m == nil {
		return
	}
	m.planningRuns.Inc()
	m.planningDuration.Observe(duration.Seconds())
	m.planningErrors.Add(float64(errors))
}

// PlannedOrder counts one emitted planned order.
func (m *Metrics) PlannedOrder(orderType string) {
	if m == nil {
		return
	}
	m.plannedOrders.WithLabelValues(orderType).Inc()
}

// Transition counts one successful status transition.
func (m *Metrics) Transition(target string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(target).Inc()
}

// ReservationCreated counts one persisted reservation.
func (m *Metrics) ReservationCreated() {
	if m == nil {
		return
	}
	m.reservations.Inc()
}

// ReservationFailure counts one refused order start.
func (m *Metrics) ReservationFailure(kind string) {
	if m == nil {
		return
	}
	m.reservationFailures.WithLabelValues(kind).Inc()
}
