package metrics

import (
	"errors"
	"fmt"

	"github.com/george-bobby/eventtts-sap-sub000/allocation"
	"github.com/george-bobby/eventtts-sap-sub000/entities"
	"github.com/prometheus/client_golang/prometheus"
)

const defaultNamespace = "allocation"

// PrometheusObserver exports allocation outcomes and pool levels.
type PrometheusObserver struct {
	reservations    *prometheus.CounterVec
	reservedTickets *prometheus.CounterVec
	releasedTickets prometheus.Counter
	ticketsLeft     *prometheus.GaugeVec
	verifications   *prometheus.CounterVec
}

func NewPrometheusObserver(namespace string, reg prometheus.Registerer) (*PrometheusObserver, error) {
	if namespace == "" {
		namespace = defaultNamespace
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	reservations, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reservations_total",
		Help:      "Reserve calls by result.",
	}, []string{"result"}))
	if err != nil {
		return nil, err
	}

	reservedTickets, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "requested_tickets_total",
		Help:      "Tickets requested in reserve calls by result.",
	}, []string{"result"}))
	if err != nil {
		return nil, err
	}

	releasedTickets, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "released_tickets_total",
		Help:      "Tickets returned to their pools by cancellations.",
	}))
	if err != nil {
		return nil, err
	}

	ticketsLeft, err := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "tickets_left",
		Help:      "Tickets left in a pool, -1 for unlimited pools.",
	}, []string{"pool_owner_id"}))
	if err != nil {
		return nil, err
	}

	verifications, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "entry_verifications_total",
		Help:      "Entry code verifications by result.",
	}, []string{"result"}))
	if err != nil {
		return nil, err
	}

	return &PrometheusObserver{
		reservations:    reservations,
		reservedTickets: reservedTickets,
		releasedTickets: releasedTickets,
		ticketsLeft:     ticketsLeft,
		verifications:   verifications,
	}, nil
}

// register returns the already registered collector when one with the same
// description exists, so several services can share a registry in tests.
func register[T prometheus.Collector](reg prometheus.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			return existing, nil
		}
	}

	return collector, fmt.Errorf("register allocation collector: %w", err)
}

func (o *PrometheusObserver) ReservationFinished(result string, quantity int) {
	if o == nil {
		return
	}
	o.reservations.WithLabelValues(result).Inc()
	if quantity > 0 {
		o.reservedTickets.WithLabelValues(result).Add(float64(quantity))
	}
}

func (o *PrometheusObserver) TicketsReleased(quantity int) {
	if o == nil || quantity <= 0 {
		return
	}
	o.releasedTickets.Add(float64(quantity))
}

func (o *PrometheusObserver) PoolChanged(capacity entities.CapacityRecord) {
	if o == nil {
		return
	}
	o.ticketsLeft.WithLabelValues(capacity.EventID.String()).Set(float64(capacity.TicketsLeft))
}

func (o *PrometheusObserver) EntryVerified(result string) {
	if o == nil {
		return
	}
	o.verifications.WithLabelValues(result).Inc()
}

var _ allocation.Observer = (*PrometheusObserver)(nil)
