package metrics

import (
	"campusmart/internal/domain/model"
	"campusmart/internal/usecase"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// usecase.OrderObserverのprometheus実装
type OrderMetrics struct {
	placed        prometheus.Counter
	placedAmount  prometheus.Counter
	rejected      *prometheus.CounterVec
	cancelled     prometheus.Counter
	statusChanged *prometheus.CounterVec
}

var _ usecase.OrderObserver = (*OrderMetrics)(nil)

func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	f := promauto.With(reg)
	return &OrderMetrics{
		placed: f.NewCounter(prometheus.CounterOpts{
			Namespace: "campusmart",
			Name:      "orders_placed_total",
			Help:      "Number of orders placed.",
		}),
		placedAmount: f.NewCounter(prometheus.CounterOpts{
			Namespace: "campusmart",
			Name:      "orders_placed_amount_total",
			Help:      "Sum of total_amount of placed orders.",
		}),
		rejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "campusmart",
			Name:      "orders_rejected_total",
			Help:      "Number of rejected order placements by error kind.",
		}, []string{"kind"}),
		cancelled: f.NewCounter(prometheus.CounterOpts{
			Namespace: "campusmart",
			Name:      "orders_cancelled_total",
			Help:      "Number of cancelled orders.",
		}),
		statusChanged: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "campusmart",
			Name:      "order_status_changes_total",
			Help:      "Number of order status transitions by target status.",
		}, []string{"status"}),
	}
}

func (m *OrderMetrics) OrderPlaced(totalAmount int64) {
	m.placed.Inc()
	m.placedAmount.Add(float64(totalAmount))
}

func (m *OrderMetrics) OrderRejected(kind usecase.ErrorKind) {
	m.rejected.WithLabelValues(string(kind)).Inc()
}

func (m *OrderMetrics) OrderCancelled() {
	m.cancelled.Inc()
}

func (m *OrderMetrics) OrderStatusChanged(to model.OrderStatus) {
	m.statusChanged.WithLabelValues(string(to)).Inc()
}
