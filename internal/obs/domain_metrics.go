package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// OrdersSubmittedTotal counts order submissions forwarded upstream.
	OrdersSubmittedTotal *prometheus.CounterVec
	// PaymentsSubmittedTotal counts payment submissions by method and outcome.
	PaymentsSubmittedTotal *prometheus.CounterVec
	// PaymentsRejectedTotal counts payments blocked by local validation
	// before any network call.
	PaymentsRejectedTotal *prometheus.CounterVec
	// AccessDeniedTotal counts route-guard denials by role.
	AccessDeniedTotal *prometheus.CounterVec
	// KitchenTicketsTotal counts kitchen ticket fan-out outcomes.
	KitchenTicketsTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers POS domain collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		OrdersSubmittedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_submitted_total",
			Help:      "Count of order submissions by outcome.",
		}, []string{"result"})
		PaymentsSubmittedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_submitted_total",
			Help:      "Count of payment submissions by method and outcome.",
		}, []string{"method", "result"})
		PaymentsRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_rejected_total",
			Help:      "Count of payments rejected by local validation.",
		}, []string{"reason"})
		AccessDeniedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "access_denied_total",
			Help:      "Count of route guard denials by role.",
		}, []string{"role"})
		KitchenTicketsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kitchen_tickets_total",
			Help:      "Count of kitchen ticket fan-out outcomes.",
		}, []string{"result"})

		for _, c := range []*prometheus.CounterVec{
			OrdersSubmittedTotal,
			PaymentsSubmittedTotal,
			PaymentsRejectedTotal,
			AccessDeniedTotal,
			KitchenTicketsTotal,
		} {
			_ = registerOrExisting(reg, c)
		}
	})
}
