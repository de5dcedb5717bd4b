package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Domain collectors are usable before registration so services and tests can
// increment them without wiring the metrics endpoint.
var (
	domainOnce sync.Once

	// StockReservedTotal counts units held by cart reservations.
	StockReservedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pos_stock_reserved_units_total",
		Help: "Units of stock reserved by checkout sessions.",
	})
	// SettlementsTotal counts settled transactions by payment method.
	SettlementsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_settlements_total",
		Help: "Settled transactions by payment method.",
	}, []string{"method"})
	// SessionsAbandonedTotal counts abandoned checkout sessions.
	SessionsAbandonedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pos_sessions_abandoned_total",
		Help: "Checkout sessions abandoned before settlement.",
	})
	// PointsRedeemedTotal counts membership points redeemed at checkout.
	PointsRedeemedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pos_points_redeemed_total",
		Help: "Membership points redeemed against final totals.",
	})
	// SalesSweptTotal counts promotional sales removed by the expiry sweep.
	SalesSweptTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pos_sales_swept_total",
		Help: "Promotional sales removed by the expiry sweep.",
	})
	// ExpiredStockRemovedTotal counts units pulled by the expired-stock scan.
	ExpiredStockRemovedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pos_expired_stock_removed_units_total",
		Help: "Units of expired perishable stock pulled off the shelf.",
	})
)

// MustRegisterDomainMetrics registers the domain collectors, reusing any
// collector a previous registration already installed.
func MustRegisterDomainMetrics(reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		mustRegisterCollector(reg, StockReservedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				StockReservedTotal = v
			}
		})
		mustRegisterCollector(reg, SettlementsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SettlementsTotal = v
			}
		})
		mustRegisterCollector(reg, SessionsAbandonedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				SessionsAbandonedTotal = v
			}
		})
		mustRegisterCollector(reg, PointsRedeemedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				PointsRedeemedTotal = v
			}
		})
		mustRegisterCollector(reg, SalesSweptTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				SalesSweptTotal = v
			}
		})
		mustRegisterCollector(reg, ExpiredStockRemovedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				ExpiredStockRemovedTotal = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
