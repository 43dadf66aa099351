// Package metrics exposes the Engine's Prometheus collectors: counters
// for order/trade volume and histograms for price distribution and
// matching latency.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds every collector the Engine updates while processing
// commands. Construct one with New and serve its Registry over HTTP,
// e.g. with promhttp.HandlerFor.
type Metrics struct {
	Registry *prometheus.Registry

	OrdersReceivedTotal prometheus.Counter
	OrdersFilledTotal   prometheus.Counter
	TradesTotal         prometheus.Counter

	BuyOrderPrice  prometheus.Histogram
	SellOrderPrice prometheus.Histogram

	MatchingDuration prometheus.Histogram
}

// New constructs and registers every collector against a fresh
// registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		OrdersReceivedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orders_received_total",
			Help: "Number of orders received by the engine.",
		}),
		OrdersFilledTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orders_filled_total",
			Help: "Number of orders that reached FullyFilled disposition.",
		}),
		TradesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trades_total",
			Help: "Number of trades produced by the matcher.",
		}),
		BuyOrderPrice: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "buy_order_price",
			Help: "Distribution of incoming buy order prices.",
		}),
		SellOrderPrice: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "sell_order_price",
			Help: "Distribution of incoming sell order prices.",
		}),
		MatchingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "matching_duration_seconds",
			Help: "Time to match an incoming order against the book.",
		}),
	}

	m.Registry.MustRegister(
		m.OrdersReceivedTotal,
		m.OrdersFilledTotal,
		m.TradesTotal,
		m.BuyOrderPrice,
		m.SellOrderPrice,
		m.MatchingDuration,
	)
	return m
}
