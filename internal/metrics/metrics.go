package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of API requests by route and status code.",
	}, []string{"method", "route", "status"})

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "End-to-end handler duration for API requests.",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"method", "route"})

	// RPC failover: one sample per endpoint attempt
	RPCAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rpc_attempts_total",
		Help: "RPC endpoint attempts made by the failover resolver.",
	}, []string{"endpoint", "result"})

	SimulationFallbacksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "airdrop_simulation_fallbacks_total",
		Help: "Airdrop answers served from the local claim ledger because every RPC endpoint failed.",
	}, []string{"operation"})

	ClaimsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "airdrop_claims_total",
		Help: "Recorded airdrop claims by mode.",
	}, []string{"mode"})

	StoreEvictionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "store_evictions_total",
		Help: "Items evicted from the TTL stores.",
	}, []string{"store"})

	UpstreamRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "upstream_requests_total",
		Help: "Requests proxied to the Developer Portal.",
	}, []string{"operation", "result"})
)

func MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDurationSeconds,
		RPCAttemptsTotal,
		SimulationFallbacksTotal,
		ClaimsTotal,
		StoreEvictionsTotal,
		UpstreamRequestsTotal,
	)
}
