package metrics

import (
    "sync"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/collectors"
)

var (
    // Registry is the dedicated Prometheus registry for the API
    Registry = prometheus.NewRegistry()
    // HTTPRequests counts requests by method, path, and status
    HTTPRequests = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
        []string{"method", "path", "status"},
    )
    // HTTPDuration records request durations in seconds
    HTTPDuration = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
        []string{"method", "path", "status"},
    )

    // OptimizeRuns counts optimization runs by tenant and outcome
    OptimizeRuns = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "optimize_runs_total", Help: "Optimization runs by outcome."},
        []string{"tenant", "status"},
    )
    // RunGenerations observes how many generations each run executed
    RunGenerations = prometheus.NewHistogram(
        prometheus.HistogramOpts{Name: "optimize_run_generations", Help: "Generations executed per run.", Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000}},
    )
    // RunDuration observes wall time per run in seconds
    RunDuration = prometheus.NewHistogram(
        prometheus.HistogramOpts{Name: "optimize_run_duration_seconds", Help: "Run duration in seconds.", Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300}},
    )
    // BestScore tracks the latest best penalty score per tenant
    BestScore = prometheus.NewGaugeVec(
        prometheus.GaugeOpts{Name: "optimize_best_score", Help: "Best penalty score of the most recent run."},
        []string{"tenant"},
    )

    // WebhookDeliveries counts webhook delivery outcomes by event type and status
    WebhookDeliveries = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "webhook_deliveries_total", Help: "Webhook deliveries by event type and status."},
        []string{"event_type", "status"},
    )
)

// RegisterDefault registers collectors to the default registry.
func RegisterDefault() {
    regOnce.Do(func(){
        Registry.MustRegister(HTTPRequests)
        Registry.MustRegister(HTTPDuration)
        Registry.MustRegister(OptimizeRuns)
        Registry.MustRegister(RunGenerations)
        Registry.MustRegister(RunDuration)
        Registry.MustRegister(BestScore)
        Registry.MustRegister(WebhookDeliveries)
        // Go/process collectors on our registry
        Registry.MustRegister(collectors.NewGoCollector())
        Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
    })
}

var regOnce sync.Once
