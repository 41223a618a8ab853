package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BotUpdates = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "helperbot", Name: "updates_total", Help: "Processed telegram updates",
	})
	HandlerErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "helperbot", Name: "handler_errors_total", Help: "Handler errors",
	})
	DBPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "helperbot", Name: "db_ping_seconds", Help: "DB ping latency",
		Buckets: prometheus.DefBuckets,
	})
	TaskOps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "helperbot", Name: "task_ops_total", Help: "Task lifecycle operations by outcome",
	}, []string{"op", "outcome"})
	NotifyFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "helperbot", Name: "notify_failures_total", Help: "Notifications that were not delivered",
	})
	Tasks = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "helperbot", Name: "tasks", Help: "Tasks by status",
	}, []string{"status"})
)

func init() {
	prometheus.MustRegister(BotUpdates, HandlerErrors, DBPing, TaskOps, NotifyFailures, Tasks)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveDBPing(d time.Duration) { DBPing.Observe(d.Seconds()) }

// SetTaskCounts выставляет gauge по статусам; отсутствующие статусы обнуляются.
func SetTaskCounts(counts map[string]int, statuses ...string) {
	for _, s := range statuses {
		Tasks.WithLabelValues(s).Set(float64(counts[s]))
	}
}
