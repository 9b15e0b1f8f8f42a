package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry 本进程专用的指标注册表（不污染 prometheus.DefaultRegisterer）
var Registry = prometheus.NewRegistry()

var (
	// BetsSubmitted 按结果统计提交：ok / conflict_recovered / conflict_escalated / rejected / invalid
	BetsSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridwager_bets_total",
			Help: "Bet submission attempts by outcome",
		},
		[]string{"outcome"},
	)

	NonceConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gridwager_nonce_conflicts_total",
			Help: "Nonce conflict responses received from the server",
		},
	)

	DurabilityWarnings = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gridwager_sequence_durability_warnings_total",
			Help: "Failed loads/saves of the local nonce store",
		},
	)

	CommentaryScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gridwager_commentary_score",
			Help:    "Local quality score of submitted commentary",
			Buckets: []float64{20, 40, 60, 75, 90, 100},
		},
	)

	SelectedStrategy = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridwager_strategy_selections_total",
			Help: "Grid selections by strategy",
		},
		[]string{"strategy"},
	)
)

func init() {
	Registry.MustRegister(BetsSubmitted, NonceConflicts, DurabilityWarnings, CommentaryScore, SelectedStrategy)
}
