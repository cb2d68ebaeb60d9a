package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// /metrics で公開する業務カウンタ。
var (
	IssueRequestsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parts_issue_requests_created_total",
		Help: "Number of parts issue requests created.",
	})

	DispatchesRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parts_issue_dispatches_recorded_total",
		Help: "Number of dispatch records written.",
	})

	//不正な状態遷移の試行回数（409を返した数）
	StateConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parts_issue_state_conflicts_total",
		Help: "Number of rejected state transition attempts.",
	})
)
