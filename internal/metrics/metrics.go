package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WorkflowOutcomes counts facade results per operation and outcome so
// duplicate races and rejection rates show up on the dashboard.
var WorkflowOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "campus_workflow_outcomes_total",
	Help: "Workflow facade results by operation and outcome.",
}, []string{"operation", "outcome"})

// ScanDecodes counts scan pipeline decode results.
var ScanDecodes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "campus_scan_decodes_total",
	Help: "Scan pipeline decode results (resolved or lookup_error).",
}, []string{"result"})
