package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SessionsStarted counts accepted quiz starts.
	SessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quiz_sessions_started_total",
		Help: "Number of quiz sessions started",
	})
	// SessionsCompleted counts sessions whose result row was persisted.
	SessionsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quiz_sessions_completed_total",
		Help: "Number of quiz sessions completed and recorded",
	})
	// DuplicateRejections counts starts refused for an already-used name.
	DuplicateRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quiz_duplicate_rejections_total",
		Help: "Number of quiz starts rejected as duplicate participants",
	})
	// QuestionTimeouts counts questions auto-submitted as skipped.
	QuestionTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quiz_question_timeouts_total",
		Help: "Number of questions auto-submitted after the time budget elapsed",
	})
)

// Handler exposes the default registry for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
