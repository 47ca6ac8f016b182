package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/domain"
	"github.com/sirupsen/logrus"
)

// LeaderboardHandler exposes the two read-only leaderboard queries.
type LeaderboardHandler struct {
	service     *app.QuizService
	log         *logrus.Logger
	defaultSize int
}

func NewLeaderboardHandler(service *app.QuizService, log *logrus.Logger, defaultSize int) *LeaderboardHandler {
	if defaultSize <= 0 {
		defaultSize = 10
	}
	return &LeaderboardHandler{service: service, log: log, defaultSize: defaultSize}
}

// ServeTop handles GET /leaderboard?n=10: top n by score desc, time asc.
func (h *LeaderboardHandler) ServeTop(w http.ResponseWriter, r *http.Request) {
	n := h.size(r)
	entries, err := h.service.TopResults(r.Context(), n)
	if err != nil {
		h.log.WithError(err).Error("top leaderboard query failed")
		http.Error(w, "leaderboard unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, boardResponse{Entries: entries})
}

// ServeFastestPerfect handles GET /leaderboard/fastest?n=10: the fastest
// rows among those holding the maximum observed score.
func (h *LeaderboardHandler) ServeFastestPerfect(w http.ResponseWriter, r *http.Request) {
	n := h.size(r)
	entries, err := h.service.FastestPerfect(r.Context(), n)
	if err != nil {
		h.log.WithError(err).Error("fastest-perfect query failed")
		http.Error(w, "leaderboard unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, boardResponse{Entries: entries})
}

type boardResponse struct {
	Entries []domain.LeaderboardEntry `json:"entries"`
}

func (h *LeaderboardHandler) size(r *http.Request) int {
	if raw := r.URL.Query().Get("n"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			return n
		}
	}
	return h.defaultSize
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
