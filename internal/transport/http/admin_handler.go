package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/infra/bank"
	"github.com/sirupsen/logrus"
)

// DeviceAuditor answers whether a device id has a live audit marker.
type DeviceAuditor interface {
	Seen(ctx context.Context, deviceID string) bool
}

// AdminHandler exposes the question bank editor and the device audit
// lookup. It is gated by a shared token header; with no token configured
// the endpoints are disabled entirely.
type AdminHandler struct {
	store   bank.Store
	devices DeviceAuditor
	log     *logrus.Logger
	token   string
}

func NewAdminHandler(store bank.Store, devices DeviceAuditor, log *logrus.Logger, token string) *AdminHandler {
	return &AdminHandler{store: store, devices: devices, log: log, token: token}
}

// Register mounts the admin routes on mux.
func (h *AdminHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/admin/questions", h.serveCollection)
	mux.HandleFunc("/admin/questions/", h.serveItem)
	mux.HandleFunc("/admin/devices/", h.serveDevice)
}

func (h *AdminHandler) serveCollection(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(w, r) {
		return
	}
	switch r.Method {
	case http.MethodGet:
		questions, err := h.store.Load(r.Context())
		if err != nil {
			h.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, questions)
	case http.MethodPost:
		var q domain.Question
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			http.Error(w, "invalid question payload", http.StatusBadRequest)
			return
		}
		if err := h.store.Add(r.Context(), q); err != nil {
			h.fail(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, q)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *AdminHandler) serveItem(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(w, r) {
		return
	}
	raw := strings.TrimPrefix(r.URL.Path, "/admin/questions/")
	index, err := strconv.Atoi(raw)
	if err != nil {
		http.Error(w, "invalid question index", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodPut:
		var q domain.Question
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			http.Error(w, "invalid question payload", http.StatusBadRequest)
			return
		}
		if err := h.store.Update(r.Context(), index, q); err != nil {
			h.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, q)
	case http.MethodDelete:
		if err := h.store.Remove(r.Context(), index); err != nil {
			h.fail(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type deviceAuditResponse struct {
	DeviceID string `json:"deviceId"`
	Seen     bool   `json:"seen"`
}

// serveDevice answers whether a device id was seen starting an attempt,
// so operators can correlate result rows with devices.
func (h *AdminHandler) serveDevice(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(w, r) {
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/admin/devices/")
	if id == "" {
		http.Error(w, "missing device id", http.StatusBadRequest)
		return
	}
	if h.devices == nil {
		http.Error(w, "device audit not configured", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, deviceAuditResponse{
		DeviceID: id,
		Seen:     h.devices.Seen(r.Context(), id),
	})
}

func (h *AdminHandler) authorized(w http.ResponseWriter, r *http.Request) bool {
	if h.token == "" {
		http.Error(w, "admin editor disabled", http.StatusForbidden)
		return false
	}
	if r.Header.Get("X-Admin-Token") != h.token {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return false
	}
	return true
}

func (h *AdminHandler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidQuestion):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, domain.ErrQuestionNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrBankUnavailable):
		h.log.WithError(err).Error("question bank unavailable")
		http.Error(w, "question bank unavailable", http.StatusServiceUnavailable)
	default:
		h.log.WithError(err).Error("admin edit failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
