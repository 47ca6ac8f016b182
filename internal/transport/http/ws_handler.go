package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/domain"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const deviceCookieName = "quiz_device"

// WSHandler drives one quiz session per websocket connection. The client
// sends transition commands; the server answers with state snapshots. A
// ticker re-observes the session every second so countdowns (and their
// timeout auto-submits) reach the client without it polling.
type WSHandler struct {
	service  *app.QuizService
	log      *logrus.Logger
	cookies  *sessions.CookieStore
	upgrader websocket.Upgrader
	topSize  int
}

func NewWSHandler(service *app.QuizService, log *logrus.Logger, cookies *sessions.CookieStore, topSize int) *WSHandler {
	if topSize <= 0 {
		topSize = 10
	}
	return &WSHandler{
		service: service,
		log:     log,
		cookies: cookies,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		topSize: topSize,
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	Name string `json:"name"`
}

type selectPayload struct {
	Option string `json:"option"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type finishedPayload struct {
	Name           string                   `json:"name"`
	Score          int                      `json:"score"`
	Total          int                      `json:"total"`
	ElapsedSeconds float64                  `json:"elapsedSeconds"`
	Top            []domain.LeaderboardEntry `json:"top"`
}

// ServeWS upgrades the request and wires the connection to the quiz use cases.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	deviceID := h.deviceID(w, r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	sessionID := uuid.NewString()
	defer h.service.Discard(sessionID)

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	tickerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.WithError(err).Debug("ws write error")
				return
			}
		}
	}()

	// Countdown observer: each tick is an observation of the session, which
	// is also where an elapsed budget auto-submits the skip sentinel.
	go func() {
		defer close(tickerDone)
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				snap, err := h.service.Snapshot(sessionID)
				if err != nil || snap.State != domain.StateInProgress {
					continue
				}
				select {
				case send <- outboundMessage[any]{Type: "state", Payload: snap}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.handle(r, sessionID, deviceID, inbound, send)
	}

	close(closeSignals)
	<-tickerDone
	close(send)
	<-writerDone
}

func (h *WSHandler) handle(r *http.Request, sessionID, deviceID string, inbound inboundMessage, send chan<- outboundMessage[any]) {
	ctx := r.Context()

	var snap domain.SessionSnapshot
	var err error

	switch inbound.Type {
	case "start":
		var payload startPayload
		if jsonErr := json.Unmarshal(inbound.Payload, &payload); jsonErr != nil {
			send <- errorMessage("invalid start payload")
			return
		}
		snap, err = h.service.StartQuiz(ctx, sessionID, payload.Name, deviceID)
	case "select":
		var payload selectPayload
		if jsonErr := json.Unmarshal(inbound.Payload, &payload); jsonErr != nil {
			send <- errorMessage("invalid select payload")
			return
		}
		snap, err = h.service.SelectOption(sessionID, payload.Option)
	case "submit":
		snap, err = h.service.Submit(sessionID)
	case "advance":
		snap, err = h.service.Advance(ctx, sessionID)
	case "restart":
		snap, err = h.service.Restart(sessionID)
	case "state":
		snap, err = h.service.Snapshot(sessionID)
	default:
		send <- errorMessage("unsupported message type")
		return
	}

	if err != nil {
		send <- errorMessage(err.Error())
		// Failed transitions still carry the session's current view so the
		// client can re-render; rejected starts have no session to show.
		if !errors.Is(err, domain.ErrSessionNotFound) && snap.State != "" {
			send <- outboundMessage[any]{Type: "state", Payload: snap}
		}
		return
	}

	send <- outboundMessage[any]{Type: "state", Payload: snap}

	if snap.State == domain.StateFinished {
		top, topErr := h.service.TopResults(ctx, h.topSize)
		if topErr != nil {
			h.log.WithError(topErr).Warn("leaderboard after finish failed")
		}
		send <- outboundMessage[any]{Type: "finished", Payload: finishedPayload{
			Name:           snap.Name,
			Score:          snap.Score,
			Total:          snap.Total,
			ElapsedSeconds: snap.ElapsedSeconds,
			Top:            top,
		}}
	}
}

// deviceID reads or mints the opaque per-browser identifier. It is an
// audit field only, never an enforced uniqueness key.
func (h *WSHandler) deviceID(w http.ResponseWriter, r *http.Request) string {
	session, err := h.cookies.Get(r, deviceCookieName)
	if err != nil {
		session, _ = h.cookies.New(r, deviceCookieName)
	}
	if id, ok := session.Values["id"].(string); ok && id != "" {
		return id
	}
	id := uuid.NewString()
	session.Values["id"] = id
	if err := session.Save(r, w); err != nil {
		h.log.WithError(err).Debug("device cookie save failed")
	}
	return id
}

func errorMessage(msg string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
}
