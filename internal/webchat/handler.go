// Package webchat carries the lead-capture chat between the site widget and one
// conversation engine per visitor session.
package webchat

import (
	"context"
	"crypto/rand"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/optimumsoft/optimumsoft-web/internal/chatbot"
	"github.com/optimumsoft/optimumsoft-web/internal/observability/metrics"
	"github.com/optimumsoft/optimumsoft-web/pkg/logging"
	"golang.org/x/net/websocket"
)

//go:embed widget.js
var widgetJS []byte

// EngineFactory builds the engine for a new session. The listener must be
// registered with chatbot.WithListener so events reach the widget.
type EngineFactory func(listener chatbot.Listener) *chatbot.Engine

// Handler manages web chat sessions, connections and messages.
type Handler struct {
	newEngine   EngineFactory
	logger      *logging.Logger
	metrics     *metrics.LeadMetrics
	idleTimeout time.Duration
	now         func() time.Time

	mu       sync.RWMutex
	sessions map[string]*session
}

type session struct {
	id     string
	engine *chatbot.Engine

	mu       sync.Mutex
	conn     *websocket.Conn
	lastSeen time.Time
}

func (s *session) send(msg OutboundMessage) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return
	}
	_ = websocket.JSON.Send(conn, msg)
}

func (s *session) attach(conn *websocket.Conn, now time.Time) {
	s.mu.Lock()
	s.conn = conn
	s.lastSeen = now
	s.mu.Unlock()
}

// detach clears conn unless a newer connection already replaced it.
func (s *session) detach(conn *websocket.Conn, now time.Time) {
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *session) idleSince(now time.Time) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen), s.conn != nil
}

// InboundMessage is what the widget sends.
type InboundMessage struct {
	Type      string `json:"type"` // "message", "typing", "close", "ping"
	SessionID string `json:"session_id,omitempty"`
	Text      string `json:"text"`
}

// NewHandler creates a web chat handler. idleTimeout bounds how long a session
// without a live connection survives.
func NewHandler(newEngine EngineFactory, idleTimeout time.Duration, m *metrics.LeadMetrics, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if idleTimeout <= 0 {
		idleTimeout = 30 * time.Minute
	}
	return &Handler{
		newEngine:   newEngine,
		logger:      logger,
		metrics:     m,
		idleTimeout: idleTimeout,
		now:         time.Now,
		sessions:    make(map[string]*session),
	}
}

// generateSessionID creates a random session identifier.
func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return uuid.New().String()
	}
	return hex.EncodeToString(b)
}

func (h *Handler) createSession() *session {
	s := &session{id: generateSessionID(), lastSeen: h.now()}
	s.engine = h.newEngine(func(ev chatbot.Event) {
		s.send(frameForEvent(ev))
	})

	h.mu.Lock()
	h.sessions[s.id] = s
	h.mu.Unlock()
	h.metrics.SessionOpened()
	h.logger.Debug("webchat: session created", "session_id", s.id)
	return s
}

func (h *Handler) lookup(id string) (*session, bool) {
	if id == "" {
		return nil, false
	}
	h.mu.RLock()
	s, ok := h.sessions[id]
	h.mu.RUnlock()
	if ok {
		s.touch(h.now())
	}
	return s, ok
}

// removeSession resets the engine and forgets the session.
func (h *Handler) removeSession(id string) bool {
	h.mu.Lock()
	s, ok := h.sessions[id]
	delete(h.sessions, id)
	h.mu.Unlock()
	if !ok {
		return false
	}
	s.engine.Reset()
	h.metrics.SessionClosed()
	h.logger.Debug("webchat: session closed", "session_id", id)
	return true
}

// SessionCount returns the number of live sessions.
func (h *Handler) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// HandleWebSocket upgrades to WebSocket and handles real-time messaging.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	s, ok := h.lookup(r.URL.Query().Get("session"))
	if !ok {
		s = h.createSession()
	}

	s.attach(conn, h.now())
	defer s.detach(conn, h.now())

	_ = websocket.JSON.Send(conn, OutboundMessage{Type: "session", SessionID: s.id})
	if snap := s.engine.Snapshot(); len(snap.Transcript) > 0 {
		_ = websocket.JSON.Send(conn, OutboundMessage{
			Type:     "history",
			Step:     string(snap.Step),
			Messages: historyFromTranscript(snap.Transcript),
		})
	}
	s.engine.Open()

	h.logger.Info("webchat: connection opened", "session_id", s.id)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("webchat: connection closed", "session_id", s.id, "error", err)
			return
		}
		s.touch(h.now())

		switch msg.Type {
		case "ping":
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "pong"})
		case "typing":
			s.engine.SetPending(msg.Text)
		case "message":
			if _, err := s.engine.SubmitAnswer(msg.Text); err != nil {
				if text := answerErrorText(err); text != "" {
					_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: text})
				}
			}
		case "close":
			h.removeSession(s.id)
			return
		}
	}
}

// answerErrorText is the notice for a refused answer. Validation failures return ""
// because the engine posts its own retry prompt.
func answerErrorText(err error) string {
	switch {
	case errors.Is(err, chatbot.ErrInvalidAnswer):
		return ""
	case errors.Is(err, chatbot.ErrPromptPending):
		return "One moment, the next question is on its way."
	case errors.Is(err, chatbot.ErrNotAccepting):
		return "This conversation is not accepting messages right now."
	case errors.Is(err, chatbot.ErrClosed):
		return "The chat is closed. Open it again to start over."
	default:
		return "Sorry, something went wrong. Please try again."
	}
}

type sessionResponse struct {
	SessionID string        `json:"session_id"`
	State     chatbot.State `json:"state"`
}

// HandleOpen is the HTTP fallback for opening the widget: POST /chat/sessions.
func (h *Handler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	s := h.createSession()
	s.engine.Open()
	writeJSON(w, http.StatusCreated, sessionResponse{SessionID: s.id, State: s.engine.Snapshot()})
}

// HandleMessage is the HTTP fallback for sending an answer.
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
		Text      string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}
	s, ok := h.lookup(req.SessionID)
	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}

	step, err := s.engine.SubmitAnswer(req.Text)
	if err != nil {
		status := http.StatusConflict
		code := "not_accepting"
		if errors.Is(err, chatbot.ErrInvalidAnswer) {
			status = http.StatusUnprocessableEntity
			code = "invalid_answer"
		}
		writeJSON(w, status, map[string]string{
			"error":   code,
			"message": answerErrorText(err),
			"step":    string(step),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":     "accepted",
		"session_id": s.id,
		"step":       string(step),
	})
}

// HandleHistory returns the conversation state for a session.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}
	s, ok := h.lookup(sessionID)
	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	snap := s.engine.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": s.id,
		"state":      snap,
		"messages":   historyFromTranscript(snap.Transcript),
	})
}

// HandleClose resets and forgets a session: POST /chat/close.
func (h *Handler) HandleClose(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}
	if !h.removeSession(req.SessionID) {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleWidgetJS serves the embeddable widget JavaScript.
func (h *Handler) HandleWidgetJS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	_, _ = w.Write(widgetJS)
}

// Sweep closes sessions with no live connection that have been idle longer than
// the timeout. It returns how many were closed.
func (h *Handler) Sweep() int {
	now := h.now()
	h.mu.RLock()
	var expired []string
	for id, s := range h.sessions {
		idle, connected := s.idleSince(now)
		if !connected && idle > h.idleTimeout {
			expired = append(expired, id)
		}
	}
	h.mu.RUnlock()

	closed := 0
	for _, id := range expired {
		if h.removeSession(id) {
			closed++
		}
	}
	if closed > 0 {
		h.logger.Info("webchat: idle sessions swept", "count", closed)
	}
	return closed
}

// Run sweeps idle sessions until ctx is cancelled, then resets every remaining one.
func (h *Handler) Run(ctx context.Context) {
	interval := h.idleTimeout / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-ticker.C:
			h.Sweep()
		}
	}
}

func (h *Handler) closeAll() {
	h.mu.RLock()
	ids := make([]string, 0, len(h.sessions))
	for id := range h.sessions {
		ids = append(ids, id)
	}
	h.mu.RUnlock()
	for _, id := range ids {
		h.removeSession(id)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
