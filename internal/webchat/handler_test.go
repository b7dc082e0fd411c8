package webchat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/optimumsoft/optimumsoft-web/internal/chatbot"
	"github.com/optimumsoft/optimumsoft-web/internal/gateway"
	"github.com/optimumsoft/optimumsoft-web/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

type stubSubmitter struct {
	mu   sync.Mutex
	subs []gateway.Submission
}

func (s *stubSubmitter) Submit(_ context.Context, sub gateway.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, sub)
	return nil
}

func (s *stubSubmitter) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func newTestHandler(sub chatbot.Submitter) *Handler {
	logger := logging.New("error")
	return NewHandler(func(l chatbot.Listener) *chatbot.Engine {
		return chatbot.New(sub,
			chatbot.WithListener(l),
			chatbot.WithPacing(chatbot.NoPacing()),
			chatbot.WithLogger(logger),
		)
	}, time.Minute, nil, logger)
}

func TestGenerateSessionID(t *testing.T) {
	s1 := generateSessionID()
	s2 := generateSessionID()
	assert.NotEmpty(t, s1)
	assert.NotEqual(t, s1, s2)
	assert.Len(t, s1, 32) // 16 bytes = 32 hex chars
}

func openSession(t *testing.T, h *Handler) string {
	t.Helper()
	w := httptest.NewRecorder()
	h.HandleOpen(w, httptest.NewRequest(http.MethodPost, "/chat/sessions", nil))
	require.Equal(t, http.StatusCreated, w.Code)
	var resp sessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SessionID)
	assert.True(t, resp.State.Open)
	return resp.SessionID
}

func history(t *testing.T, h *Handler, id string) chatbot.State {
	t.Helper()
	w := httptest.NewRecorder()
	h.HandleHistory(w, httptest.NewRequest(http.MethodGet, "/chat/history?session="+id, nil))
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		State    chatbot.State    `json:"state"`
		Messages []HistoryMessage `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Messages, len(resp.State.Transcript))
	return resp.State
}

func postMessage(h *Handler, id, text string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(map[string]string{"session_id": id, "text": text})
	req := httptest.NewRequest(http.MethodPost, "/chat/message", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.HandleMessage(w, req)
	return w
}

func waitForPrompt(t *testing.T, h *Handler, id string) {
	t.Helper()
	require.Eventually(t, func() bool { return history(t, h, id).PromptShown }, 2*time.Second, 5*time.Millisecond)
}

func TestHTTPFallbackConversation(t *testing.T) {
	sub := &stubSubmitter{}
	h := newTestHandler(sub)
	id := openSession(t, h)

	waitForPrompt(t, h, id)
	w := postMessage(h, id, "J")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_answer")

	waitForPrompt(t, h, id)
	w = postMessage(h, id, "Jane")
	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "email", resp["step"])

	for _, answer := range []string{"jane@x.com", "1234567890", "I need a website built"} {
		waitForPrompt(t, h, id)
		require.Equal(t, http.StatusOK, postMessage(h, id, answer).Code)
	}

	require.Eventually(t, func() bool { return history(t, h, id).Step == chatbot.StepComplete }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, sub.Count())

	w = postMessage(h, id, "one more thing to add")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHandleMessage_Errors(t *testing.T) {
	h := newTestHandler(&stubSubmitter{})

	w := httptest.NewRecorder()
	h.HandleMessage(w, httptest.NewRequest(http.MethodPost, "/chat/message", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	h.HandleMessage(w, httptest.NewRequest(http.MethodPost, "/chat/message", strings.NewReader(`{"text":"hi"}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, http.StatusNotFound, postMessage(h, "nope", "hello").Code)
}

func TestHandleHistory_Errors(t *testing.T) {
	h := newTestHandler(&stubSubmitter{})

	w := httptest.NewRecorder()
	h.HandleHistory(w, httptest.NewRequest(http.MethodGet, "/chat/history", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	h.HandleHistory(w, httptest.NewRequest(http.MethodGet, "/chat/history?session=missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleClose(t *testing.T) {
	h := newTestHandler(&stubSubmitter{})
	id := openSession(t, h)
	require.Equal(t, 1, h.SessionCount())

	closeReq := func() int {
		w := httptest.NewRecorder()
		h.HandleClose(w, httptest.NewRequest(http.MethodPost, "/chat/close", strings.NewReader(`{"session_id":"`+id+`"}`)))
		return w.Code
	}
	assert.Equal(t, http.StatusNoContent, closeReq())
	assert.Equal(t, 0, h.SessionCount())
	assert.Equal(t, http.StatusNotFound, closeReq())
}

func TestSweepClosesIdleSessions(t *testing.T) {
	h := newTestHandler(&stubSubmitter{})
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return clock }

	idle := h.createSession()
	connected := h.createSession()
	fake := &websocket.Conn{}
	connected.attach(fake, clock)

	clock = clock.Add(30 * time.Second)
	assert.Equal(t, 0, h.Sweep())

	clock = clock.Add(2 * time.Minute)
	assert.Equal(t, 1, h.Sweep())
	_, ok := h.lookup(idle.id)
	assert.False(t, ok)
	assert.Equal(t, 1, h.SessionCount())

	connected.detach(fake, clock)
	h.closeAll()
	assert.Equal(t, 0, h.SessionCount())
}

func TestRunStopsAndClosesSessions(t *testing.T) {
	h := newTestHandler(&stubSubmitter{})
	openSession(t, h)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()
	cancel()
	<-done
	assert.Equal(t, 0, h.SessionCount())
}

func TestHandleWidgetJS(t *testing.T) {
	h := newTestHandler(&stubSubmitter{})

	w := httptest.NewRecorder()
	h.HandleWidgetJS(w, httptest.NewRequest(http.MethodGet, "/chat/widget.js", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/javascript", w.Header().Get("Content-Type"))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Body.String(), "/chat/ws")
}

func dialChat(t *testing.T, srv *httptest.Server, session string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat/ws"
	if session != "" {
		url += "?session=" + session
	}
	conn, err := websocket.Dial(url, "", srv.URL)
	require.NoError(t, err)
	return conn
}

func readUntil(t *testing.T, conn *websocket.Conn, match func(OutboundMessage) bool) OutboundMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var msg OutboundMessage
		require.NoError(t, websocket.JSON.Receive(conn, &msg))
		if match(msg) {
			return msg
		}
	}
}

func botSays(text string) func(OutboundMessage) bool {
	return func(m OutboundMessage) bool {
		return m.Type == "message" && m.Role == "bot" && m.Text == text
	}
}

func TestWebSocketConversation(t *testing.T) {
	sub := &stubSubmitter{}
	h := newTestHandler(sub)
	mux := http.NewServeMux()
	mux.HandleFunc("/chat/ws", h.HandleWebSocket)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	conn := dialChat(t, srv, "")
	defer conn.Close()

	session := readUntil(t, conn, func(m OutboundMessage) bool { return m.Type == "session" })
	require.NotEmpty(t, session.SessionID)

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "ping"}))
	readUntil(t, conn, func(m OutboundMessage) bool { return m.Type == "pong" })

	steps := []struct {
		prompt chatbot.Step
		answer string
	}{
		{chatbot.StepName, "Jane"},
		{chatbot.StepEmail, "jane@x.com"},
		{chatbot.StepPhone, "1234567890"},
		{chatbot.StepMessage, "I need a website built"},
	}
	for _, s := range steps {
		readUntil(t, conn, botSays(chatbot.Question(s.prompt)))
		require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "typing", Text: s.answer}))
		require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "message", Text: s.answer}))
	}

	readUntil(t, conn, func(m OutboundMessage) bool { return m.Type == "step" && m.Step == "complete" })
	assert.Equal(t, 1, sub.Count())

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "message", Text: "anything else?"}))
	notice := readUntil(t, conn, func(m OutboundMessage) bool { return m.Type == "error" })
	assert.NotEmpty(t, notice.Text)

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "close"}))
	require.Eventually(t, func() bool { return h.SessionCount() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestWebSocketReconnectResumesSession(t *testing.T) {
	h := newTestHandler(&stubSubmitter{})
	mux := http.NewServeMux()
	mux.HandleFunc("/chat/ws", h.HandleWebSocket)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	first := dialChat(t, srv, "")
	id := readUntil(t, first, func(m OutboundMessage) bool { return m.Type == "session" }).SessionID
	readUntil(t, first, botSays(chatbot.Question(chatbot.StepName)))
	require.NoError(t, first.Close())

	second := dialChat(t, srv, id)
	defer second.Close()
	session := readUntil(t, second, func(m OutboundMessage) bool { return m.Type == "session" })
	assert.Equal(t, id, session.SessionID)
	hist := readUntil(t, second, func(m OutboundMessage) bool { return m.Type == "history" })
	require.Len(t, hist.Messages, 2)
	assert.Equal(t, chatbot.Question(chatbot.StepName), hist.Messages[1].Text)
	assert.Equal(t, 1, h.SessionCount())
}
