package http_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	botHTTP "github.com/vkarpenko/slotbot/internal/adapters/http"
	"github.com/vkarpenko/slotbot/pkg/domain"
)

type recordingHandler struct {
	mu     sync.Mutex
	userID string
	event  domain.Event
	done   chan struct{}
}

func (h *recordingHandler) HandleEvent(ctx context.Context, userID string, ev domain.Event) error {
	h.mu.Lock()
	h.userID = userID
	h.event = ev
	h.mu.Unlock()
	close(h.done)
	return nil
}

func TestWebhook_CallbackUpdate(t *testing.T) {
	handler := &recordingHandler{done: make(chan struct{})}
	srv := httptest.NewServer(botHTTP.NewHandler(handler))
	defer srv.Close()

	body := []byte(`{
		"update_id": 1,
		"callback_query": {
			"id": "cb-1",
			"data": "menu_tasks:",
			"message": {"message_id": 42, "chat": {"id": 100500}}
		}
	}`)

	resp, err := http.Post(srv.URL+"/webhook", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	select {
	case <-handler.done:
	case <-time.After(time.Second):
		t.Fatal("handler was not invoked")
	}

	handler.mu.Lock()
	defer handler.mu.Unlock()
	assert.Equal(t, "100500", handler.userID)
	assert.Equal(t, domain.EventCallback, handler.event.Kind)
	assert.Equal(t, "menu_tasks:", handler.event.Data)
	assert.Equal(t, "42", handler.event.MessageID)
}

func TestWebhook_TextUpdate(t *testing.T) {
	handler := &recordingHandler{done: make(chan struct{})}
	srv := httptest.NewServer(botHTTP.NewHandler(handler))
	defer srv.Close()

	body := []byte(`{
		"update_id": 2,
		"message": {"message_id": 7, "text": "/start", "chat": {"id": 3}}
	}`)

	resp, err := http.Post(srv.URL+"/webhook", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	<-handler.done
	handler.mu.Lock()
	defer handler.mu.Unlock()
	assert.Equal(t, "3", handler.userID)
	assert.Equal(t, domain.EventText, handler.event.Kind)
	assert.Equal(t, "/start", handler.event.Text)
}

func TestWebhook_SecretRejected(t *testing.T) {
	handler := &recordingHandler{done: make(chan struct{})}
	srv := httptest.NewServer(botHTTP.NewHandler(handler, botHTTP.WithSecret("s3cret")))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/webhook", "application/json", bytes.NewReader([]byte(`{}`)))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestWebhook_SecretAccepted(t *testing.T) {
	handler := &recordingHandler{done: make(chan struct{})}
	srv := httptest.NewServer(botHTTP.NewHandler(handler, botHTTP.WithSecret("s3cret")))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/webhook",
		bytes.NewReader([]byte(`{"update_id":3,"message":{"message_id":1,"text":"hi","chat":{"id":9}}}`)))
	req.Header.Set("X-Telegram-Bot-Api-Secret-Token", "s3cret")
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	<-handler.done
}

type panickingHandler struct {
	done chan struct{}
}

func (h *panickingHandler) HandleEvent(ctx context.Context, userID string, ev domain.Event) error {
	defer close(h.done)
	panic("session state corrupted")
}

func TestWebhook_HandlerPanicDoesNotKillServer(t *testing.T) {
	handler := &panickingHandler{done: make(chan struct{})}
	srv := httptest.NewServer(botHTTP.NewHandler(handler))
	defer srv.Close()

	body := []byte(`{
		"update_id": 5,
		"message": {"message_id": 1, "text": "hi", "chat": {"id": 9}}
	}`)

	resp, err := http.Post(srv.URL+"/webhook", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	select {
	case <-handler.done:
	case <-time.After(time.Second):
		t.Fatal("handler was not invoked")
	}

	// The server keeps serving after the panicking event.
	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	handler := &recordingHandler{done: make(chan struct{})}
	srv := httptest.NewServer(botHTTP.NewHandler(handler))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
