package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capture struct {
	mu        sync.Mutex
	payloads  []string
	events    []string
	signature string
}

func (c *capture) handler(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		c.mu.Lock()
		c.payloads = append(c.payloads, string(body))
		c.events = append(c.events, r.Header.Get("X-Webhook-Event"))
		c.signature = r.Header.Get("X-Webhook-Signature")
		c.mu.Unlock()
		w.WriteHeader(status)
	}
}

func (c *capture) wait(t *testing.T, count int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		n := len(c.payloads)
		c.mu.Unlock()
		if n >= count {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected %d deliveries", count)
}

func TestNotifyDeliversToSubscribers(t *testing.T) {
	cap := &capture{}
	server := httptest.NewServer(cap.handler(http.StatusOK))
	defer server.Close()

	n := NewNotifier(nil)
	_, err := n.Register(server.URL, "s3cret", []string{EventProcessingCompleted})
	require.NoError(t, err)

	n.Notify(EventProcessingCompleted, "session-1", map[string]int{"clips": 5})
	cap.wait(t, 1)

	cap.mu.Lock()
	defer cap.mu.Unlock()
	assert.Equal(t, EventProcessingCompleted, cap.events[0])

	var event Event
	require.NoError(t, json.Unmarshal([]byte(cap.payloads[0]), &event))
	assert.Equal(t, "session-1", event.SessionID)

	// Signature must verify against the raw payload.
	h := hmac.New(sha256.New, []byte("s3cret"))
	h.Write([]byte(cap.payloads[0]))
	assert.Equal(t, "sha256="+hex.EncodeToString(h.Sum(nil)), cap.signature)
}

func TestNotifySkipsUnsubscribedEvents(t *testing.T) {
	cap := &capture{}
	server := httptest.NewServer(cap.handler(http.StatusOK))
	defer server.Close()

	n := NewNotifier(nil)
	_, err := n.Register(server.URL, "", []string{EventRenderCompleted})
	require.NoError(t, err)

	n.Notify(EventProcessingCompleted, "session-1", nil)

	time.Sleep(100 * time.Millisecond)
	cap.mu.Lock()
	defer cap.mu.Unlock()
	assert.Empty(t, cap.payloads)
}

func TestRegisterValidation(t *testing.T) {
	n := NewNotifier(nil)

	_, err := n.Register("", "", []string{EventRenderCompleted})
	assert.Error(t, err)

	_, err = n.Register("http://example.com/hook", "", nil)
	assert.Error(t, err)

	_, err = n.Register("http://example.com/hook", "", []string{"made.up"})
	assert.Error(t, err)
}

func TestUnregister(t *testing.T) {
	cap := &capture{}
	server := httptest.NewServer(cap.handler(http.StatusOK))
	defer server.Close()

	n := NewNotifier(nil)
	reg, err := n.Register(server.URL, "", []string{EventClipsGenerated})
	require.NoError(t, err)
	require.Len(t, n.List(), 1)

	n.Unregister(reg.ID)
	assert.Empty(t, n.List())

	n.Notify(EventClipsGenerated, "session-1", nil)
	time.Sleep(100 * time.Millisecond)

	cap.mu.Lock()
	defer cap.mu.Unlock()
	assert.Empty(t, cap.payloads)
}
