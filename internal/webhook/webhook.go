// Package webhook notifies registered endpoints about pipeline events.
// Registrations live in memory alongside the sessions they describe; a
// restart drops both, so subscribers re-register on reconnect.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"clipforge/internal/logging"
)

// Pipeline events a subscriber can register for.
const (
	EventProcessingCompleted = "processing.completed"
	EventProcessingFailed    = "processing.failed"
	EventClipsGenerated      = "clips.generated"
	EventRenderCompleted     = "render.completed"
)

// Registration is one subscriber endpoint.
type Registration struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Secret    string    `json:"-"`
	Events    []string  `json:"events"`
	CreatedAt time.Time `json:"created_at"`
}

// Event is the delivered payload envelope.
type Event struct {
	Event     string      `json:"event"`
	SessionID string      `json:"session_id"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

const maxAttempts = 3

// Notifier delivers pipeline events to registered endpoints.
type Notifier struct {
	client *http.Client
	log    *logging.Logger

	mu            sync.RWMutex
	registrations map[string]*Registration
}

// NewNotifier creates an empty notifier.
func NewNotifier(log *logging.Logger) *Notifier {
	if log == nil {
		log = logging.Nop()
	}
	return &Notifier{
		client:        &http.Client{Timeout: 30 * time.Second},
		log:           log,
		registrations: make(map[string]*Registration),
	}
}

// Register adds a subscriber endpoint and returns its registration.
func (n *Notifier) Register(url, secret string, events []string) (*Registration, error) {
	if url == "" {
		return nil, fmt.Errorf("webhook url is required")
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("at least one event is required")
	}
	for _, event := range events {
		if !knownEvent(event) {
			return nil, fmt.Errorf("unknown event %q", event)
		}
	}

	reg := &Registration{
		ID:        uuid.New().String(),
		URL:       url,
		Secret:    secret,
		Events:    events,
		CreatedAt: time.Now(),
	}

	n.mu.Lock()
	n.registrations[reg.ID] = reg
	n.mu.Unlock()

	return reg, nil
}

// Unregister removes a subscriber. Unknown IDs are a no-op.
func (n *Notifier) Unregister(id string) {
	n.mu.Lock()
	delete(n.registrations, id)
	n.mu.Unlock()
}

// List returns all registrations.
func (n *Notifier) List() []*Registration {
	n.mu.RLock()
	defer n.mu.RUnlock()

	regs := make([]*Registration, 0, len(n.registrations))
	for _, reg := range n.registrations {
		regs = append(regs, reg)
	}
	return regs
}

// Notify delivers an event to every matching registration. Deliveries run
// in the background; a failure is logged, never surfaced to the pipeline.
func (n *Notifier) Notify(event, sessionID string, data interface{}) {
	payload, err := json.Marshal(Event{
		Event:     event,
		SessionID: sessionID,
		Timestamp: time.Now(),
		Data:      data,
	})
	if err != nil {
		n.log.ErrorWithErr("failed to marshal webhook payload", err)
		return
	}

	n.mu.RLock()
	var targets []*Registration
	for _, reg := range n.registrations {
		if subscribed(reg, event) {
			targets = append(targets, reg)
		}
	}
	n.mu.RUnlock()

	for _, reg := range targets {
		go n.deliver(reg, event, payload)
	}
}

func (n *Notifier) deliver(reg *Registration, event string, payload []byte) {
	deliveryID := uuid.New().String()

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			time.Sleep(time.Duration(attempt-1) * 30 * time.Second)
		}
		if n.attempt(reg, event, deliveryID, payload) {
			return
		}
	}

	n.log.WithField("webhook_id", reg.ID).Errorf("webhook delivery %s failed after %d attempts", deliveryID, maxAttempts)
}

func (n *Notifier) attempt(reg *Registration, event, deliveryID string, payload []byte) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reg.URL, bytes.NewReader(payload))
	if err != nil {
		return false
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "ClipForge-Webhook/1.0")
	req.Header.Set("X-Webhook-Event", event)
	req.Header.Set("X-Webhook-Delivery", deliveryID)

	if reg.Secret != "" {
		req.Header.Set("X-Webhook-Signature", signature(payload, reg.Secret))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// signature generates the HMAC-SHA256 signature for a webhook payload
func signature(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return "sha256=" + hex.EncodeToString(h.Sum(nil))
}

func subscribed(reg *Registration, event string) bool {
	for _, e := range reg.Events {
		if e == event {
			return true
		}
	}
	return false
}

func knownEvent(event string) bool {
	switch event {
	case EventProcessingCompleted, EventProcessingFailed, EventClipsGenerated, EventRenderCompleted:
		return true
	}
	return false
}
