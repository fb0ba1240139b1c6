package queue

import (
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
)

func TestRetryCountFromHeaders(t *testing.T) {
	assert.Equal(t, 0, retryCountFromHeaders(nil))
	assert.Equal(t, 0, retryCountFromHeaders(amqp.Table{}))
	assert.Equal(t, 0, retryCountFromHeaders(amqp.Table{"x-retry-count": "2"}))

	// Brokers hand numeric headers back under different Go types.
	assert.Equal(t, 2, retryCountFromHeaders(amqp.Table{"x-retry-count": 2}))
	assert.Equal(t, 2, retryCountFromHeaders(amqp.Table{"x-retry-count": int32(2)}))
	assert.Equal(t, 2, retryCountFromHeaders(amqp.Table{"x-retry-count": int64(2)}))
	assert.Equal(t, 2, retryCountFromHeaders(amqp.Table{"x-retry-count": float64(2)}))
}

func TestCalculateBackoffDelay(t *testing.T) {
	assert.Equal(t, time.Minute, calculateBackoffDelay(0))
	assert.Equal(t, 2*time.Minute, calculateBackoffDelay(1))
	assert.Equal(t, 4*time.Minute, calculateBackoffDelay(2))
	assert.Equal(t, 8*time.Minute, calculateBackoffDelay(3))
	assert.Equal(t, 10*time.Minute, calculateBackoffDelay(4), "backoff is capped")
	assert.Equal(t, 10*time.Minute, calculateBackoffDelay(9), "backoff is capped")
}
