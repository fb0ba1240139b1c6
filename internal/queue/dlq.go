package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"clipforge/pkg/models"
)

const (
	DeadLetterQueueName    = "clipforge_process_dlq"
	DeadLetterExchangeName = "clipforge_dlq"
	RetryQueueName         = "clipforge_process_retry"
	MaxRetries             = 3
)

// SetupDeadLetterQueue declares the retry and dead-letter plumbing. A
// message parked on the retry queue drains back into the main queue when
// its TTL expires.
func (q *Queue) SetupDeadLetterQueue() error {
	err := q.channel.ExchangeDeclare(
		DeadLetterExchangeName,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare DLQ exchange: %w", err)
	}

	_, err = q.channel.QueueDeclare(
		DeadLetterQueueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare DLQ: %w", err)
	}

	err = q.channel.QueueBind(
		DeadLetterQueueName,
		DeadLetterQueueName,
		DeadLetterExchangeName,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to bind DLQ: %w", err)
	}

	retryArgs := amqp.Table{
		"x-dead-letter-exchange":    ExchangeName,
		"x-dead-letter-routing-key": ProcessQueueName,
		"x-message-ttl":             60000,
	}

	_, err = q.channel.QueueDeclare(
		RetryQueueName,
		true,
		false,
		false,
		false,
		retryArgs,
	)
	if err != nil {
		return fmt.Errorf("failed to declare retry queue: %w", err)
	}

	return nil
}

// PublishToRetryQueue parks a failed request for a delayed retry. After
// MaxRetries it goes to the dead letter queue instead.
func (q *Queue) PublishToRetryQueue(ctx context.Context, req *models.ProcessRequest, retryCount int) error {
	if retryCount >= MaxRetries {
		return q.PublishToDeadLetterQueue(ctx, req, "max retries exceeded")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal process request: %w", err)
	}

	headers := amqp.Table{
		"x-retry-count": retryCount + 1,
	}

	delay := calculateBackoffDelay(retryCount)

	err = q.channel.PublishWithContext(ctx,
		"",
		RetryQueueName,
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
			Headers:      headers,
			Expiration:   fmt.Sprintf("%d", delay.Milliseconds()),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish to retry queue: %w", err)
	}

	return nil
}

// PublishToDeadLetterQueue parks an unrecoverable request for manual
// inspection.
func (q *Queue) PublishToDeadLetterQueue(ctx context.Context, req *models.ProcessRequest, reason string) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal process request: %w", err)
	}

	headers := amqp.Table{
		"x-failure-reason": reason,
		"x-failed-at":      time.Now().Format(time.RFC3339),
	}

	err = q.channel.PublishWithContext(ctx,
		DeadLetterExchangeName,
		DeadLetterQueueName,
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
			Headers:      headers,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish to DLQ: %w", err)
	}

	return nil
}

// retryCountFromHeaders reads the x-retry-count header stamped by
// PublishToRetryQueue. Brokers deliver AMQP numbers under several Go
// types, so each is handled; a missing or malformed header counts as a
// first failure.
func retryCountFromHeaders(headers amqp.Table) int {
	if headers == nil {
		return 0
	}
	switch v := headers["x-retry-count"].(type) {
	case int:
		return v
	case int8:
		return int(v)
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float32:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func calculateBackoffDelay(retryCount int) time.Duration {
	delay := time.Minute
	for i := 0; i < retryCount; i++ {
		delay *= 2
	}
	if delay > 10*time.Minute {
		delay = 10 * time.Minute
	}
	return delay
}
