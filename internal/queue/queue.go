package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"clipforge/internal/config"
	"clipforge/internal/metrics"
	"clipforge/pkg/models"
)

const (
	ProcessQueueName = "clipforge_process"
	ExchangeName     = "clipforge"
)

// Queue carries asynchronous process requests between the API and the
// worker over RabbitMQ.
type Queue struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// New creates a new queue client
func New(cfg config.QueueConfig) (*Queue, error) {
	url := fmt.Sprintf("amqp://%s:%s@%s:%d%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Vhost)

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		ExchangeName,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	_, err = channel.QueueDeclare(
		ProcessQueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	err = channel.QueueBind(
		ProcessQueueName,
		ProcessQueueName,
		ExchangeName,
		false,
		nil,
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	return &Queue{
		conn:    conn,
		channel: channel,
	}, nil
}

// Close closes the queue connection
func (q *Queue) Close() error {
	if q.channel != nil {
		q.channel.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}

// PublishProcessRequest enqueues a pipeline run for the worker
func (q *Queue) PublishProcessRequest(ctx context.Context, req *models.ProcessRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal process request: %w", err)
	}

	err = q.channel.PublishWithContext(ctx,
		ExchangeName,
		ProcessQueueName,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish process request: %w", err)
	}

	metrics.QueueMessagesTotal.WithLabelValues("publish", "success").Inc()
	return nil
}

// ConsumeProcessRequests starts consuming process requests. The handler
// runs one request at a time; a handler error parks the message on the
// retry queue with a backoff, and after MaxRetries it lands in the DLQ.
func (q *Queue) ConsumeProcessRequests(ctx context.Context, handler func(*models.ProcessRequest) error) error {
	err := q.channel.Qos(
		1,     // prefetch count
		0,     // prefetch size
		false, // global
	)
	if err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := q.channel.Consume(
		ProcessQueueName,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}

				var req models.ProcessRequest
				if err := json.Unmarshal(msg.Body, &req); err != nil {
					metrics.QueueMessagesTotal.WithLabelValues("consume", "rejected").Inc()
					msg.Nack(false, false)
					continue
				}

				if err := handler(&req); err != nil {
					retryCount := retryCountFromHeaders(msg.Headers)
					if parkErr := q.PublishToRetryQueue(ctx, &req, retryCount); parkErr != nil {
						metrics.QueueMessagesTotal.WithLabelValues("consume", "requeued").Inc()
						msg.Nack(false, true)
						continue
					}
					metrics.QueueMessagesTotal.WithLabelValues("consume", "retried").Inc()
					msg.Ack(false)
				} else {
					metrics.QueueMessagesTotal.WithLabelValues("consume", "acked").Inc()
					msg.Ack(false)
				}
			}
		}
	}()

	return nil
}

// Depth returns the number of messages waiting in the process queue
func (q *Queue) Depth() (int, error) {
	info, err := q.channel.QueueInspect(ProcessQueueName)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect queue: %w", err)
	}

	metrics.QueueDepth.Set(float64(info.Messages))
	return info.Messages, nil
}
