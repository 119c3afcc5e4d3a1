package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/shamsucomsoft/onv-ncne-api/config"
	"github.com/shamsucomsoft/onv-ncne-api/logger"
	"github.com/shamsucomsoft/onv-ncne-api/services"
)

const (
	dialAttempts  = 5
	publishWindow = 5 * time.Second
)

// channel is the part of *amqp.Channel the publisher needs.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitPublisher forwards sync outcomes to a durable queue so other
// services can react to new field data.
type RabbitPublisher struct {
	conn  *amqp.Connection
	ch    channel
	queue string
	mu    sync.Mutex
}

// NewRabbitPublisher connects to the broker and declares the queue. An empty
// URL returns nil, which the sync service treats as "no notifier".
func NewRabbitPublisher(cfg config.QueueConfig) (*RabbitPublisher, error) {
	if cfg.RabbitMQURL == "" {
		logger.L().Info("📭 RABBITMQ_URL not set, sync events stay local")
		return nil, nil
	}

	conn, err := dial(cfg.RabbitMQURL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(cfg.QueueName, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", cfg.QueueName, err)
	}

	logger.L().Info("🐇 RabbitMQ publisher ready", zap.String("queue", cfg.QueueName))
	return &RabbitPublisher{conn: conn, ch: ch, queue: cfg.QueueName}, nil
}

func dial(url string) (*amqp.Connection, error) {
	var lastErr error
	backoff := time.Second
	for attempt := 1; attempt <= dialAttempts; attempt++ {
		conn, err := amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		logger.L().Warn("⚠️ RabbitMQ connection failed",
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", backoff),
			zap.Error(err))
		if attempt < dialAttempts {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	return nil, fmt.Errorf("connect to rabbitmq after %d attempts: %w", dialAttempts, lastErr)
}

// Message builds the persistent JSON message for an event.
func Message(event services.SyncEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(map[string]any{
		"pattern": event.Event,
		"data":    event,
	})
	if err != nil {
		return amqp.Publishing{}, err
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		Timestamp:    event.At,
		DeliveryMode: amqp.Persistent,
		Type:         event.Event,
	}, nil
}

// NotifySync publishes the event on the default exchange.
func (p *RabbitPublisher) NotifySync(ctx context.Context, event services.SyncEvent) error {
	if p == nil {
		return nil
	}
	msg, err := Message(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishWindow)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		return fmt.Errorf("publish %s: %w", event.Event, err)
	}
	logger.L().Debug("📤 Sync event published",
		zap.String("queue", p.queue),
		zap.String("status", event.Status),
		zap.Int("processed", event.TotalProcessed))
	return nil
}

func (p *RabbitPublisher) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
