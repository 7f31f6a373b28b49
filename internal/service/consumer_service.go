package service

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"

	"ai-researcher-be/internal/pkg/logger"
	"ai-researcher-be/pkg/events"
)

// EventSink mirrors lifecycle events to an external system. The NATS
// publisher satisfies this; deployments without NATS run with a nil sink.
type EventSink interface {
	Publish(ctx context.Context, event events.Event) error
}

// RunRecord is one entry in the in-memory run history.
type RunRecord struct {
	Type       string         `json:"type"`
	Task       string         `json:"task"`
	ReportType string         `json:"report_type"`
	DurationMS int64          `json:"duration_ms"`
	Error      string         `json:"error,omitempty"`
	Payload    map[string]any `json:"-"`
}

const runHistoryLimit = 100

// ConsumerService drains the report lifecycle topic: it keeps a bounded
// in-memory history of recent runs and, when a sink is configured, mirrors
// each event outward. A bad message is logged and acked; the stream must
// keep moving.
type ConsumerService struct {
	subscriber message.Subscriber
	sink       EventSink
	log        logger.ILogger

	mu      sync.Mutex
	history []RunRecord
}

func NewConsumerService(subscriber message.Subscriber, sink EventSink, log logger.ILogger) *ConsumerService {
	return &ConsumerService{
		subscriber: subscriber,
		sink:       sink,
		log:        log,
	}
}

// Start consumes until the context is cancelled or the subscription closes.
func (c *ConsumerService) Start(ctx context.Context) error {
	messages, err := c.subscriber.Subscribe(ctx, TopicReportLifecycle)
	if err != nil {
		return err
	}
	c.log.Info("consumer", "listening for report lifecycle events", map[string]any{
		"topic": TopicReportLifecycle,
	})

	for msg := range messages {
		c.handle(ctx, msg)
		msg.Ack()
	}
	return nil
}

func (c *ConsumerService) handle(ctx context.Context, msg *message.Message) {
	var envelope lifecycleEnvelope
	if err := json.Unmarshal(msg.Payload, &envelope); err != nil {
		c.log.Error("consumer", "discarding malformed lifecycle event", map[string]any{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		return
	}

	c.record(envelope)

	if c.sink != nil {
		event := events.BaseEvent{
			Type:       envelope.Type,
			Data:       envelope.Payload,
			OccurredAt: envelope.OccurredAt,
		}
		if err := c.sink.Publish(ctx, event); err != nil {
			c.log.Warn("consumer", "failed to mirror lifecycle event", map[string]any{
				"event_type": envelope.Type,
				"error":      err.Error(),
			})
		}
	}
}

func (c *ConsumerService) record(envelope lifecycleEnvelope) {
	rec := RunRecord{Type: envelope.Type, Payload: envelope.Payload}
	if v, ok := envelope.Payload["task"].(string); ok {
		rec.Task = v
	}
	if v, ok := envelope.Payload["report_type"].(string); ok {
		rec.ReportType = v
	}
	if v, ok := envelope.Payload["duration_ms"].(float64); ok {
		rec.DurationMS = int64(v)
	}
	if v, ok := envelope.Payload["error"].(string); ok {
		rec.Error = v
	}

	c.mu.Lock()
	c.history = append(c.history, rec)
	if len(c.history) > runHistoryLimit {
		c.history = c.history[len(c.history)-runHistoryLimit:]
	}
	c.mu.Unlock()
}

// History returns a copy of the recorded runs, oldest first.
func (c *ConsumerService) History() []RunRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]RunRecord, len(c.history))
	copy(out, c.history)
	return out
}
