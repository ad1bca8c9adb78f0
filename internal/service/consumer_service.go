package service

import (
	"context"
	"encoding/json"
	"time"

	"smart-meal-be/internal/dto"
	"smart-meal-be/internal/pkg/logger"
	"smart-meal-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
)

// StatusNotifier pushes a raw status message to everyone watching a session.
type StatusNotifier interface {
	Notify(sessionID string, payload []byte)
}

// EventPublisher forwards events to an external bus.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	pubSub    message.Subscriber
	topicName string
	notifier  StatusNotifier
	bus       EventPublisher
	logger    logger.ILogger
}

// NewConsumerService wires the in-process bus to the websocket notifier and,
// when bus is non-nil, to the external event bus.
func NewConsumerService(
	pubSub message.Subscriber,
	topicName string,
	notifier StatusNotifier,
	bus EventPublisher,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:    pubSub,
		topicName: topicName,
		notifier:  notifier,
		bus:       bus,
		logger:    log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	// Status events are never retried; a lost push is recovered by polling.
	defer msg.Ack()

	var payload dto.SessionEventMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Warn("CONSUMER", "Dropping malformed session event", map[string]interface{}{"error": err.Error()})
		return
	}

	if cs.notifier != nil {
		cs.notifier.Notify(payload.SessionId, msg.Payload)
	}

	if cs.bus != nil {
		pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		event := events.NewSessionStatusChanged(payload.SessionId, payload.Status, payload.Error, payload.OccurredAt)
		if err := cs.bus.Publish(pubCtx, event); err != nil {
			cs.logger.Warn("CONSUMER", "Failed to forward session event to bus", map[string]interface{}{
				"session_id": payload.SessionId,
				"error":      err.Error(),
			})
		}
	}
}
