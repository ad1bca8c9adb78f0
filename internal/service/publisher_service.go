package service

import (
	"context"
	"encoding/json"
	"time"

	"smart-meal-be/internal/dto"
	"smart-meal-be/internal/entity"
	"smart-meal-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

const SessionEventsTopic = "session_events"

type IPublisherService interface {
	// PublishStatus announces a status change. Failures are logged and never
	// returned; live status is best effort.
	PublishStatus(ctx context.Context, sessionID string, status entity.SessionStatus, errMsg string)
}

type publisherService struct {
	pubSub    message.Publisher
	topicName string
	logger    logger.ILogger
}

func NewPublisherService(pubSub message.Publisher, topicName string, log logger.ILogger) IPublisherService {
	return &publisherService{
		pubSub:    pubSub,
		topicName: topicName,
		logger:    log,
	}
}

func (ps *publisherService) PublishStatus(ctx context.Context, sessionID string, status entity.SessionStatus, errMsg string) {
	payload, err := json.Marshal(dto.SessionEventMessage{
		SessionId:  sessionID,
		Status:     string(status),
		Error:      errMsg,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		ps.logger.Warn("PUBLISHER", "Failed to marshal session event", map[string]interface{}{"error": err.Error()})
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	if err := ps.pubSub.Publish(ps.topicName, msg); err != nil {
		ps.logger.Warn("PUBLISHER", "Failed to publish session event", map[string]interface{}{
			"session_id": sessionID,
			"status":     string(status),
			"error":      err.Error(),
		})
	}
}
