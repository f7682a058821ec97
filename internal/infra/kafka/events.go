package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-trust/internal/core/domain"
	"github.com/arklim/social-platform-trust/internal/core/port"
	"github.com/arklim/social-platform-trust/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type eventEnvelope struct {
	EventID   string            `json:"event_id"`
	EventType string            `json:"event_type"`
	Key       string            `json:"key"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Payload   any               `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, key string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	if eventID == "" {
		eventID = uuid.NewString()
	}

	metadata := map[string]string{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		metadata["trace_id"] = sc.TraceID().String()
	}

	body, err := json.Marshal(eventEnvelope{
		EventID:   eventID,
		EventType: eventType,
		Key:       key,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	})
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(body),
	}

	select {
	case p.producer.Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishModerationEvent publishes community.* events keyed by community id.
func (p *EventPublisher) PublishModerationEvent(ctx context.Context, event domain.ModerationEvent) error {
	payload := struct {
		CommunityID   string `json:"community_id"`
		CommunityName string `json:"community_name,omitempty"`
		ActorID       string `json:"actor_id,omitempty"`
		TargetUserID  string `json:"target_user_id,omitempty"`
		PostID        string `json:"post_id,omitempty"`
		Reason        string `json:"reason,omitempty"`
	}{
		CommunityID:   event.CommunityID,
		CommunityName: event.CommunityName,
		ActorID:       event.ActorID,
		TargetUserID:  event.TargetUserID,
		PostID:        event.PostID,
		Reason:        event.Reason,
	}

	return p.publish(ctx, event.EventID, string(event.Type), event.CommunityID, event.OccurredAt, payload)
}

// PublishTrustEvent publishes trust.* events keyed by user id.
func (p *EventPublisher) PublishTrustEvent(ctx context.Context, event domain.TrustEvent) error {
	payload := struct {
		UserID   string `json:"user_id"`
		RecordID string `json:"record_id,omitempty"`
		Attempts int    `json:"attempts"`
		MaskedIP string `json:"masked_ip,omitempty"`
		Country  string `json:"country,omitempty"`
	}{
		UserID:   event.UserID,
		RecordID: event.RecordID,
		Attempts: event.Attempts,
		MaskedIP: event.MaskedIP,
		Country:  event.Country,
	}

	return p.publish(ctx, event.EventID, string(event.Type), event.UserID, event.OccurredAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
