package kafka

import (
	"context"

	"go.uber.org/zap"

	"github.com/arklim/social-platform-trust/internal/core/domain"
	"github.com/arklim/social-platform-trust/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Used when kafka.enabled is false.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a logging event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

// PublishModerationEvent logs community.* events.
func (p *StubPublisher) PublishModerationEvent(_ context.Context, event domain.ModerationEvent) error {
	p.logger.Info("stub event published",
		zap.String("event_type", string(event.Type)),
		zap.String("community_id", event.CommunityID),
		zap.String("actor_id", event.ActorID),
		zap.String("target_user_id", event.TargetUserID),
		zap.String("post_id", event.PostID),
	)
	return nil
}

// PublishTrustEvent logs trust.* events.
func (p *StubPublisher) PublishTrustEvent(_ context.Context, event domain.TrustEvent) error {
	p.logger.Info("stub event published",
		zap.String("event_type", string(event.Type)),
		zap.String("user_id", event.UserID),
		zap.String("record_id", event.RecordID),
		zap.Int("attempts", event.Attempts),
		zap.String("ip", event.MaskedIP),
	)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
