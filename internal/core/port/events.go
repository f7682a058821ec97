package port

import (
	"context"

	"github.com/arklim/social-platform-trust/internal/core/domain"
)

// EventPublisher publishes domain events to the message bus.
type EventPublisher interface {
	PublishModerationEvent(ctx context.Context, event domain.ModerationEvent) error
	PublishTrustEvent(ctx context.Context, event domain.TrustEvent) error
}
