package domain

import "time"

// ModerationEventType names a moderation message on the bus.
type ModerationEventType string

const (
	ModerationEventUserBanned          ModerationEventType = "community.user.banned"
	ModerationEventUserUnbanned        ModerationEventType = "community.user.unbanned"
	ModerationEventModeratorAssigned   ModerationEventType = "community.moderator.assigned"
	ModerationEventModeratorRemoved    ModerationEventType = "community.moderator.removed"
	ModerationEventPostReported        ModerationEventType = "community.post.reported"
	ModerationEventReportedPostRemoved ModerationEventType = "community.post.removed"
	ModerationEventReportDismissed     ModerationEventType = "community.report.dismissed"
)

// ModerationEvent is emitted after a moderation state change commits.
type ModerationEvent struct {
	EventID       string
	Type          ModerationEventType
	CommunityID   string
	CommunityName string
	ActorID       string
	TargetUserID  string
	PostID        string
	Reason        string
	OccurredAt    time.Time
}

// TrustEventType names a login trust message on the bus.
type TrustEventType string

const (
	TrustEventSuspiciousLoginDetected TrustEventType = "trust.login.suspicious"
	TrustEventLoginContextBlocked     TrustEventType = "trust.login.blocked"
	TrustEventContextTrusted          TrustEventType = "trust.context.trusted"
)

// TrustEvent is emitted when the trust engine changes a record's state.
type TrustEvent struct {
	EventID    string
	Type       TrustEventType
	UserID     string
	RecordID   string
	Attempts   int
	MaskedIP   string
	Country    string
	OccurredAt time.Time
}
