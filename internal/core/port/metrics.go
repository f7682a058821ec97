package port

// TrustObserver records trust engine outcomes.
type TrustObserver interface {
	ObserveDecision(kind, reason string)
}

// ModerationObserver records moderation actions.
type ModerationObserver interface {
	ObserveModerationAction(action string)
}
