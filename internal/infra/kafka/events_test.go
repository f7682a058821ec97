package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap/zaptest"

	"github.com/arklim/social-platform-trust/internal/core/domain"
	"github.com/arklim/social-platform-trust/internal/infra/config"
)

type fakeAsyncProducer struct {
	input  chan *sarama.ProducerMessage
	errors chan *sarama.ProducerError
}

func newFakeAsyncProducer() *fakeAsyncProducer {
	return &fakeAsyncProducer{
		input:  make(chan *sarama.ProducerMessage, 1),
		errors: make(chan *sarama.ProducerError, 1),
	}
}

func (f *fakeAsyncProducer) AsyncClose() {}

func (f *fakeAsyncProducer) Close() error { return nil }

func (f *fakeAsyncProducer) Input() chan<- *sarama.ProducerMessage { return f.input }

func (f *fakeAsyncProducer) Successes() <-chan *sarama.ProducerMessage { return nil }

func (f *fakeAsyncProducer) Errors() <-chan *sarama.ProducerError { return f.errors }

func (f *fakeAsyncProducer) IsTransactional() bool { return false }

func (f *fakeAsyncProducer) BeginTxn() error { return nil }

func (f *fakeAsyncProducer) CommitTxn() error { return nil }

func (f *fakeAsyncProducer) AbortTxn() error { return nil }

func (f *fakeAsyncProducer) AddOffsetsToTxn(offsets map[string][]*sarama.PartitionOffsetMetadata, groupID string) error {
	return nil
}

func (f *fakeAsyncProducer) AddMessageToTxn(msg *sarama.ConsumerMessage, groupID string, metadata *string) error {
	return nil
}

func (f *fakeAsyncProducer) TxnStatus() sarama.ProducerTxnStatusFlag {
	return sarama.ProducerTxnStatusFlag(0)
}

func newTestPublisher(t *testing.T) (*EventPublisher, *fakeAsyncProducer) {
	t.Helper()

	asyncProducer := newFakeAsyncProducer()
	producer := newProducer(asyncProducer, "trust", zaptest.NewLogger(t))
	t.Cleanup(func() { _ = producer.Close() })

	publisher := NewEventPublisher(producer, config.AppSettings{
		Name: "trust-service",
		Env:  "test",
	}, zaptest.NewLogger(t))

	return publisher, asyncProducer
}

func receive(t *testing.T, producer *fakeAsyncProducer) (*sarama.ProducerMessage, map[string]any) {
	t.Helper()

	select {
	case msg := <-producer.input:
		body, err := msg.Value.Encode()
		if err != nil {
			t.Fatalf("Value.Encode returned error: %v", err)
		}
		var envelope map[string]any
		if err := json.Unmarshal(body, &envelope); err != nil {
			t.Fatalf("failed to unmarshal envelope: %v", err)
		}
		return msg, envelope
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message on async producer input channel")
	}
	return nil, nil
}

func TestPublishModerationEvent(t *testing.T) {
	publisher, asyncProducer := newTestPublisher(t)

	occurredAt := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	event := domain.ModerationEvent{
		EventID:       "event-1",
		Type:          domain.ModerationEventUserBanned,
		CommunityID:   "c-1",
		CommunityName: "golang",
		ActorID:       "mod-1",
		TargetUserID:  "user-2",
		OccurredAt:    occurredAt,
	}

	if err := publisher.PublishModerationEvent(context.Background(), event); err != nil {
		t.Fatalf("PublishModerationEvent returned error: %v", err)
	}

	msg, envelope := receive(t, asyncProducer)
	if msg.Topic != "trust.community.user.banned" {
		t.Fatalf("unexpected topic: %s", msg.Topic)
	}
	key, _ := msg.Key.Encode()
	if string(key) != "c-1" {
		t.Fatalf("unexpected key: %s", key)
	}
	if envelope["event_id"] != "event-1" {
		t.Fatalf("unexpected event_id: %v", envelope["event_id"])
	}
	if envelope["timestamp"] != occurredAt.Format(time.RFC3339Nano) {
		t.Fatalf("unexpected timestamp: %v", envelope["timestamp"])
	}

	payload, ok := envelope["payload"].(map[string]any)
	if !ok {
		t.Fatalf("payload not a map: %T", envelope["payload"])
	}
	if payload["target_user_id"] != "user-2" || payload["actor_id"] != "mod-1" {
		t.Fatalf("unexpected payload: %v", payload)
	}
	if _, present := payload["post_id"]; present {
		t.Fatalf("empty post_id should be omitted: %v", payload)
	}

	metadata, ok := envelope["metadata"].(map[string]any)
	if !ok || metadata["service"] != "trust-service" || metadata["environment"] != "test" {
		t.Fatalf("unexpected metadata: %v", envelope["metadata"])
	}
}

func TestPublishTrustEventGeneratesID(t *testing.T) {
	publisher, asyncProducer := newTestPublisher(t)

	event := domain.TrustEvent{
		Type:     domain.TrustEventLoginContextBlocked,
		UserID:   "user-1",
		RecordID: "rec-1",
		Attempts: 4,
		MaskedIP: "203.0.*.*",
	}

	if err := publisher.PublishTrustEvent(context.Background(), event); err != nil {
		t.Fatalf("PublishTrustEvent returned error: %v", err)
	}

	msg, envelope := receive(t, asyncProducer)
	if msg.Topic != "trust.login.blocked" {
		t.Fatalf("unexpected topic: %s", msg.Topic)
	}
	if id, _ := envelope["event_id"].(string); id == "" {
		t.Fatal("expected a generated event id")
	}
	payload := envelope["payload"].(map[string]any)
	if payload["attempts"].(float64) != 4 {
		t.Fatalf("unexpected attempts: %v", payload["attempts"])
	}
}

func TestPublishHonoursContextCancellation(t *testing.T) {
	publisher, asyncProducer := newTestPublisher(t)

	// Fill the buffered input so the next send blocks.
	asyncProducer.input <- &sarama.ProducerMessage{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := publisher.PublishTrustEvent(ctx, domain.TrustEvent{Type: domain.TrustEventSuspiciousLoginDetected, UserID: "user-1"})
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestTopicName(t *testing.T) {
	p := &Producer{prefix: "trust"}
	if got := p.TopicName("trust.login.blocked"); got != "trust.login.blocked" {
		t.Fatalf("prefixed event types must not be prefixed twice: %s", got)
	}
	if got := p.TopicName("community.post.reported"); got != "trust.community.post.reported" {
		t.Fatalf("unexpected topic: %s", got)
	}
	if got := (&Producer{}).TopicName("community.post.reported"); got != "community.post.reported" {
		t.Fatalf("unexpected topic without prefix: %s", got)
	}
}
