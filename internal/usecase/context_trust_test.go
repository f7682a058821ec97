package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/arklim/social-platform-trust/internal/core/domain"
	"github.com/arklim/social-platform-trust/internal/core/port"
	"github.com/arklim/social-platform-trust/internal/usecase/usecasetest"
)

var officeContext = domain.LoginContext{
	IP:         "203.0.113.10",
	Country:    "DE",
	City:       "Berlin",
	Browser:    "Firefox",
	Platform:   "desktop",
	OS:         "Linux",
	Device:     "ThinkPad",
	DeviceType: "laptop",
}

var testUser = domain.User{
	ID:           "user-1",
	Username:     "alice",
	Email:        "alice@example.com",
	PasswordHash: "hashed:Correct-Horse-42",
	Role:         domain.UserRoleGeneral,
}

type trustFixture struct {
	svc      *ContextTrustService
	store    *usecasetest.Store
	events   *usecasetest.Events
	observer *usecasetest.Observer
}

func newTrustFixture(t *testing.T, opts ...ContextTrustOption) trustFixture {
	t.Helper()

	store := usecasetest.NewStore()
	store.PutUser(testUser)
	events := &usecasetest.Events{}
	observer := &usecasetest.Observer{}

	opts = append([]ContextTrustOption{WithTrustEvents(events), WithTrustObserver(observer)}, opts...)
	svc := NewContextTrustService(store.Contexts(), store.Preferences(), 3, zaptest.NewLogger(t), opts...)
	return trustFixture{svc: svc, store: store, events: events, observer: observer}
}

func enableContextAuth(store *usecasetest.Store, userID string) {
	store.PutPreference(domain.UserPreference{UserID: userID, EnableContextBasedAuth: true})
}

func TestAddSuspiciousLoginDefaults(t *testing.T) {
	f := newTrustFixture(t)

	contexts := []domain.LoginContext{
		officeContext,
		{
			IP:         domain.UnknownContextValue,
			Country:    domain.UnknownContextValue,
			City:       domain.UnknownContextValue,
			Browser:    domain.UnknownContextValue,
			Platform:   domain.UnknownContextValue,
			OS:         domain.UnknownContextValue,
			Device:     domain.UnknownContextValue,
			DeviceType: domain.UnknownContextValue,
		},
	}

	for _, lc := range contexts {
		record, err := f.svc.AddSuspiciousLogin(context.Background(), testUser.ID, UserSnapshot{Email: testUser.Email}, lc)
		if err != nil {
			t.Fatalf("AddSuspiciousLogin returned error: %v", err)
		}
		if record.ID == "" || record.CreatedAt.IsZero() {
			t.Fatalf("expected generated id and timestamp, got %+v", record)
		}
		if record.UnverifiedAttempts != 0 || record.IsTrusted || record.IsBlocked {
			t.Fatalf("unexpected initial state: %+v", record)
		}
		if record.Context != lc || record.Email != testUser.Email {
			t.Fatalf("context not copied: %+v", record)
		}
		if record.State() != domain.SuspiciousLoginStateNew {
			t.Fatalf("expected new state, got %s", record.State())
		}
	}

	if got := len(f.store.SuspiciousLogins()); got != 2 {
		t.Fatalf("expected 2 persisted records, got %d", got)
	}
}

func TestAddSuspiciousLoginRejectsIncompleteInput(t *testing.T) {
	f := newTrustFixture(t)

	missingCity := officeContext
	missingCity.City = ""
	missingDevice := officeContext
	missingDevice.DeviceType = "  "

	cases := []struct {
		name   string
		userID string
		email  string
		lc     domain.LoginContext
	}{
		{name: "missing user id", email: testUser.Email, lc: officeContext},
		{name: "missing email", userID: testUser.ID, lc: officeContext},
		{name: "missing city", userID: testUser.ID, email: testUser.Email, lc: missingCity},
		{name: "blank device type", userID: testUser.ID, email: testUser.Email, lc: missingDevice},
		{name: "empty context", userID: testUser.ID, email: testUser.Email},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.AddSuspiciousLogin(context.Background(), tc.userID, UserSnapshot{Email: tc.email}, tc.lc)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	if f.store.Writes != 0 {
		t.Fatalf("expected no writes, got %d", f.store.Writes)
	}
}

func TestEvaluateContextAuthDisabled(t *testing.T) {
	f := newTrustFixture(t)

	decision, err := f.svc.Evaluate(context.Background(), testUser, officeContext)
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if !decision.Allowed() || decision.Reason != domain.TrustReasonContextAuthDisabled {
		t.Fatalf("unexpected decision without preference: %+v", decision)
	}

	f.store.PutPreference(domain.UserPreference{UserID: testUser.ID, EnableContextBasedAuth: false})
	decision, err = f.svc.Evaluate(context.Background(), testUser, domain.LoginContext{})
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if decision.Kind != domain.TrustDecisionTrusted {
		t.Fatalf("expected trusted decision, got %+v", decision)
	}
	if len(f.store.SuspiciousLogins()) != 0 {
		t.Fatal("disabled context auth must not record suspicious logins")
	}
}

func TestEvaluateTrustedContext(t *testing.T) {
	f := newTrustFixture(t)
	enableContextAuth(f.store, testUser.ID)
	f.store.PutTrustedContext(domain.TrustedContext{ID: "tc-1", UserID: testUser.ID, Context: officeContext})

	decision, err := f.svc.Evaluate(context.Background(), testUser, officeContext)
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if !decision.Allowed() || decision.Reason != domain.TrustReasonTrustedContext {
		t.Fatalf("unexpected decision: %+v", decision)
	}
	if f.observer.Decisions[0] != "trusted/trusted_context" {
		t.Fatalf("unexpected observed decision: %v", f.observer.Decisions)
	}
}

func TestEvaluateEscalatesToBlocked(t *testing.T) {
	f := newTrustFixture(t)
	enableContextAuth(f.store, testUser.ID)
	f.store.PutTrustedContext(domain.TrustedContext{ID: "tc-1", UserID: testUser.ID, Context: officeContext})

	travel := officeContext
	travel.IP = "198.51.100.7"
	travel.City = "Lisbon"
	travel.Country = "PT"

	decision, err := f.svc.Evaluate(context.Background(), testUser, travel)
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if decision.Kind != domain.TrustDecisionSuspicious || decision.Reason != domain.TrustReasonNewContext {
		t.Fatalf("expected new suspicious context, got %+v", decision)
	}
	recordID := decision.Record.ID

	// Attempts 1..3 stay suspicious, the fourth crosses the threshold of 3.
	for attempt := 1; attempt <= 3; attempt++ {
		decision, err = f.svc.Evaluate(context.Background(), testUser, travel)
		if err != nil {
			t.Fatalf("Evaluate returned error: %v", err)
		}
		if decision.Kind != domain.TrustDecisionSuspicious || decision.Reason != domain.TrustReasonRepeatedContext {
			t.Fatalf("attempt %d: unexpected decision %+v", attempt, decision)
		}
		if decision.Record.ID != recordID || decision.Record.UnverifiedAttempts != attempt {
			t.Fatalf("attempt %d: unexpected record %+v", attempt, decision.Record)
		}
	}

	decision, err = f.svc.Evaluate(context.Background(), testUser, travel)
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if decision.Kind != domain.TrustDecisionBlocked || decision.Reason != domain.TrustReasonAttemptsExceeded {
		t.Fatalf("expected block after threshold, got %+v", decision)
	}

	decision, err = f.svc.Evaluate(context.Background(), testUser, travel)
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if decision.Kind != domain.TrustDecisionBlocked || decision.Reason != domain.TrustReasonContextBlocked {
		t.Fatalf("blocked record must stay blocked, got %+v", decision)
	}

	records := f.store.SuspiciousLogins()
	if len(records) != 1 || records[0].UnverifiedAttempts != 4 || !records[0].IsBlocked {
		t.Fatalf("unexpected stored records: %+v", records)
	}

	if len(f.events.Trust) != 2 {
		t.Fatalf("expected suspicious and blocked events, got %+v", f.events.Trust)
	}
	if f.events.Trust[0].Type != domain.TrustEventSuspiciousLoginDetected || f.events.Trust[1].Type != domain.TrustEventLoginContextBlocked {
		t.Fatalf("unexpected event types: %+v", f.events.Trust)
	}
	if f.events.Trust[1].MaskedIP != "198.51.*.*" {
		t.Fatalf("expected masked ip, got %s", f.events.Trust[1].MaskedIP)
	}
}

func TestEvaluateRejectsIncompleteContextWhenEnabled(t *testing.T) {
	f := newTrustFixture(t)
	enableContextAuth(f.store, testUser.ID)

	partial := officeContext
	partial.Browser = ""
	if _, err := f.svc.Evaluate(context.Background(), testUser, partial); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestEvaluateWrapsStoreFailures(t *testing.T) {
	f := newTrustFixture(t)
	f.store.Err = errors.New("connection reset")

	_, err := f.svc.Evaluate(context.Background(), testUser, officeContext)
	if !errors.Is(err, ErrDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestConfirmSuspiciousLogin(t *testing.T) {
	f := newTrustFixture(t)
	enableContextAuth(f.store, testUser.ID)
	f.store.PutSuspiciousLogin(domain.SuspiciousLogin{
		ID:                 "rec-1",
		UserID:             testUser.ID,
		Email:              testUser.Email,
		Context:            officeContext,
		UnverifiedAttempts: 2,
	})

	if _, err := f.svc.ConfirmSuspiciousLogin(context.Background(), "someone-else", "rec-1"); !errors.Is(err, ErrSuspiciousLoginNotFound) {
		t.Fatalf("foreign record must be hidden, got %v", err)
	}

	trusted, err := f.svc.ConfirmSuspiciousLogin(context.Background(), testUser.ID, "rec-1")
	if err != nil {
		t.Fatalf("ConfirmSuspiciousLogin returned error: %v", err)
	}
	if trusted.Context != officeContext || trusted.UserID != testUser.ID {
		t.Fatalf("unexpected trusted context: %+v", trusted)
	}

	records := f.store.SuspiciousLogins()
	if !records[0].IsTrusted || records[0].UnverifiedAttempts != 0 {
		t.Fatalf("trusted record must reset attempts: %+v", records[0])
	}

	decision, err := f.svc.Evaluate(context.Background(), testUser, officeContext)
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if decision.Reason != domain.TrustReasonTrustedContext {
		t.Fatalf("confirmed context must be trusted, got %+v", decision)
	}

	if _, err := f.svc.ConfirmSuspiciousLogin(context.Background(), testUser.ID, "rec-1"); !errors.Is(err, ErrLoginAlreadyTrusted) {
		t.Fatalf("expected already trusted conflict, got %v", err)
	}
}

func TestConfirmBlockedLoginConflicts(t *testing.T) {
	f := newTrustFixture(t)
	f.store.PutSuspiciousLogin(domain.SuspiciousLogin{ID: "rec-1", UserID: testUser.ID, Context: officeContext, IsBlocked: true, UnverifiedAttempts: 4})

	_, err := f.svc.ConfirmSuspiciousLogin(context.Background(), testUser.ID, "rec-1")
	if !errors.Is(err, ErrLoginBlocked) || !errors.Is(err, ErrConflict) {
		t.Fatalf("expected blocked conflict, got %v", err)
	}
	if len(f.store.TrustedContexts()) != 0 {
		t.Fatal("blocked record must not become trusted")
	}
}

func TestBlockAndUnblockSuspiciousLogin(t *testing.T) {
	f := newTrustFixture(t)
	f.store.PutSuspiciousLogin(domain.SuspiciousLogin{ID: "rec-1", UserID: testUser.ID, Context: officeContext, UnverifiedAttempts: 1})

	if err := f.svc.UnblockSuspiciousLogin(context.Background(), testUser.ID, "rec-1"); !errors.Is(err, ErrLoginNotBlocked) {
		t.Fatalf("expected not blocked conflict, got %v", err)
	}
	if err := f.svc.BlockSuspiciousLogin(context.Background(), testUser.ID, "rec-1"); err != nil {
		t.Fatalf("BlockSuspiciousLogin returned error: %v", err)
	}

	blocked, err := f.svc.ListBlockedLogins(context.Background(), testUser.ID)
	if err != nil || len(blocked) != 1 {
		t.Fatalf("expected one blocked login, got %v (err=%v)", blocked, err)
	}
	pending, _ := f.svc.ListSuspiciousLogins(context.Background(), testUser.ID)
	if len(pending) != 0 {
		t.Fatalf("blocked login must not be pending: %+v", pending)
	}

	if err := f.svc.UnblockSuspiciousLogin(context.Background(), testUser.ID, "rec-1"); err != nil {
		t.Fatalf("UnblockSuspiciousLogin returned error: %v", err)
	}
	pending, _ = f.svc.ListSuspiciousLogins(context.Background(), testUser.ID)
	if len(pending) != 1 || pending[0].UnverifiedAttempts != 0 {
		t.Fatalf("unblock must reset attempts: %+v", pending)
	}
}

func TestDeleteRecords(t *testing.T) {
	f := newTrustFixture(t)
	f.store.PutSuspiciousLogin(domain.SuspiciousLogin{ID: "rec-1", UserID: testUser.ID, Context: officeContext})
	f.store.PutTrustedContext(domain.TrustedContext{ID: "tc-1", UserID: testUser.ID, Context: officeContext})

	if err := f.svc.DeleteSuspiciousLogin(context.Background(), testUser.ID, "rec-1"); err != nil {
		t.Fatalf("DeleteSuspiciousLogin returned error: %v", err)
	}
	if err := f.svc.DeleteSuspiciousLogin(context.Background(), testUser.ID, "rec-1"); !errors.Is(err, ErrSuspiciousLoginNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := f.svc.DeleteTrustedContext(context.Background(), "someone-else", "tc-1"); !errors.Is(err, ErrTrustedContextNotFound) {
		t.Fatalf("expected not found for foreign trusted context, got %v", err)
	}
	if err := f.svc.DeleteTrustedContext(context.Background(), testUser.ID, "tc-1"); err != nil {
		t.Fatalf("DeleteTrustedContext returned error: %v", err)
	}
}

type fakePreferenceCache struct {
	entries map[string]domain.UserPreference
	gets    int
	deletes int
}

func (c *fakePreferenceCache) GetPreference(_ context.Context, userID string) (*domain.UserPreference, bool, error) {
	c.gets++
	pref, ok := c.entries[userID]
	if !ok {
		return nil, false, nil
	}
	return &pref, true, nil
}

func (c *fakePreferenceCache) SetPreference(_ context.Context, pref domain.UserPreference, _ time.Duration) error {
	c.entries[pref.UserID] = pref
	return nil
}

func (c *fakePreferenceCache) DeletePreference(_ context.Context, userID string) error {
	c.deletes++
	delete(c.entries, userID)
	return nil
}

func TestPreferencesReadThroughCache(t *testing.T) {
	cache := &fakePreferenceCache{entries: make(map[string]domain.UserPreference)}
	f := newTrustFixture(t, WithPreferenceCache(cache, time.Minute))

	if _, err := f.svc.GetPreference(context.Background(), testUser.ID); !errors.Is(err, ErrPreferenceNotFound) {
		t.Fatalf("absent preference must be not found, got %v", err)
	}

	if _, err := f.svc.UpdatePreference(context.Background(), testUser.ID, true); err != nil {
		t.Fatalf("UpdatePreference returned error: %v", err)
	}
	if cache.deletes != 1 {
		t.Fatalf("expected cache invalidation, got %d deletes", cache.deletes)
	}

	pref, err := f.svc.GetPreference(context.Background(), testUser.ID)
	if err != nil || !pref.EnableContextBasedAuth {
		t.Fatalf("unexpected preference %+v (err=%v)", pref, err)
	}
	if _, cached := cache.entries[testUser.ID]; !cached {
		t.Fatal("expected preference to be cached after read")
	}

	// Served from cache even when the store is down.
	f.store.Err = errors.New("down")
	if _, err := f.svc.GetPreference(context.Background(), testUser.ID); err != nil {
		t.Fatalf("expected cached preference, got %v", err)
	}
}

// interleavedContexts runs a hook once before the next matching write, standing in
// for a login served concurrently.
type interleavedContexts struct {
	port.ContextRepository
	beforeCreate  func()
	beforeAttempt func()
}

func (c *interleavedContexts) CreateSuspiciousLogin(ctx context.Context, record domain.SuspiciousLogin) error {
	if hook := c.beforeCreate; hook != nil {
		c.beforeCreate = nil
		hook()
	}
	return c.ContextRepository.CreateSuspiciousLogin(ctx, record)
}

func (c *interleavedContexts) RecordUnverifiedAttempt(ctx context.Context, id string, threshold int) (*domain.SuspiciousLogin, error) {
	if hook := c.beforeAttempt; hook != nil {
		c.beforeAttempt = nil
		hook()
	}
	return c.ContextRepository.RecordUnverifiedAttempt(ctx, id, threshold)
}

func newInterleavedTrust(t *testing.T) (*ContextTrustService, *interleavedContexts, *usecasetest.Store) {
	t.Helper()

	store := usecasetest.NewStore()
	store.PutUser(testUser)
	enableContextAuth(store, testUser.ID)
	contexts := &interleavedContexts{ContextRepository: store.Contexts()}
	return NewContextTrustService(contexts, store.Preferences(), 3, zaptest.NewLogger(t)), contexts, store
}

func TestEvaluateConcurrentFirstSightingsShareRecord(t *testing.T) {
	svc, contexts, store := newInterleavedTrust(t)
	contexts.beforeCreate = func() {
		store.PutSuspiciousLogin(domain.SuspiciousLogin{
			ID:        "rec-first",
			UserID:    testUser.ID,
			Email:     testUser.Email,
			Context:   officeContext,
			CreatedAt: time.Now().UTC(),
		})
	}

	decision, err := svc.Evaluate(context.Background(), testUser, officeContext)
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if decision.Kind != domain.TrustDecisionSuspicious || decision.Reason != domain.TrustReasonRepeatedContext {
		t.Fatalf("expected the attempt to count against the existing record, got %+v", decision)
	}
	if decision.Record.ID != "rec-first" || decision.Record.UnverifiedAttempts != 1 {
		t.Fatalf("unexpected record: %+v", decision.Record)
	}
	if records := store.SuspiciousLogins(); len(records) != 1 {
		t.Fatalf("expected a single record per context, got %+v", records)
	}
}

func TestEvaluateRecordConfirmedMidwayIsTrusted(t *testing.T) {
	svc, contexts, store := newInterleavedTrust(t)
	store.PutSuspiciousLogin(domain.SuspiciousLogin{
		ID:                 "rec-1",
		UserID:             testUser.ID,
		Email:              testUser.Email,
		Context:            officeContext,
		UnverifiedAttempts: 1,
	})
	contexts.beforeAttempt = func() {
		if _, err := svc.ConfirmSuspiciousLogin(context.Background(), testUser.ID, "rec-1"); err != nil {
			t.Errorf("ConfirmSuspiciousLogin returned error: %v", err)
		}
	}

	decision, err := svc.Evaluate(context.Background(), testUser, officeContext)
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if !decision.Allowed() || decision.Reason != domain.TrustReasonTrustedContext {
		t.Fatalf("expected trusted decision after confirmation, got %+v", decision)
	}
}

func TestAddSuspiciousLoginUnknownUserAndDuplicate(t *testing.T) {
	f := newTrustFixture(t)

	_, err := f.svc.AddSuspiciousLogin(context.Background(), "ghost", UserSnapshot{Email: "ghost@example.com"}, officeContext)
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	if _, err := f.svc.AddSuspiciousLogin(context.Background(), testUser.ID, UserSnapshot{Email: testUser.Email}, officeContext); err != nil {
		t.Fatalf("AddSuspiciousLogin returned error: %v", err)
	}
	_, err = f.svc.AddSuspiciousLogin(context.Background(), testUser.ID, UserSnapshot{Email: testUser.Email}, officeContext)
	if !errors.Is(err, ErrSuspiciousLoginExists) || !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrSuspiciousLoginExists, got %v", err)
	}
}
