package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/arklim/social-platform-trust/internal/core/domain"
	"github.com/arklim/social-platform-trust/internal/core/port"
	"github.com/arklim/social-platform-trust/internal/repository"
)

func testLoginContext() domain.LoginContext {
	return domain.LoginContext{
		IP:         "203.0.113.7",
		Country:    "DE",
		City:       "Berlin",
		Browser:    "Firefox",
		Platform:   "desktop",
		OS:         "Linux",
		Device:     "ThinkPad",
		DeviceType: "laptop",
	}
}

func suspiciousRow(rows *pgxmock.Rows, id string, attempts int, trusted, blocked bool, at time.Time) *pgxmock.Rows {
	lc := testLoginContext()
	return rows.AddRow(id, "user-1", "alice@example.com",
		lc.IP, lc.Country, lc.City, lc.Browser, lc.Platform, lc.OS, lc.Device, lc.DeviceType,
		attempts, trusted, blocked, at, at)
}

func TestContextRepository_RecordUnverifiedAttemptBlocksOverThreshold(t *testing.T) {
	mock := newMock(t)
	repo := NewContextRepository(mock, time.Second)

	now := time.Now().UTC()
	rows := suspiciousRow(pgxmock.NewRows(suspiciousColumns), "rec-1", 4, false, true, now)

	mock.ExpectQuery(`UPDATE trust\.suspicious_logins SET unverified_attempts = unverified_attempts \+ 1, is_blocked = is_blocked OR unverified_attempts \+ 1 > \$1`).
		WithArgs(3, pgxmock.AnyArg(), "rec-1", false).
		WillReturnRows(rows)

	record, err := repo.RecordUnverifiedAttempt(context.Background(), "rec-1", 3)
	if err != nil {
		t.Fatalf("RecordUnverifiedAttempt returned error: %v", err)
	}
	if record.UnverifiedAttempts != 4 || !record.IsBlocked {
		t.Fatalf("unexpected record state: %+v", record)
	}

	expectationsMet(t, mock)
}

func TestContextRepository_ListSuspiciousLoginsUntrusted(t *testing.T) {
	mock := newMock(t)
	repo := NewContextRepository(mock, time.Second)

	now := time.Now().UTC()
	rows := pgxmock.NewRows(suspiciousColumns)
	suspiciousRow(rows, "rec-1", 1, false, false, now)
	suspiciousRow(rows, "rec-2", 4, false, true, now)

	mock.ExpectQuery(`SELECT .* FROM trust\.suspicious_logins WHERE user_id = \$1 AND is_trusted = \$2`).
		WithArgs("user-1", false).
		WillReturnRows(rows)

	records, err := repo.ListSuspiciousLogins(context.Background(), "user-1", port.SuspiciousLoginFilterUntrusted)
	if err != nil {
		t.Fatalf("ListSuspiciousLogins returned error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Context != testLoginContext() {
		t.Fatalf("unexpected context: %+v", records[0].Context)
	}

	expectationsMet(t, mock)
}

func TestContextRepository_TrustSuspiciousLoginCommits(t *testing.T) {
	mock := newMock(t)
	repo := NewContextRepository(mock, time.Second)

	now := time.Now().UTC()
	lc := testLoginContext()
	trusted := domain.TrustedContext{ID: "tc-1", UserID: "user-1", Email: "alice@example.com", Context: lc, CreatedAt: now}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE trust\.suspicious_logins SET is_trusted = \$1, unverified_attempts = \$2`).
		WithArgs(true, 0, now, "rec-1", false, false).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`INSERT INTO trust\.trusted_contexts .* ON CONFLICT DO NOTHING`).
		WithArgs("tc-1", "user-1", "alice@example.com", lc.IP, lc.Country, lc.City, lc.Browser, lc.Platform, lc.OS, lc.Device, lc.DeviceType, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	if err := repo.TrustSuspiciousLogin(context.Background(), "rec-1", trusted); err != nil {
		t.Fatalf("TrustSuspiciousLogin returned error: %v", err)
	}

	expectationsMet(t, mock)
}

func TestContextRepository_TrustSuspiciousLoginConflictRollsBack(t *testing.T) {
	mock := newMock(t)
	repo := NewContextRepository(mock, time.Second)

	now := time.Now().UTC()
	trusted := domain.TrustedContext{ID: "tc-1", UserID: "user-1", Context: testLoginContext(), CreatedAt: now}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE trust\.suspicious_logins`).
		WithArgs(true, 0, now, "rec-1", false, false).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := repo.TrustSuspiciousLogin(context.Background(), "rec-1", trusted)
	if !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	expectationsMet(t, mock)
}

func TestContextRepository_SetBlockedFalseResetsAttempts(t *testing.T) {
	mock := newMock(t)
	repo := NewContextRepository(mock, time.Second)

	mock.ExpectExec(`UPDATE trust\.suspicious_logins SET is_blocked = \$1, updated_at = \$2, unverified_attempts = \$3 WHERE id = \$4`).
		WithArgs(false, pgxmock.AnyArg(), 0, "rec-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.SetBlocked(context.Background(), "rec-1", false); err != nil {
		t.Fatalf("SetBlocked returned error: %v", err)
	}

	expectationsMet(t, mock)
}

func TestContextRepository_DeleteTrustedContextNotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewContextRepository(mock, time.Second)

	mock.ExpectExec(`DELETE FROM trust\.trusted_contexts WHERE id = \$1 AND user_id = \$2`).
		WithArgs("tc-9", "user-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := repo.DeleteTrustedContext(context.Background(), "user-1", "tc-9")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	expectationsMet(t, mock)
}

func TestContextRepository_CreateSuspiciousLoginConstraintViolations(t *testing.T) {
	cases := []struct {
		name string
		code string
		want error
	}{
		{name: "pending context already recorded", code: "23505", want: repository.ErrDuplicate},
		{name: "unknown user", code: "23503", want: repository.ErrMissingReference},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mock := newMock(t)
			repo := NewContextRepository(mock, time.Second)

			now := time.Now().UTC()
			mock.ExpectExec(`INSERT INTO trust\.suspicious_logins \(id,user_id,email,ip`).
				WillReturnError(&pgconn.PgError{Code: tc.code, ConstraintName: "suspicious_logins_untrusted_fingerprint_key"})

			err := repo.CreateSuspiciousLogin(context.Background(), domain.SuspiciousLogin{
				ID:        "rec-2",
				UserID:    "user-1",
				Email:     "alice@example.com",
				Context:   testLoginContext(),
				CreatedAt: now,
				UpdatedAt: now,
			})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}

			expectationsMet(t, mock)
		})
	}
}
