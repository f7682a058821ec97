package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/arklim/social-platform-trust/internal/core/domain"
	"github.com/arklim/social-platform-trust/internal/repository"
)

func TestReportRepository_AddReportCreates(t *testing.T) {
	mock := newMock(t)
	repo := NewReportRepository(mock, time.Second)

	now := time.Now().UTC()
	reason := domain.ReportReason{UserID: "u1", Reason: "spam", ReportedAt: now}
	payload, _ := json.Marshal(reason)

	mock.ExpectQuery(`(?s)INSERT INTO trust\.reports .* ON CONFLICT \(post_id\) DO UPDATE`).
		WithArgs("r-1", "c-1", "p-1", "u1", string(payload), now).
		WillReturnRows(pgxmock.NewRows([]string{"inserted"}).AddRow(true))

	created, err := repo.AddReport(context.Background(), domain.Report{ID: "r-1", CommunityID: "c-1", PostID: "p-1"}, reason)
	if err != nil {
		t.Fatalf("AddReport returned error: %v", err)
	}
	if !created {
		t.Fatal("expected report to be created")
	}

	expectationsMet(t, mock)
}

func TestReportRepository_AddReportDuplicateReporter(t *testing.T) {
	mock := newMock(t)
	repo := NewReportRepository(mock, time.Second)

	now := time.Now().UTC()
	reason := domain.ReportReason{UserID: "u1", Reason: "spam", ReportedAt: now}

	mock.ExpectQuery(`INSERT INTO trust\.reports`).
		WithArgs("r-2", "c-1", "p-1", "u1", pgxmock.AnyArg(), now).
		WillReturnRows(pgxmock.NewRows([]string{"inserted"}))

	_, err := repo.AddReport(context.Background(), domain.Report{ID: "r-2", CommunityID: "c-1", PostID: "p-1"}, reason)
	if !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	expectationsMet(t, mock)
}

func TestReportRepository_ListByCommunityDecodesReasons(t *testing.T) {
	mock := newMock(t)
	repo := NewReportRepository(mock, time.Second)

	now := time.Now().UTC().Truncate(time.Second)
	reasons, _ := json.Marshal([]domain.ReportReason{
		{UserID: "u1", Reason: "spam", ReportedAt: now},
		{UserID: "u2", Reason: "abuse", ReportedAt: now},
	})
	rows := pgxmock.NewRows(reportColumns).
		AddRow("r-1", "c-1", "p-1", []string{"u1", "u2"}, reasons, now, now)

	mock.ExpectQuery(`SELECT .* FROM trust\.reports WHERE community_id = \$1`).
		WithArgs("c-1").
		WillReturnRows(rows)

	reports, err := repo.ListByCommunity(context.Background(), "c-1")
	if err != nil {
		t.Fatalf("ListByCommunity returned error: %v", err)
	}
	if len(reports) != 1 || len(reports[0].Reasons) != 2 || reports[0].Reasons[1].Reason != "abuse" {
		t.Fatalf("unexpected reports: %+v", reports)
	}

	expectationsMet(t, mock)
}

func TestPostRepository_DeleteWithReportsWithoutReports(t *testing.T) {
	mock := newMock(t)
	repo := NewPostRepository(mock, time.Second)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM trust\.reports WHERE post_id = \$1`).
		WithArgs("p-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`DELETE FROM trust\.posts WHERE id = \$1`).
		WithArgs("p-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	if err := repo.DeleteWithReports(context.Background(), "p-1"); err != nil {
		t.Fatalf("DeleteWithReports returned error: %v", err)
	}

	expectationsMet(t, mock)
}
