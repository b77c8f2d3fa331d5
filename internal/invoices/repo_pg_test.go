package invoices

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

var pgTestTime = time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

func newPGRepo(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PGRepo{DB: db}, mock
}

func TestPGRepoCreateManyInsertsEachRowInOneTx(t *testing.T) {
	repo, mock := newPGRepo(t)

	invs := []Invoice{
		{ID: "inv-1", UserID: "u1", SessionID: "s1", FileName: "a.pdf", Status: StatusProcessing, CreatedAt: pgTestTime, UpdatedAt: pgTestTime},
		{ID: "inv-2", UserID: "u1", SessionID: "s1", FileName: "b.pdf", Status: StatusProcessing, CreatedAt: pgTestTime, UpdatedAt: pgTestTime},
	}

	mock.ExpectBegin()
	for _, inv := range invs {
		mock.ExpectExec("INSERT INTO invoices").
			WithArgs(
				inv.ID,
				inv.UserID,
				inv.SessionID,
				inv.FileName,
				inv.Status,
				nil, // excel_url
				int64(0),
				int64(0),
				int64(0),
				int64(0),
				float64(0),
				nil, // model_used
				inv.CreatedAt,
				inv.UpdatedAt,
			).
			WillReturnResult(sqlmock.NewResult(1, 1))
	}
	mock.ExpectCommit()

	if err := repo.CreateMany(context.Background(), invs); err != nil {
		t.Fatalf("CreateMany: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByIDScopedToOwner(t *testing.T) {
	repo, mock := newPGRepo(t)

	rows := sqlmock.NewRows([]string{
		"id", "user_id", "session_id", "file_name", "status", "excel_url",
		"input_tokens", "output_tokens", "tokens_used", "credits_used",
		"cost", "model_used", "created_at", "updated_at",
	}).AddRow(
		"inv-1", "u1", "s1", "a.pdf", StatusCompleted, "http://ai/x.xlsx",
		int64(40), int64(10), int64(50), int64(50),
		0.04, "gemini-2.0-flash", pgTestTime, pgTestTime,
	)

	mock.ExpectQuery("SELECT (.+) FROM invoices").
		WithArgs("u1", "inv-1").
		WillReturnRows(rows)

	inv, err := repo.GetByID(context.Background(), "u1", "inv-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if inv.FileName != "a.pdf" || inv.ExcelURL != "http://ai/x.xlsx" || inv.ModelUsed != "gemini-2.0-flash" {
		t.Fatalf("inv = %+v", inv)
	}
	if inv.TokensUsed != 50 || inv.Cost != 0.04 {
		t.Fatalf("accounting = %d/%v", inv.TokensUsed, inv.Cost)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByIDNotFound(t *testing.T) {
	repo, mock := newPGRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM invoices").
		WithArgs("u1", "missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := repo.GetByID(context.Background(), "u1", "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestPGRepoUpdateRequiresMatchingOwner(t *testing.T) {
	repo, mock := newPGRepo(t)

	inv := Invoice{
		ID: "inv-1", UserID: "u1", Status: StatusCompleted,
		ExcelURL: "http://ai/x.xlsx", InputTokens: 40, OutputTokens: 10,
		TokensUsed: 50, CreditsUsed: 50, Cost: 0.04, ModelUsed: "gemini-2.0-flash",
		UpdatedAt: pgTestTime,
	}

	mock.ExpectExec("UPDATE invoices").
		WithArgs(
			inv.Status,
			inv.ExcelURL,
			inv.InputTokens,
			inv.OutputTokens,
			inv.TokensUsed,
			inv.CreditsUsed,
			inv.Cost,
			inv.ModelUsed,
			inv.UpdatedAt,
			inv.UserID,
			inv.ID,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Update(context.Background(), inv); err != nil {
		t.Fatalf("Update: %v", err)
	}

	mock.ExpectExec("UPDATE invoices").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Update(context.Background(), inv); !errors.Is(err, ErrNotFound) {
		t.Fatalf("zero rows: got %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoMarkSessionFailedCountsOnlyProcessing(t *testing.T) {
	repo, mock := newPGRepo(t)

	mock.ExpectExec("UPDATE invoices").
		WithArgs("u1", "s1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.MarkSessionFailed(context.Background(), "u1", "s1")
	if err != nil {
		t.Fatalf("MarkSessionFailed: %v", err)
	}
	if n != 3 {
		t.Fatalf("marked %d rows, want 3", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoLatestArtifactURLEmptyWhenNone(t *testing.T) {
	repo, mock := newPGRepo(t)

	mock.ExpectQuery("SELECT excel_url").
		WithArgs("u1", "s1").
		WillReturnRows(sqlmock.NewRows([]string{"excel_url"}))

	url, err := repo.LatestArtifactURL(context.Background(), "u1", "s1")
	if err != nil {
		t.Fatalf("LatestArtifactURL: %v", err)
	}
	if url != "" {
		t.Fatalf("url = %q, want empty", url)
	}
}

func TestPGRepoListByUserAppliesLimit(t *testing.T) {
	repo, mock := newPGRepo(t)

	rows := sqlmock.NewRows([]string{
		"id", "user_id", "session_id", "file_name", "status", "excel_url",
		"input_tokens", "output_tokens", "tokens_used", "credits_used",
		"cost", "model_used", "created_at", "updated_at",
	}).AddRow(
		"inv-2", "u1", "s2", "b.pdf", StatusProcessing, nil,
		int64(0), int64(0), int64(0), int64(0),
		float64(0), nil, pgTestTime, pgTestTime,
	)

	mock.ExpectQuery("SELECT (.+) FROM invoices").
		WithArgs("u1", 5).
		WillReturnRows(rows)

	list, err := repo.ListByUser(context.Background(), "u1", 5)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(list) != 1 || list[0].ExcelURL != "" || list[0].ModelUsed != "" {
		t.Fatalf("list = %+v", list)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
