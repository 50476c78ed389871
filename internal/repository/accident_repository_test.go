package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/roadwatch-api/internal/models"
)

var accidentDetailColumnNames = []string{"id", "user_id", "latitude", "longitude", "description", "severity", "casualties_dead", "casualties_injured", "status", "verified_by", "photo_url", "is_anonymous", "created_at", "reporter_username", "reporter_role", "verifier_username", "verifier_role"}

func TestCreateAccident(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAccidentRepository(db)

	mock.ExpectExec("INSERT INTO accidents").WillReturnResult(sqlmock.NewResult(1, 1))

	reporter := "u1"
	accident := &models.Accident{UserID: &reporter, Description: "Two cars collided", Severity: 3, Status: models.AccidentNotConfirmed}
	require.NoError(t, repo.Create(context.Background(), accident))
	assert.NotEmpty(t, accident.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestByUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAccidentRepository(db)

	ts := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT MAX(created_at) FROM accidents WHERE user_id = $1")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(ts))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT MAX(created_at) FROM accidents WHERE user_id = $1")).
		WithArgs("u2").
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))

	latest, err := repo.LatestByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.True(t, ts.Equal(*latest))

	latest, err = repo.LatestByUser(context.Background(), "u2")
	require.NoError(t, err)
	assert.Nil(t, latest)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountByUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAccidentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM accidents WHERE user_id = $1")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	n, err := repo.CountByUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAccidentsByStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAccidentRepository(db)

	now := time.Now()
	status := models.AccidentConfirmed
	mock.ExpectQuery(regexp.QuoteMeta("WHERE a.status = $1 ORDER BY a.created_at DESC LIMIT 10 OFFSET 10")).
		WithArgs(status).
		WillReturnRows(sqlmock.NewRows(accidentDetailColumnNames).
			AddRow("a1", "u1", 1.5, 2.5, "Truck overturned", 4, 1, 2, "confirmed", "o1", nil, false, now, "alice", "user", "officer", "officer"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM accidents a WHERE a.status = $1")).
		WithArgs(status).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	items, total, err := repo.List(context.Background(), models.AccidentFilter{Status: &status, Page: 2, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.AccidentConfirmed, items[0].Status)
	assert.Equal(t, "alice", *items[0].ReporterUsername)
	assert.Equal(t, models.RoleOfficer, *items[0].VerifierRole)
	assert.Equal(t, 11, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateAccidentStatusMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAccidentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE accidents SET status = $2, verified_by = $3 WHERE id = $1")).
		WithArgs("a1", models.AccidentConfirmed, "o1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "a1", models.AccidentConfirmed, "o1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentListByAccident(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCommentRepository(db)

	now := time.Now()
	mock.ExpectQuery("FROM comments c").
		WithArgs("a1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "accident_id", "user_id", "content", "created_at", "author_username", "author_role"}).
			AddRow(int64(1790000000000000001), "a1", "u1", "Lane 2 still blocked", now, "alice", "user").
			AddRow(int64(1790000000000000002), "a1", nil, "Cleared now", now, nil, nil))

	comments, err := repo.ListByAccident(context.Background(), "a1")
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, int64(1790000000000000001), comments[0].ID)
	assert.Nil(t, comments[1].UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRouteSetClosed(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRouteRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE routes SET is_closed = $2 WHERE id = $1")).
		WithArgs("r1", false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetClosed(context.Background(), "r1", false))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPointLogCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPointLogRepository(db)

	mock.ExpectExec("INSERT INTO point_logs").WillReturnResult(sqlmock.NewResult(1, 1))

	entry := &models.PointLog{UserID: "u1", Amount: 50, Reason: "Verification Bonus"}
	require.NoError(t, repo.Create(context.Background(), entry))
	assert.NotEmpty(t, entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByMalformedIDSkipsQuery(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	accidents := NewAccidentRepository(db)
	routes := NewRouteRepository(db)
	ctx := context.Background()

	_, err := accidents.FindByID(ctx, "abc")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	_, err = accidents.FindByIDForUpdate(ctx, "abc")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	_, err = accidents.FindDetail(ctx, "abc")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	_, err = routes.FindByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindAccidentDetail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAccidentRepository(db)

	const id = "9c8b7a6d-5e4f-4a3b-9c2d-1e0f9a8b7c6d"
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("LEFT JOIN users v ON v.id = a.verified_by WHERE a.id = $1")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(accidentDetailColumnNames).
			AddRow(id, nil, 1.5, 2.5, "Two cars collided", 3, 0, 1, "not_confirmed", nil, nil, true, now, nil, nil, nil, nil))

	detail, err := repo.FindDetail(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, detail.ID)
	assert.True(t, detail.IsAnonymous)
	assert.NoError(t, mock.ExpectationsWereMet())
}
