package service

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/roadwatch-api/internal/models"
	"github.com/noah-isme/roadwatch-api/internal/policy"
	"github.com/noah-isme/roadwatch-api/internal/repository"
	"github.com/noah-isme/roadwatch-api/pkg/database"
	appErrors "github.com/noah-isme/roadwatch-api/pkg/errors"
)

func TestMalformedIDsAreNotFound(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer raw.Close()
	db := sqlx.NewDb(raw, "sqlmock")

	users := NewUserService(database.NewTransactor(db), repository.NewUserRepository(db), nil, nil, nil, nil, UserConfig{})
	routes := NewRouteService(repository.NewRouteRepository(db), repository.NewAccidentRepository(db), nil, nil)
	admin := policy.Actor{ID: "0b6f3c2a-1d4e-4f5a-8b9c-7d6e5f4a3b2c", Role: models.RoleAdmin}
	ctx := context.Background()

	_, err = users.Ban(ctx, admin, "abc", "1day")
	assertAppError(t, err, appErrors.ErrNotFound, "user not found")

	err = users.DeleteUser(ctx, admin, "abc")
	assertAppError(t, err, appErrors.ErrNotFound, "user not found")

	_, _, err = users.Profile(ctx, "abc")
	assertAppError(t, err, appErrors.ErrNotFound, "user not found")

	mock.ExpectBegin()
	mock.ExpectRollback()
	_, err = users.ProcessOfficerApplication(ctx, admin, "abc", ActionApprove)
	assertAppError(t, err, appErrors.ErrNotFound, "user not found")

	_, err = routes.List(ctx, "abc")
	assertAppError(t, err, appErrors.ErrNotFound, "accident not found")

	assert.NoError(t, mock.ExpectationsWereMet())
}
