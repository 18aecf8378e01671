package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compia/compia/internal/models"
)

func userRows(id, externalID, email, role, status string) *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows([]string{
		"id", "external_id", "email", "name", "role", "status", "organization_id", "created_at", "updated_at",
	}).AddRow(id, externalID, email, "Test User", role, status, nil, now, now)
}

func TestUserRepository_CreateIfAbsent_InsertsThenReads(t *testing.T) {
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockDB.Close()

	repo := &UserRepository{db: mockDB}

	mockDB.ExpectExec("INSERT INTO users").
		WithArgs(pgxmock.AnyArg(), "sub-123", "new@example.com", "Test User",
			models.RoleInspector, models.StatusPending, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	mockDB.ExpectQuery("SELECT (.+) FROM users WHERE external_id").
		WithArgs("sub-123").
		WillReturnRows(userRows("u1", "sub-123", "new@example.com", models.RoleInspector, models.StatusPending))

	user, err := repo.CreateIfAbsent(context.Background(), &models.User{
		ExternalID: "sub-123",
		Email:      "new@example.com",
		Name:       "Test User",
	})

	assert.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, models.RoleInspector, user.Role)
	assert.Equal(t, models.StatusPending, user.Status)
	assert.NoError(t, mockDB.ExpectationsWereMet())
}

func TestUserRepository_CreateIfAbsent_LosingRaceReturnsExistingRow(t *testing.T) {
	// A concurrent first-request already inserted the row: our insert is a
	// no-op and the re-read surfaces the winner's record.
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockDB.Close()

	repo := &UserRepository{db: mockDB}

	mockDB.ExpectExec("INSERT INTO users").
		WithArgs(pgxmock.AnyArg(), "sub-racy", "racy@example.com", "",
			models.RoleInspector, models.StatusPending, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	mockDB.ExpectQuery("SELECT (.+) FROM users WHERE external_id").
		WithArgs("sub-racy").
		WillReturnRows(userRows("winner-id", "sub-racy", "racy@example.com", models.RoleInspector, models.StatusPending))

	user, err := repo.CreateIfAbsent(context.Background(), &models.User{
		ExternalID: "sub-racy",
		Email:      "racy@example.com",
	})

	assert.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "winner-id", user.ID)
	assert.NoError(t, mockDB.ExpectationsWereMet())
}

func TestUserRepository_GetByExternalID_NotFound(t *testing.T) {
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockDB.Close()

	repo := &UserRepository{db: mockDB}

	mockDB.ExpectQuery("SELECT (.+) FROM users WHERE external_id").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	user, err := repo.GetByExternalID(context.Background(), "missing")

	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Nil(t, user)
}

func TestUserRepository_BindToOrganization(t *testing.T) {
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockDB.Close()

	repo := &UserRepository{db: mockDB}

	now := time.Now()
	orgID := "org-1"
	rows := pgxmock.NewRows([]string{
		"id", "external_id", "email", "name", "role", "status", "organization_id", "created_at", "updated_at",
	}).AddRow("u1", "sub-1", "a@example.com", "A", models.RoleInspector, models.StatusActive, &orgID, now, now)

	mockDB.ExpectQuery("UPDATE users SET organization_id").
		WithArgs("org-1", models.RoleInspector, models.StatusActive, pgxmock.AnyArg(), "u1").
		WillReturnRows(rows)

	user, err := repo.BindToOrganization(context.Background(), "u1", "org-1", models.RoleInspector)

	assert.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, models.StatusActive, user.Status)
	require.NotNil(t, user.OrganizationID)
	assert.Equal(t, "org-1", *user.OrganizationID)
	assert.NoError(t, mockDB.ExpectationsWereMet())
}
