//go:build integration

package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/klamberth/helpcenter/internal/database"
	"github.com/klamberth/helpcenter/internal/models"
)

// setupTestDB starts a postgres container, runs the embedded migrations and
// returns a live DB wrapper. The container is torn down with the test.
func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("helpcenter"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { container.Terminate(ctx) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, database.Migrate(ctx, connStr))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, pool.Ping(ctx))

	return &database.DB{Pool: pool}
}

func TestUserRepository_CreateAndFetch(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, &models.User{
		Email:        "Mixed.Case@Example.org",
		PasswordHash: "$2a$12$hash",
		Role:         models.RoleUser,
		IsActive:     true,
		FirstName:    "Pat",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "mixed.case@example.org", created.Email)

	// lookup is case-insensitive
	fetched, err := repo.GetByEmail(ctx, "MIXED.CASE@example.org")
	require.NoError(t, err)
	assert.Equal(t, created.ID, fetched.ID)
	assert.Equal(t, "Pat", fetched.FirstName)

	// second registration with a case variant conflicts
	_, err = repo.Create(ctx, &models.User{
		Email:        "MIXED.case@example.org",
		PasswordHash: "$2a$12$hash",
		Role:         models.RoleUser,
		IsActive:     true,
	})
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestUserRepository_LockoutStateMachine(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user, err := repo.Create(ctx, &models.User{
		Email:        "lockme@test.org",
		PasswordHash: "$2a$12$hash",
		Role:         models.RoleUser,
		IsActive:     true,
	})
	require.NoError(t, err)

	const threshold = 5
	lockFor := 2 * time.Hour

	// four failures: counter climbs, no lock yet
	for i := 1; i <= threshold-1; i++ {
		require.NoError(t, repo.RecordFailedLogin(ctx, user.ID, threshold, lockFor))
		u, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, i, u.LoginAttempts)
		assert.Nil(t, u.LockedUntil)
	}

	// fifth failure sets the lock
	require.NoError(t, repo.RecordFailedLogin(ctx, user.ID, threshold, lockFor))
	locked, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, threshold, locked.LoginAttempts)
	require.NotNil(t, locked.LockedUntil)
	assert.True(t, locked.Locked())
	assert.WithinDuration(t, time.Now().Add(lockFor), *locked.LockedUntil, time.Minute)

	// another failure during the lock never extends it
	require.NoError(t, repo.RecordFailedLogin(ctx, user.ID, threshold, lockFor))
	still, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, *locked.LockedUntil, *still.LockedUntil)

	// simulate lock expiry, then a failure starts a fresh count at 1
	_, err = db.Pool.Exec(ctx,
		"UPDATE users SET locked_until = now() - interval '1 minute' WHERE id = $1", user.ID)
	require.NoError(t, err)

	require.NoError(t, repo.RecordFailedLogin(ctx, user.ID, threshold, lockFor))
	fresh, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, fresh.LoginAttempts)
	assert.Nil(t, fresh.LockedUntil)

	// a successful login clears everything and bumps the counters
	require.NoError(t, repo.RecordLogin(ctx, user.ID))
	clean, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, clean.LoginAttempts)
	assert.Nil(t, clean.LockedUntil)
	assert.Equal(t, 1, clean.TotalLogins)
	assert.NotNil(t, clean.LastLogin)
}

func TestUserRepository_BulkAndCleanup(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	var ids []string
	for _, email := range []string{"a@example.com", "b@example.com", "keep@company.org"} {
		u, err := repo.Create(ctx, &models.User{
			Email:        email,
			PasswordHash: "$2a$12$hash",
			Role:         models.RoleUser,
			IsActive:     true,
		})
		require.NoError(t, err)
		ids = append(ids, u.ID)
	}

	affected, err := repo.BulkSetActive(ctx, ids[:2], false)
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	deleted, err := repo.DeleteByEmailSuffix(ctx, "@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	_, err = repo.GetByEmail(ctx, "keep@company.org")
	assert.NoError(t, err)
}

func TestIssueRepository_Lifecycle(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)
	issues := NewIssueRepository(db)
	ctx := context.Background()

	creator, err := users.Create(ctx, &models.User{
		Email:        "reporter@company.org",
		PasswordHash: "$2a$12$hash",
		Role:         models.RoleUser,
		IsActive:     true,
	})
	require.NoError(t, err)

	admin, err := users.Create(ctx, &models.User{
		Email:        "triage@company.org",
		PasswordHash: "$2a$12$hash",
		Role:         models.RoleAdmin,
		IsActive:     true,
	})
	require.NoError(t, err)

	created, err := issues.Create(ctx, &models.Issue{
		Title:       "Printer offline",
		Description: "Third floor printer is unreachable.",
		Priority:    models.PriorityHigh,
		Status:      models.StatusPending,
		Images:      []string{"uploads/broken.png"},
		CreatedBy:   creator.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "reporter@company.org", created.CreatedByEmail)
	assert.Nil(t, created.Response)

	inProgress, err := issues.UpdateStatus(ctx, created.ID, models.StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, inProgress.Status)

	resolved, err := issues.SetResponse(ctx, created.ID, admin.ID, "Power cycled the printer.", nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, resolved.Status)
	require.NotNil(t, resolved.Response)
	assert.Equal(t, admin.ID, resolved.Response.RespondedBy)
	assert.Equal(t, "triage@company.org", resolved.Response.RespondedByEmail)

	require.NoError(t, issues.Delete(ctx, created.ID))
	_, err = issues.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
