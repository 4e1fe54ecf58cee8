package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/klamberth/helpcenter/internal/database"
	"github.com/klamberth/helpcenter/internal/models"
)

const userColumns = `id, email, password_hash, role, first_name, last_name, avatar, is_active,
	permissions, profile, login_attempts, locked_until, last_login, total_logins,
	last_activity, issues_created, issues_resolved, created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{pool: db.Pool}
}

// rowScanner interface for scanning user rows (single row and rows iteration)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User

	err := scanner.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.Role,
		&user.FirstName, &user.LastName, &user.Avatar, &user.IsActive,
		&user.Permissions, &user.Profile,
		&user.LoginAttempts, &user.LockedUntil,
		&user.LastLogin, &user.TotalLogins, &user.LastActivity,
		&user.IssuesCreated, &user.IssuesResolved,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &user, nil
}

func scanUserRows(rows pgx.Rows) ([]*models.User, error) {
	defer rows.Close()

	users := make([]*models.User, 0)

	for rows.Next() {
		user, err := scanUserRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return users, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, id))
}

// GetByEmail looks an account up case-insensitively.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	return scanUserRow(r.pool.QueryRow(ctx, query, email))
}

// ListFilter narrows a paginated account listing.
type ListFilter struct {
	Search   string // substring match on email / first / last name
	Role     models.Role
	IsActive *bool
	Limit    int
	Offset   int
}

// List returns a page of accounts plus the total count for the same filter.
func (r *UserRepository) List(ctx context.Context, f ListFilter) ([]*models.User, int64, error) {
	where := make([]string, 0, 3)
	args := make([]interface{}, 0, 5)

	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf(
			"(email ILIKE $%d OR first_name ILIKE $%d OR last_name ILIKE $%d)", n, n, n))
	}
	if f.Role != "" {
		args = append(args, f.Role)
		where = append(where, fmt.Sprintf("role = $%d", len(args)))
	}
	if f.IsActive != nil {
		args = append(args, *f.IsActive)
		where = append(where, fmt.Sprintf("is_active = $%d", len(args)))
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT count(*) FROM users"+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	args = append(args, f.Limit, f.Offset)
	query := fmt.Sprintf("SELECT %s FROM users%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		userColumns, clause, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query users: %w", err)
	}

	users, err := scanUserRows(rows)
	if err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	user.ID = uuid.New().String()
	user.Email = strings.ToLower(user.Email)

	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if user.Permissions == nil {
		user.Permissions = []string{}
	}

	query := `
		INSERT INTO users (id, email, password_hash, role, first_name, last_name, avatar, is_active, permissions, profile)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + userColumns

	return scanUserRow(r.pool.QueryRow(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.Role,
		user.FirstName, user.LastName, user.Avatar, user.IsActive,
		user.Permissions, user.Profile,
	))
}

// Update persists the mutable profile/role fields. Lockout and activity
// counters are never written here; they have their own atomic statements.
func (r *UserRepository) Update(ctx context.Context, id string, user *models.User) (*models.User, error) {
	query := `
		UPDATE users
		SET first_name = $1, last_name = $2, avatar = $3, profile = $4,
			role = $5, is_active = $6, permissions = $7, updated_at = now()
		WHERE id = $8
		RETURNING ` + userColumns

	return scanUserRow(r.pool.QueryRow(ctx, query,
		user.FirstName, user.LastName, user.Avatar, user.Profile,
		user.Role, user.IsActive, user.Permissions, id,
	))
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2`,
		passwordHash, id,
	)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// RecordFailedLogin applies one failed-attempt transition of the lockout
// state machine in a single statement, evaluated against the live row so
// concurrent failures cannot lose an increment:
//   - an elapsed lock restarts the counter at 1 and clears the lock;
//   - otherwise the counter increments, and reaching the threshold sets
//     locked_until (an already-active lock is left untouched).
func (r *UserRepository) RecordFailedLogin(ctx context.Context, id string, threshold int, lockFor time.Duration) error {
	query := `
		UPDATE users SET
			login_attempts = CASE
				WHEN locked_until IS NOT NULL AND locked_until <= now() THEN 1
				ELSE login_attempts + 1
			END,
			locked_until = CASE
				WHEN locked_until IS NOT NULL AND locked_until <= now() THEN NULL
				WHEN locked_until IS NULL AND login_attempts + 1 >= $2 THEN now() + make_interval(secs => $3)
				ELSE locked_until
			END,
			updated_at = now()
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, threshold, lockFor.Seconds())
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// RecordLogin resets the lockout state and bumps the activity counters after
// a successful authentication.
func (r *UserRepository) RecordLogin(ctx context.Context, id string) error {
	query := `
		UPDATE users SET
			login_attempts = 0,
			locked_until = NULL,
			last_login = now(),
			last_activity = now(),
			total_logins = total_logins + 1,
			updated_at = now()
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ResetLoginAttempts clears the lockout state unconditionally (admin reset).
func (r *UserRepository) ResetLoginAttempts(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE users SET login_attempts = 0, locked_until = NULL, updated_at = now() WHERE id = $1`,
		id,
	)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *UserRepository) IncrementIssuesCreated(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET issues_created = issues_created + 1, last_activity = now() WHERE id = $1`,
		id,
	)
	return database.MapPostgresError(err)
}

func (r *UserRepository) IncrementIssuesResolved(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET issues_resolved = issues_resolved + 1, last_activity = now() WHERE id = $1`,
		id,
	)
	return database.MapPostgresError(err)
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *UserRepository) BulkSetActive(ctx context.Context, ids []string, active bool) (int64, error) {
	result, err := r.pool.Exec(ctx,
		`UPDATE users SET is_active = $1, updated_at = now() WHERE id = ANY($2)`,
		active, ids,
	)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return result.RowsAffected(), nil
}

func (r *UserRepository) BulkSetRole(ctx context.Context, ids []string, role models.Role) (int64, error) {
	result, err := r.pool.Exec(ctx,
		`UPDATE users SET role = $1, updated_at = now() WHERE id = ANY($2)`,
		role, ids,
	)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return result.RowsAffected(), nil
}

func (r *UserRepository) BulkDelete(ctx context.Context, ids []string) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return result.RowsAffected(), nil
}

// DeleteByEmailSuffix purges every account whose email ends with the given
// suffix (disposable test-data hygiene). The suffix is matched literally.
func (r *UserRepository) DeleteByEmailSuffix(ctx context.Context, suffix string) (int64, error) {
	pattern := "%" + escapeLike(suffix)
	result, err := r.pool.Exec(ctx, `DELETE FROM users WHERE email LIKE $1`, pattern)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return result.RowsAffected(), nil
}

// escapeLike neutralizes LIKE metacharacters in a literal suffix.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// Aggregate counts for the stats overview.

func (r *UserRepository) CountTotal(ctx context.Context) (int64, error) {
	return r.count(ctx, `SELECT count(*) FROM users`)
}

func (r *UserRepository) CountActive(ctx context.Context) (int64, error) {
	return r.count(ctx, `SELECT count(*) FROM users WHERE is_active`)
}

func (r *UserRepository) CountByRole(ctx context.Context, role models.Role) (int64, error) {
	return r.count(ctx, `SELECT count(*) FROM users WHERE role = $1`, role)
}

func (r *UserRepository) CountLoggedInSince(ctx context.Context, since time.Time) (int64, error) {
	return r.count(ctx, `SELECT count(*) FROM users WHERE last_login >= $1`, since)
}

func (r *UserRepository) CountLocked(ctx context.Context) (int64, error) {
	return r.count(ctx, `SELECT count(*) FROM users WHERE locked_until > now()`)
}

func (r *UserRepository) count(ctx context.Context, query string, args ...interface{}) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, database.MapPostgresError(err)
	}
	return n, nil
}
