package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AnthoniusHendriyanto/identity-core/internal/identity/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the subset of pgxpool.Pool the repository uses. pgxmock
// implements it for tests.
type PgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresRepository struct {
	db PgxPool
}

func NewPostgresRepository(db PgxPool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, email, username, password_hash, is_active,
		password_reset_token, password_reset_expires_at, last_login_at, created_at, updated_at`

func (r *PostgresRepository) getUserBy(ctx context.Context, where string, arg any) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE %s LIMIT 1;`, userColumns, where)
	row := r.db.QueryRow(ctx, query, arg)

	var user domain.User
	err := row.Scan(&user.ID, &user.Email, &user.Username, &user.PasswordHash, &user.Active,
		&user.PasswordResetToken, &user.PasswordResetExpiresAt, &user.LastLoginAt,
		&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := r.loadRoles(ctx, &user); err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *PostgresRepository) loadRoles(ctx context.Context, user *domain.User) error {
	rows, err := r.db.Query(ctx, `
		SELECT r.id, r.name, r.description, r.permissions
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		ORDER BY r.id;
	`, user.ID)
	if err != nil {
		return fmt.Errorf("failed to load roles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var role domain.Role
		var permissions string
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &permissions); err != nil {
			return fmt.Errorf("failed to scan role: %w", err)
		}
		role.Permissions = splitPermissions(permissions)
		user.Roles = append(user.Roles, role)
	}

	return rows.Err()
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getUserBy(ctx, "email = $1", email)
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getUserBy(ctx, "username = $1", username)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getUserBy(ctx, "id = $1", id)
}

func (r *PostgresRepository) GetByResetToken(ctx context.Context, token string) (*domain.User, error) {
	return r.getUserBy(ctx, "password_reset_token = $1", token)
}

func (r *PostgresRepository) Create(ctx context.Context, user *domain.User) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO users (id, email, username, password_hash, is_active, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `, user.ID, user.Email, user.Username, user.PasswordHash, user.Active, user.CreatedAt, user.UpdatedAt)

	return err
}

func (r *PostgresRepository) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users SET last_login_at = $2, updated_at = $2 WHERE id = $1
	`, userID, at)
	return err
}

func (r *PostgresRepository) SetResetToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users
		SET password_reset_token = $2, password_reset_expires_at = $3, updated_at = now()
		WHERE id = $1
	`, userID, token, expiresAt)
	return err
}

// CompletePasswordReset applies the credential-change cascade atomically:
// the new hash, the token+expiry clear, and the revocation of every refresh
// record commit together or not at all.
func (r *PostgresRepository) CompletePasswordReset(ctx context.Context, userID, newHash string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin reset transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `
		UPDATE users
		SET password_hash = $2, password_reset_token = NULL,
			password_reset_expires_at = NULL, updated_at = now()
		WHERE id = $1
	`, userID, newHash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE refresh_tokens SET revoked = TRUE WHERE user_id = $1 AND revoked = FALSE
	`, userID); err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *PostgresRepository) StoreRefreshToken(ctx context.Context, rt *domain.RefreshTokenRecord) error {
	query := `INSERT INTO refresh_tokens (id, user_id, user_agent, ip_address, expires_at, created_at, revoked)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.Exec(ctx, query,
		rt.ID, rt.UserID, rt.UserAgent, rt.IPAddress, rt.ExpiresAt, rt.CreatedAt, rt.Revoked)
	return err
}

func (r *PostgresRepository) GetRefreshToken(ctx context.Context, jti string) (*domain.RefreshTokenRecord, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, user_id, user_agent, ip_address, revoked, expires_at, created_at
		FROM refresh_tokens
		WHERE id = $1
		LIMIT 1;
	`, jti)

	var rt domain.RefreshTokenRecord
	err := row.Scan(&rt.ID, &rt.UserID, &rt.UserAgent, &rt.IPAddress, &rt.Revoked, &rt.ExpiresAt, &rt.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &rt, nil
}

// RevokeRefreshToken is the compare-and-swap that decides rotation races:
// the conditional WHERE means only one caller ever sees a row affected.
func (r *PostgresRepository) RevokeRefreshToken(ctx context.Context, jti string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE refresh_tokens SET revoked = TRUE WHERE id = $1 AND revoked = FALSE
	`, jti)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PostgresRepository) RevokeAllRefreshTokensByUserID(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE refresh_tokens SET revoked = TRUE WHERE user_id = $1 AND revoked = FALSE
	`, userID)
	return err
}

func (r *PostgresRepository) GetActiveSessionsByUserID(ctx context.Context, userID string) ([]domain.RefreshTokenRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, user_agent, ip_address, revoked, expires_at, created_at
		FROM refresh_tokens
		WHERE user_id = $1 AND revoked = FALSE AND expires_at > now()
		ORDER BY created_at DESC;
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []domain.RefreshTokenRecord
	for rows.Next() {
		var rt domain.RefreshTokenRecord
		if err := rows.Scan(&rt.ID, &rt.UserID, &rt.UserAgent, &rt.IPAddress, &rt.Revoked, &rt.ExpiresAt, &rt.CreatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, rt)
	}

	return sessions, rows.Err()
}

func (r *PostgresRepository) GetActiveCountByUserID(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM refresh_tokens
		WHERE user_id = $1 AND revoked = FALSE AND expires_at > now();
	`, userID).Scan(&count)
	return count, err
}

func (r *PostgresRepository) DeleteOldestByUserID(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM refresh_tokens
		WHERE id = (
			SELECT id FROM refresh_tokens
			WHERE user_id = $1 AND revoked = FALSE
			ORDER BY created_at ASC
			LIMIT 1
		)
	`, userID)
	return err
}

func (r *PostgresRepository) RecordLoginAttempt(ctx context.Context, email, ip string, success bool) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO login_attempts (id, email, ip_address, attempt_time, successful)
		VALUES (gen_random_uuid(), $1, $2, now(), $3)
	`, email, ip, success)
	return err
}

func (r *PostgresRepository) FindOrCreateRole(ctx context.Context, name, description string, permissions []string) (*domain.Role, error) {
	role := domain.Role{Name: name, Description: description, Permissions: permissions}

	var stored string
	err := r.db.QueryRow(ctx, `
		SELECT id, description, permissions FROM roles WHERE name = $1 LIMIT 1;
	`, name).Scan(&role.ID, &role.Description, &stored)
	if err == nil {
		role.Permissions = splitPermissions(stored)
		return &role, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to look up role %s: %w", name, err)
	}

	err = r.db.QueryRow(ctx, `
		INSERT INTO roles (name, description, permissions)
		VALUES ($1, $2, $3)
		RETURNING id;
	`, name, description, strings.Join(permissions, ",")).Scan(&role.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create role %s: %w", name, err)
	}

	return &role, nil
}

func (r *PostgresRepository) AssignRole(ctx context.Context, userID string, roleID int) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO user_roles (user_id, role_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, userID, roleID)
	return err
}

func splitPermissions(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	perms := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			perms = append(perms, p)
		}
	}
	return perms
}
