package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/vidtube/internal/common"
	"github.com/dmitrijs2005/vidtube/internal/dbx"
	"github.com/dmitrijs2005/vidtube/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation    = "23505"
	pgInvalidTextRepr    = "22P02"
	userColumns          = `id, username, email, full_name, password_hash, avatar_url, cover_image_url, refresh_token, created_at, updated_at`
	userReturningColumns = ` RETURNING ` + userColumns
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (username, email, full_name, password_hash, avatar_url, cover_image_url)
		 VALUES ($1, $2, $3, $4, $5, $6)` + userReturningColumns

	row := r.db.QueryRowContext(ctx, query,
		user.UserName, user.Email, user.FullName, user.PasswordHash, user.AvatarURL, user.CoverImageURL)

	return scanUser(row)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		 WHERE lower(username) = lower($1) OR lower(email) = lower($1)
		 LIMIT 1`
	return scanUser(r.db.QueryRowContext(ctx, query, login))
}

func (r *PostgresRepository) ExistsByUserNameOrEmail(ctx context.Context, username, email string) (bool, error) {
	query := `SELECT EXISTS (
		 SELECT 1 FROM users WHERE lower(username) = lower($1) OR lower(email) = lower($2)
		 )`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, username, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	query := `UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2`
	return r.execOne(ctx, query, hash, id)
}

func (r *PostgresRepository) UpdateAccountDetails(ctx context.Context, id, fullName, email string) (*models.User, error) {
	query := `UPDATE users SET full_name = $1, email = $2, updated_at = now() WHERE id = $3` + userReturningColumns
	return scanUser(r.db.QueryRowContext(ctx, query, fullName, email, id))
}

func (r *PostgresRepository) UpdateAvatar(ctx context.Context, id, url string) (*models.User, error) {
	query := `UPDATE users SET avatar_url = $1, updated_at = now() WHERE id = $2` + userReturningColumns
	return scanUser(r.db.QueryRowContext(ctx, query, url, id))
}

func (r *PostgresRepository) UpdateCoverImage(ctx context.Context, id, url string) (*models.User, error) {
	query := `UPDATE users SET cover_image_url = $1, updated_at = now() WHERE id = $2` + userReturningColumns
	return scanUser(r.db.QueryRowContext(ctx, query, url, id))
}

func (r *PostgresRepository) SetRefreshToken(ctx context.Context, id, token string) error {
	query := `UPDATE users SET refresh_token = $1 WHERE id = $2`
	return r.execOne(ctx, query, token, id)
}

func (r *PostgresRepository) SwapRefreshToken(ctx context.Context, id, expected, next string) (bool, error) {
	query := `UPDATE users SET refresh_token = $1 WHERE id = $2 AND refresh_token = $3`

	res, err := r.db.ExecContext(ctx, query, next, id, expected)
	if err != nil {
		return false, mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresRepository) ClearRefreshToken(ctx context.Context, id string) error {
	query := `UPDATE users SET refresh_token = NULL WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		if errors.Is(mapError(err), common.ErrNotFound) {
			return nil
		}
		return mapError(err)
	}
	return nil
}

func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var refreshToken sql.NullString

	err := row.Scan(&user.ID, &user.UserName, &user.Email, &user.FullName, &user.PasswordHash,
		&user.AvatarURL, &user.CoverImageURL, &refreshToken, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}

	if refreshToken.Valid {
		user.RefreshToken = &refreshToken.String
	}
	return user, nil
}

// mapError turns driver errors into the common sentinels. A malformed UUID
// cannot name an existing row, so it is reported as not found.
func mapError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", common.ErrConflict, pgErr.ConstraintName)
		case pgInvalidTextRepr:
			return common.ErrNotFound
		}
	}

	return fmt.Errorf("db error: %w", err)
}
