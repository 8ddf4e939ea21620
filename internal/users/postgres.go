package users

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/yourusername/secret-board/internal/apperr"
)

// pgxIface は *pgxpool.Pool と pgxmock の共通部分です。
type pgxIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const userColumns = `id, username, credential_hash, secret, created_at, updated_at`

// PostgresStore は users テーブルにユーザーを保存します。
// username の一意性は UNIQUE 制約で保証します。
type PostgresStore struct {
	pool    pgxIface
	timeout time.Duration
	now     func() time.Time
}

// NewPostgresStore は PostgresStore を作成します。
func NewPostgresStore(pool pgxIface, timeout time.Duration) *PostgresStore {
	return &PostgresStore{
		pool:    pool,
		timeout: timeout,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Create はユーザーを作成します。
func (s *PostgresStore) Create(ctx context.Context, username, credentialHash string) (*User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	now := s.now()
	user := &User{
		ID:             uuid.NewString(),
		Username:       username,
		CredentialHash: credentialHash,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, username, credential_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, user.ID, user.Username, user.CredentialHash, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, oops.With("username", username).Wrap(apperr.ErrDuplicateUsername)
		}
		return nil, apperr.StoreUnavailable("insert user", err)
	}
	return user, nil
}

// FindByUsername は username でユーザーを検索します（大文字小文字を区別します）。
func (s *PostgresStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, apperr.StoreUnavailable("find user by username", err)
	}
	return user, nil
}

// FindByID は ID でユーザーを検索します。
func (s *PostgresStore) FindByID(ctx context.Context, id string) (*User, error) {
	// id 列は uuid 型なので、形式の違う ID は問い合わせるまでもなく存在しない
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperr.ErrNotFound
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, apperr.StoreUnavailable("find user by id", err)
	}
	return user, nil
}

// UpdateSecret はシークレットを上書きします。
func (s *PostgresStore) UpdateSecret(ctx context.Context, id, secret string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperr.ErrNotFound
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tag, err := s.pool.Exec(ctx, `
		UPDATE users SET secret = $2, updated_at = $3
		WHERE id = $1
	`, id, secret, s.now())
	if err != nil {
		return apperr.StoreUnavailable("update secret", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// ListWithSecret はシークレットを持つユーザーを作成順で返します。
func (s *PostgresStore) ListWithSecret(ctx context.Context) ([]*User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE secret IS NOT NULL
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, apperr.StoreUnavailable("list secret holders", err)
	}
	defer rows.Close()

	result := make([]*User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, apperr.StoreUnavailable("scan secret holder", err)
		}
		result = append(result, user)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.StoreUnavailable("iterate secret holders", err)
	}
	return result, nil
}

func scanUser(row pgx.Row) (*User, error) {
	var user User
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.CredentialHash,
		&user.Secret,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *PostgresStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}
