package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"federation-service/internal/auth"
	"federation-service/internal/store"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// uniqueViolation is the Postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// UserStore is the Postgres store.UserStore. Create and Update each run
// in a single transaction.
type UserStore struct {
	db *DB
}

func NewUserStore(d *DB) *UserStore {
	return &UserStore{db: d}
}

const selectUser = `
SELECT id, email, hashed_password, is_active, is_verified, created_at, updated_at
FROM users
`

func (s *UserStore) Get(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	return s.getOne(ctx, selectUser+`WHERE id = $1`, id)
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	return s.getOne(ctx, selectUser+`WHERE LOWER(email) = LOWER($1)`, email)
}

func (s *UserStore) GetByOAuthAccount(ctx context.Context, oauthName, accountID string) (*auth.User, error) {
	return s.getOne(ctx, selectUser+`
WHERE id = (
    SELECT user_id FROM oauth_accounts
    WHERE oauth_name = $1 AND account_id = $2
)`, oauthName, accountID)
}

func (s *UserStore) getOne(ctx context.Context, query string, args ...any) (*auth.User, error) {
	u := &auth.User{}
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&u.ID, &u.Email, &u.HashedPassword, &u.IsActive, &u.IsVerified, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("db: load user: %w", err)
	}

	if err := s.loadAccounts(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserStore) loadAccounts(ctx context.Context, u *auth.User) error {
	rows, err := s.db.QueryContext(ctx, `
SELECT oauth_name, account_id, account_email, access_token, refresh_token, expires_at, claims
FROM oauth_accounts
WHERE user_id = $1
`, u.ID)
	if err != nil {
		return fmt.Errorf("db: load oauth accounts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			a         auth.ExternalAccount
			expiresAt sql.NullTime
			claims    []byte
		)
		if err := rows.Scan(&a.OAuthName, &a.AccountID, &a.AccountEmail, &a.AccessToken, &a.RefreshToken, &expiresAt, &claims); err != nil {
			return fmt.Errorf("db: scan oauth account: %w", err)
		}
		if expiresAt.Valid {
			t := expiresAt.Time
			a.ExpiresAt = &t
		}
		a.Claims = map[string]any{}
		if len(claims) > 0 {
			if err := json.Unmarshal(claims, &a.Claims); err != nil {
				return fmt.Errorf("db: decode claims: %w", err)
			}
		}
		u.PutOAuthAccount(a)
	}
	return rows.Err()
}

func (s *UserStore) Create(ctx context.Context, u *auth.User) error {
	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
INSERT INTO users (id, email, hashed_password, is_active, is_verified)
VALUES ($1, $2, $3, $4, $5)
RETURNING created_at, updated_at
`, u.ID, u.Email, u.HashedPassword, u.IsActive, u.IsVerified).Scan(&u.CreatedAt, &u.UpdatedAt)
		if err != nil {
			return classify("create user", err)
		}

		for _, a := range u.OAuthAccounts() {
			if err := insertAccount(ctx, tx, u.ID, a); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *UserStore) Update(ctx context.Context, u *auth.User) error {
	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
UPDATE users
SET email = $2, hashed_password = $3, is_active = $4, is_verified = $5, updated_at = NOW()
WHERE id = $1
RETURNING updated_at
`, u.ID, u.Email, u.HashedPassword, u.IsActive, u.IsVerified).Scan(&u.UpdatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrUserNotFound
		}
		if err != nil {
			return classify("update user", err)
		}

		for _, a := range u.OAuthAccounts() {
			if err := upsertAccount(ctx, tx, u.ID, a); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertAccount(ctx context.Context, tx *sql.Tx, userID uuid.UUID, a auth.ExternalAccount) error {
	claims, err := encodeClaims(a.Claims)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
INSERT INTO oauth_accounts
    (id, user_id, oauth_name, account_id, account_email, access_token, refresh_token, expires_at, claims)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`, uuid.New(), userID, a.OAuthName, a.AccountID, a.AccountEmail, a.AccessToken, a.RefreshToken, nullTime(a.ExpiresAt), claims)
	if err != nil {
		return classify("insert oauth account", err)
	}
	return nil
}

// upsertAccount never moves an account between users: when the pair
// belongs to someone else the conditional update matches no row.
func upsertAccount(ctx context.Context, tx *sql.Tx, userID uuid.UUID, a auth.ExternalAccount) error {
	claims, err := encodeClaims(a.Claims)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `
INSERT INTO oauth_accounts
    (id, user_id, oauth_name, account_id, account_email, access_token, refresh_token, expires_at, claims)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (oauth_name, account_id) DO UPDATE SET
    account_email = excluded.account_email,
    access_token = excluded.access_token,
    refresh_token = excluded.refresh_token,
    expires_at = excluded.expires_at,
    claims = excluded.claims,
    updated_at = NOW()
WHERE oauth_accounts.user_id = excluded.user_id
`, uuid.New(), userID, a.OAuthName, a.AccountID, a.AccountEmail, a.AccessToken, a.RefreshToken, nullTime(a.ExpiresAt), claims)
	if err != nil {
		return classify("upsert oauth account", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db: upsert oauth account: %w", err)
	}
	if n == 0 {
		return store.ErrDuplicateOAuthAccount
	}
	return nil
}

// classify maps unique violations onto the store conflict errors.
func classify(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		switch pqErr.Constraint {
		case emailUniqueIndex:
			return fmt.Errorf("db: %s: %w", op, store.ErrDuplicateEmail)
		case accountUniqueIndex:
			return fmt.Errorf("db: %s: %w", op, store.ErrDuplicateOAuthAccount)
		}
	}
	return fmt.Errorf("db: %s: %w", op, err)
}

func encodeClaims(claims map[string]any) ([]byte, error) {
	if claims == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(claims)
	if err != nil {
		return nil, fmt.Errorf("db: encode claims: %w", err)
	}
	return b, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
