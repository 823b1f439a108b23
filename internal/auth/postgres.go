package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

var _ RefreshTokenStore = (*PGTokenStore)(nil)

// PGTokenStore implements RefreshTokenStore on PostgreSQL. The unique index
// on token_hash is the serialization point for concurrent issuance; the store
// only translates the constraint violation, it never locks.
type PGTokenStore struct {
	db *sql.DB
}

func NewPGTokenStore(db *sql.DB) *PGTokenStore {
	return &PGTokenStore{db: db}
}

func (s *PGTokenStore) Create(ctx context.Context, rec *RefreshTokenRecord) error {
	_, err := s.db.ExecContext(ctx,
		`insert into refresh_tokens(id, token_hash, account_id, expires_at) values($1,$2,$3,$4)`,
		rec.ID, rec.TokenHash, rec.AccountID, rec.ExpiresAt,
	)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (s *PGTokenStore) FindByHash(ctx context.Context, hash string) (*RefreshTokenRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, token_hash, account_id, expires_at, created_at from refresh_tokens where token_hash=$1`,
		hash,
	)
	var rec RefreshTokenRecord
	if err := row.Scan(&rec.ID, &rec.TokenHash, &rec.AccountID, &rec.ExpiresAt, &rec.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (s *PGTokenStore) DeleteByHash(ctx context.Context, hash string) error {
	res, err := s.db.ExecContext(ctx, `delete from refresh_tokens where token_hash=$1`, hash)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGTokenStore) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `delete from refresh_tokens where expires_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
