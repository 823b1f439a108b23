package auth

import (
	"context"
	"time"

	"offcampus.org/internal/campus"
)

// RefreshTokenStore manages the refresh-token allow-list. One row is one
// outstanding token; a principal may hold several at once (multi-device).
type RefreshTokenStore interface {
	Create(ctx context.Context, rec *RefreshTokenRecord) error
	FindByHash(ctx context.Context, hash string) (*RefreshTokenRecord, error)
	DeleteByHash(ctx context.Context, hash string) error
	// DeleteExpired removes rows whose expiry precedes the cutoff. Validation
	// already deletes expired rows lazily; this exists for operator-driven
	// cleanup of abandoned rows.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// PrincipalSource re-fetches current principal data so a renewed access token
// reflects up-to-date claims rather than those captured at login.
type PrincipalSource interface {
	AccountByID(ctx context.Context, id int64) (*campus.Account, error)
	AccountByEmail(ctx context.Context, email string) (*campus.Account, error)
}
