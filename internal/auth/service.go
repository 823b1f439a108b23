package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"offcampus.org/internal/campus"
	"offcampus.org/internal/ids"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// Ledger issues, validates and revokes tokens for the two principal kinds.
// Access tokens are stateless and unrevocable before expiry; killing a
// session means revoking its refresh token and waiting out the access TTL.
type Ledger struct {
	store      RefreshTokenStore
	principals PrincipalSource
	now        func() time.Time

	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	accessTTL     time.Duration
	refreshTTL    time.Duration

	policeEmail        string
	policePasswordHash string
}

// LedgerOption configures Ledger behavior.
type LedgerOption func(*Ledger) error

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) LedgerOption {
	return func(l *Ledger) error {
		if fn != nil {
			l.now = fn
		}
		return nil
	}
}

// WithIssuer sets the token issuer claim.
func WithIssuer(issuer string) LedgerOption {
	return func(l *Ledger) error {
		l.issuer = strings.TrimSpace(issuer)
		return nil
	}
}

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) LedgerOption {
	return func(l *Ledger) error {
		if ttl > 0 {
			l.accessTTL = ttl
		}
		return nil
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) LedgerOption {
	return func(l *Ledger) error {
		if ttl > 0 {
			l.refreshTTL = ttl
		}
		return nil
	}
}

// WithPoliceCredentials configures the singleton police principal. The hash
// is a bcrypt hash of the shared police password.
func WithPoliceCredentials(email, passwordHash string) LedgerOption {
	return func(l *Ledger) error {
		l.policeEmail = strings.TrimSpace(strings.ToLower(email))
		l.policePasswordHash = passwordHash
		return nil
	}
}

// NewLedger constructs a Ledger. Both signing secrets are required; they must
// differ so an access token can never pass refresh verification.
func NewLedger(store RefreshTokenStore, principals PrincipalSource, accessSecret, refreshSecret string, opts ...LedgerOption) (*Ledger, error) {
	if strings.TrimSpace(accessSecret) == "" || strings.TrimSpace(refreshSecret) == "" {
		return nil, errors.New("auth: both signing secrets are required")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("auth: access and refresh secrets must differ")
	}
	l := &Ledger{
		store:         store,
		principals:    principals,
		now:           time.Now,
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     defaultAccessTTL,
		refreshTTL:    defaultRefreshTTL,
	}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// IssueAccessToken signs stateless access claims for the principal. The two
// variants produce different claim shapes: accounts embed profile fields,
// police carries only email and role.
func (l *Ledger) IssueAccessToken(principal Principal) (string, time.Time, error) {
	now := l.now().UTC()
	exp := now.Add(l.accessTTL)

	var claims AccessClaims
	switch principal.Kind {
	case KindAccount:
		if principal.Account == nil {
			return "", time.Time{}, errors.New("auth: account principal without account")
		}
		a := principal.Account
		claims = AccessClaims{
			Role:      a.Role,
			Email:     a.Email,
			FullName:  a.FullName,
			StudentID: a.StudentID,
			AccountID: a.ID,
		}
		claims.Subject = strconv.FormatInt(a.ID, 10)
	case KindPolice:
		claims = AccessClaims{
			Role:  RolePolice,
			Email: principal.PoliceEmail,
		}
		claims.Subject = PoliceSubject
	default:
		return "", time.Time{}, fmt.Errorf("auth: unknown principal kind %d", principal.Kind)
	}
	claims.Issuer = l.issuer
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(exp)
	claims.ID = uuid.NewString()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims).SignedString(l.accessSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return token, exp, nil
}

// IssueRefreshToken mints a refresh token for the account id (nil means the
// police principal) and records its hash in the ledger. The raw identifier is
// never persisted, so a database compromise does not yield usable tokens.
func (l *Ledger) IssueRefreshToken(ctx context.Context, accountID *int64) (string, time.Time, error) {
	now := l.now().UTC()
	exp := now.Add(l.refreshTTL)
	tid := uuid.NewString()

	claims := RefreshClaims{TokenID: tid}
	claims.Issuer = l.issuer
	claims.Subject = PoliceSubject
	if accountID != nil {
		claims.Subject = strconv.FormatInt(*accountID, 10)
	}
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(exp)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims).SignedString(l.refreshSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign refresh token: %w", err)
	}

	rec := &RefreshTokenRecord{
		ID:        ids.New(),
		TokenHash: HashTokenID(tid),
		AccountID: accountID,
		ExpiresAt: exp,
	}
	if err := l.store.Create(ctx, rec); err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

// ValidateRefreshToken checks signature, embedded expiry and the ledger row.
// All three must hold. An expired row is deleted as a side effect before the
// rejection (lazy cleanup). The returned id is nil for the police principal.
func (l *Ledger) ValidateRefreshToken(ctx context.Context, token string) (*int64, error) {
	claims, err := l.parseRefresh(token, true)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}
	hash := HashTokenID(claims.TokenID)
	rec, err := l.store.FindByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}
	if l.now().After(rec.ExpiresAt) {
		// The ledger enforces its own expiry independent of the JWT claim.
		_ = l.store.DeleteByHash(ctx, hash)
		return nil, ErrInvalidRefreshToken
	}
	return rec.AccountID, nil
}

// RevokeRefreshToken deletes the ledger row for the token. Decoding skips
// expiry validation so an already-expired token can still be cleaned up.
// Garbage input is a no-op success: the caller's intent, making the token
// unusable, is already satisfied.
func (l *Ledger) RevokeRefreshToken(ctx context.Context, token string) error {
	claims, err := l.parseRefresh(token, false)
	if err != nil {
		return nil
	}
	if err := l.store.DeleteByHash(ctx, HashTokenID(claims.TokenID)); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

// RefreshAccessToken validates the refresh token and issues a fresh access
// token from the principal's current state. The refresh token itself is not
// rotated; it remains valid until its own expiry or explicit logout.
func (l *Ledger) RefreshAccessToken(ctx context.Context, refreshToken string) (string, time.Time, error) {
	accountID, err := l.ValidateRefreshToken(ctx, refreshToken)
	if err != nil {
		return "", time.Time{}, err
	}
	principal, err := l.principalByID(ctx, accountID)
	if err != nil {
		return "", time.Time{}, err
	}
	return l.IssueAccessToken(principal)
}

// IssueTokenPair mints an access and refresh token together. Used at login
// boundaries after the caller has verified identity.
func (l *Ledger) IssueTokenPair(ctx context.Context, principal Principal) (TokenPair, error) {
	var accountID *int64
	if principal.Kind == KindAccount {
		if principal.Account == nil {
			return TokenPair{}, errors.New("auth: account principal without account")
		}
		accountID = &principal.Account.ID
	}
	access, accessExp, err := l.IssueAccessToken(principal)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, refreshExp, err := l.IssueRefreshToken(ctx, accountID)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Login verifies account credentials and issues a token pair.
func (l *Ledger) Login(ctx context.Context, email, password string) (TokenPair, Principal, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return TokenPair{}, Principal{}, ErrInvalidCredentials
	}
	account, err := l.principals.AccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, campus.ErrNotFound) {
			return TokenPair{}, Principal{}, ErrInvalidCredentials
		}
		return TokenPair{}, Principal{}, err
	}
	if account.Status != campus.StatusActive {
		return TokenPair{}, Principal{}, ErrInvalidCredentials
	}
	if err := VerifyPassword(account.PasswordHash, password); err != nil {
		return TokenPair{}, Principal{}, ErrInvalidCredentials
	}
	principal := AccountPrincipal(account)
	pair, err := l.IssueTokenPair(ctx, principal)
	if err != nil {
		return TokenPair{}, Principal{}, err
	}
	return pair, principal, nil
}

// PoliceLogin verifies the configured shared police credentials and issues a
// token pair for the police principal.
func (l *Ledger) PoliceLogin(ctx context.Context, email, password string) (TokenPair, Principal, error) {
	if l.policeEmail == "" || l.policePasswordHash == "" {
		return TokenPair{}, Principal{}, ErrInvalidCredentials
	}
	email = strings.TrimSpace(strings.ToLower(email))
	if subtle.ConstantTimeCompare([]byte(email), []byte(l.policeEmail)) != 1 {
		return TokenPair{}, Principal{}, ErrInvalidCredentials
	}
	if err := VerifyPassword(l.policePasswordHash, password); err != nil {
		return TokenPair{}, Principal{}, ErrInvalidCredentials
	}
	principal := PolicePrincipal(l.policeEmail)
	pair, err := l.IssueTokenPair(ctx, principal)
	if err != nil {
		return TokenPair{}, Principal{}, err
	}
	return pair, principal, nil
}

// ParseAccessToken verifies an access token and returns its claims.
func (l *Ledger) ParseAccessToken(token string) (*AccessClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	claims := &AccessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return l.accessSecret, nil
	}, l.parserOptions(true)...)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" || claims.Role == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (l *Ledger) principalByID(ctx context.Context, accountID *int64) (Principal, error) {
	if accountID == nil {
		return PolicePrincipal(l.policeEmail), nil
	}
	account, err := l.principals.AccountByID(ctx, *accountID)
	if err != nil {
		if errors.Is(err, campus.ErrNotFound) {
			return Principal{}, ErrInvalidRefreshToken
		}
		return Principal{}, err
	}
	if account.Status != campus.StatusActive {
		return Principal{}, ErrInvalidRefreshToken
	}
	return AccountPrincipal(account), nil
}

func (l *Ledger) parseRefresh(token string, validateClaims bool) (*RefreshClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidRefreshToken
	}
	opts := l.parserOptions(validateClaims)
	claims := &RefreshClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return l.refreshSecret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidRefreshToken
	}
	if claims.TokenID == "" {
		return nil, ErrInvalidRefreshToken
	}
	return claims, nil
}

func (l *Ledger) parserOptions(validateClaims bool) []jwt.ParserOption {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return l.now() }),
	}
	if !validateClaims {
		opts = append(opts, jwt.WithoutClaimsValidation())
	} else if l.issuer != "" {
		opts = append(opts, jwt.WithIssuer(l.issuer))
	}
	return opts
}

// HashTokenID is the deterministic hash stored as token_hash. sha256 keeps
// the allow-list a revocation capability, not a secrecy boundary.
func HashTokenID(tokenID string) string {
	sum := sha256.Sum256([]byte(tokenID))
	return hex.EncodeToString(sum[:])
}
