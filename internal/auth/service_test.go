package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"offcampus.org/internal/campus"
)

// memTokenStore is an in-memory RefreshTokenStore keyed by token hash.
type memTokenStore struct {
	mu   sync.Mutex
	rows map[string]*RefreshTokenRecord
}

func newMemTokenStore() *memTokenStore {
	return &memTokenStore{rows: make(map[string]*RefreshTokenRecord)}
}

func (s *memTokenStore) Create(ctx context.Context, rec *RefreshTokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[rec.TokenHash]; ok {
		return ErrConflict
	}
	copied := *rec
	copied.CreatedAt = time.Now().UTC()
	s.rows[rec.TokenHash] = &copied
	return nil
}

func (s *memTokenStore) FindByHash(ctx context.Context, hash string) (*RefreshTokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.rows[hash]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *rec
	return &copied, nil
}

func (s *memTokenStore) DeleteByHash(ctx context.Context, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[hash]; !ok {
		return ErrNotFound
	}
	delete(s.rows, hash)
	return nil
}

func (s *memTokenStore) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for hash, rec := range s.rows {
		if rec.ExpiresAt.Before(cutoff) {
			delete(s.rows, hash)
			n++
		}
	}
	return n, nil
}

func (s *memTokenStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// memPrincipals serves accounts by id and lowercased email.
type memPrincipals struct {
	accounts map[int64]*campus.Account
}

func (p *memPrincipals) AccountByID(ctx context.Context, id int64) (*campus.Account, error) {
	if a, ok := p.accounts[id]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, campus.ErrNotFound
}

func (p *memPrincipals) AccountByEmail(ctx context.Context, email string) (*campus.Account, error) {
	for _, a := range p.accounts {
		if a.Email == email {
			copied := *a
			return &copied, nil
		}
	}
	return nil, campus.ErrNotFound
}

type fixture struct {
	ledger     *Ledger
	store      *memTokenStore
	principals *memPrincipals
	now        time.Time
	advance    func(d time.Duration)
}

func newFixture(t *testing.T, opts ...LedgerOption) *fixture {
	t.Helper()

	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	f := &fixture{
		store: newMemTokenStore(),
		principals: &memPrincipals{accounts: map[int64]*campus.Account{
			42: {
				ID:           42,
				Email:        "dana@example.edu",
				PasswordHash: hash,
				FullName:     "Dana Example",
				Role:         campus.RoleStudent,
				Status:       campus.StatusActive,
				StudentID:    "A1234567",
			},
		}},
		now: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}
	f.advance = func(d time.Duration) { f.now = f.now.Add(d) }

	policeHash, err := HashPassword("dispatch-shared")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	all := append([]LedgerOption{
		WithClock(func() time.Time { return f.now }),
		WithIssuer("offcampus-test"),
		WithPoliceCredentials("dispatch@citypd.gov", policeHash),
	}, opts...)

	f.ledger, err = NewLedger(f.store, f.principals, "access-secret", "refresh-secret", all...)
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}
	return f
}

func TestNewLedgerRequiresDistinctSecrets(t *testing.T) {
	store := newMemTokenStore()
	if _, err := NewLedger(store, nil, "", "refresh"); err == nil {
		t.Fatal("expected error for empty access secret")
	}
	if _, err := NewLedger(store, nil, "same", "same"); err == nil {
		t.Fatal("expected error for identical secrets")
	}
}

func TestLoginIssuesParsableTokenPair(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pair, principal, err := f.ledger.Login(ctx, "Dana@Example.EDU", "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if principal.Kind != KindAccount || principal.Account.ID != 42 {
		t.Fatalf("unexpected principal: %+v", principal)
	}

	claims, err := f.ledger.ParseAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if claims.Subject != "42" {
		t.Fatalf("unexpected subject: %s", claims.Subject)
	}
	if claims.Role != campus.RoleStudent || claims.Email != "dana@example.edu" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.AccountID != 42 || claims.IsPolice() {
		t.Fatalf("unexpected identity claims: %+v", claims)
	}

	accountID, err := f.ledger.ValidateRefreshToken(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("ValidateRefreshToken: %v", err)
	}
	if accountID == nil || *accountID != 42 {
		t.Fatalf("unexpected account id: %v", accountID)
	}
}

func TestLoginRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name, email, password string
	}{
		{"wrong password", "dana@example.edu", "wrong"},
		{"unknown account", "nobody@example.edu", "correct horse"},
		{"empty password", "dana@example.edu", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := f.ledger.Login(ctx, tc.email, tc.password); !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}

	// A disabled account fails with the same error as a bad password.
	f.principals.accounts[42].Status = campus.StatusDisabled
	if _, _, err := f.ledger.Login(ctx, "dana@example.edu", "correct horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for disabled account, got %v", err)
	}
}

func TestPoliceLoginUsesNullSentinel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pair, principal, err := f.ledger.PoliceLogin(ctx, "Dispatch@CityPD.gov", "dispatch-shared")
	if err != nil {
		t.Fatalf("PoliceLogin: %v", err)
	}
	if principal.Kind != KindPolice {
		t.Fatalf("unexpected principal kind: %v", principal.Kind)
	}

	claims, err := f.ledger.ParseAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if !claims.IsPolice() || claims.Subject != PoliceSubject {
		t.Fatalf("unexpected police claims: %+v", claims)
	}
	if claims.AccountID != 0 {
		t.Fatalf("police claims must not carry an account id: %+v", claims)
	}

	// The ledger row for the police refresh token has no account id.
	accountID, err := f.ledger.ValidateRefreshToken(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("ValidateRefreshToken: %v", err)
	}
	if accountID != nil {
		t.Fatalf("expected nil account id for police, got %v", *accountID)
	}
	for _, rec := range f.store.rows {
		if rec.AccountID != nil {
			t.Fatalf("police refresh record must store NULL account id: %+v", rec)
		}
	}

	if _, _, err := f.ledger.PoliceLogin(ctx, "dispatch@citypd.gov", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestRawTokenIdentifierIsNeverPersisted(t *testing.T) {
	f := newFixture(t)
	pair, _, err := f.ledger.Login(context.Background(), "dana@example.edu", "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	for hash, rec := range f.store.rows {
		if len(hash) != 64 {
			t.Fatalf("token_hash is not a sha256 hex digest: %q", hash)
		}
		if strings.Contains(pair.RefreshToken, rec.TokenHash) {
			t.Fatal("the persisted hash must not appear inside the issued token")
		}
	}
}

func TestValidateRejectsForgedAndForeignTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pair, _, err := f.ledger.Login(ctx, "dana@example.edu", "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	// Garbage, a token signed for access use, and a valid-looking token whose
	// row is gone all collapse into the same rejection.
	for name, token := range map[string]string{
		"garbage":      "not-a-jwt",
		"empty":        "",
		"access token": pair.AccessToken,
	} {
		if _, err := f.ledger.ValidateRefreshToken(ctx, token); !errors.Is(err, ErrInvalidRefreshToken) {
			t.Fatalf("%s: expected ErrInvalidRefreshToken, got %v", name, err)
		}
	}

	if err := f.ledger.RevokeRefreshToken(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("RevokeRefreshToken: %v", err)
	}
	if _, err := f.ledger.ValidateRefreshToken(ctx, pair.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("revoked token must be rejected, got %v", err)
	}
}

func TestExpiredRefreshTokenIsDeletedLazily(t *testing.T) {
	f := newFixture(t, WithRefreshTTL(time.Hour))
	ctx := context.Background()

	pair, _, err := f.ledger.Login(ctx, "dana@example.edu", "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if f.store.count() != 1 {
		t.Fatalf("expected one stored token, got %d", f.store.count())
	}

	f.advance(2 * time.Hour)

	if _, err := f.ledger.ValidateRefreshToken(ctx, pair.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
	// Validation deleted the expired row as a side effect.
	if f.store.count() != 0 {
		t.Fatalf("expected expired row to be deleted, %d remain", f.store.count())
	}
}

func TestRevokeIsIdempotentAndSwallowsGarbage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pair, _, err := f.ledger.Login(ctx, "dana@example.edu", "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := f.ledger.RevokeRefreshToken(ctx, pair.RefreshToken); err != nil {
			t.Fatalf("revoke %d: %v", i, err)
		}
	}
	if err := f.ledger.RevokeRefreshToken(ctx, "complete garbage"); err != nil {
		t.Fatalf("garbage revoke: %v", err)
	}
	if err := f.ledger.RevokeRefreshToken(ctx, ""); err != nil {
		t.Fatalf("empty revoke: %v", err)
	}
}

func TestRevokeAcceptsExpiredToken(t *testing.T) {
	f := newFixture(t, WithRefreshTTL(time.Hour))
	ctx := context.Background()

	pair, _, err := f.ledger.Login(ctx, "dana@example.edu", "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	f.advance(2 * time.Hour)

	// Revocation skips claim expiry checks so the row still gets cleaned up.
	if err := f.ledger.RevokeRefreshToken(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("RevokeRefreshToken: %v", err)
	}
	if f.store.count() != 0 {
		t.Fatalf("expected row deleted, %d remain", f.store.count())
	}
}

func TestRefreshAccessTokenTracksAccountState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pair, _, err := f.ledger.Login(ctx, "dana@example.edu", "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	// Profile changes between login and refresh show up in the new token.
	f.principals.accounts[42].Role = campus.RoleAdmin

	access, exp, err := f.ledger.RefreshAccessToken(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshAccessToken: %v", err)
	}
	if !exp.After(f.now) {
		t.Fatalf("expected future expiry, got %v", exp)
	}
	claims, err := f.ledger.ParseAccessToken(access)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if claims.Role != campus.RoleAdmin {
		t.Fatalf("refreshed token must reflect current role, got %s", claims.Role)
	}

	// A now-disabled account can no longer refresh.
	f.principals.accounts[42].Status = campus.StatusDisabled
	if _, _, err := f.ledger.RefreshAccessToken(ctx, pair.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken for disabled account, got %v", err)
	}

	// So can a deleted one.
	f.principals.accounts[42].Status = campus.StatusActive
	delete(f.principals.accounts, 42)
	if _, _, err := f.ledger.RefreshAccessToken(ctx, pair.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken for deleted account, got %v", err)
	}
}

func TestPoliceRefreshSurvivesWithoutAccountRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pair, _, err := f.ledger.PoliceLogin(ctx, "dispatch@citypd.gov", "dispatch-shared")
	if err != nil {
		t.Fatalf("PoliceLogin: %v", err)
	}
	access, _, err := f.ledger.RefreshAccessToken(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshAccessToken: %v", err)
	}
	claims, err := f.ledger.ParseAccessToken(access)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if !claims.IsPolice() {
		t.Fatalf("expected police claims, got %+v", claims)
	}
}

func TestParseRejectsExpiredAccessToken(t *testing.T) {
	f := newFixture(t, WithAccessTTL(time.Minute))

	pair, _, err := f.ledger.Login(context.Background(), "dana@example.edu", "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := f.ledger.ParseAccessToken(pair.AccessToken); err != nil {
		t.Fatalf("fresh token rejected: %v", err)
	}

	f.advance(2 * time.Minute)
	if _, err := f.ledger.ParseAccessToken(pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestDeleteExpiredReclaimsStaleRows(t *testing.T) {
	f := newFixture(t, WithRefreshTTL(time.Hour))
	ctx := context.Background()

	if _, _, err := f.ledger.Login(ctx, "dana@example.edu", "correct horse"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	f.advance(30 * time.Minute)
	if _, _, err := f.ledger.Login(ctx, "dana@example.edu", "correct horse"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	f.advance(45 * time.Minute)

	// First token is 75 minutes old, second 45. Only the first expired.
	n, err := f.store.DeleteExpired(ctx, f.now)
	if err != nil {
		t.Fatalf("DeleteExpired: %v", err)
	}
	if n != 1 || f.store.count() != 1 {
		t.Fatalf("expected exactly one reclaimed row, deleted=%d remaining=%d", n, f.store.count())
	}
}
