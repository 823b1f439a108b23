package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"offcampus.org/internal/campus"
)

// RolePolice is the role claim carried by the singleton police principal. It
// never appears on an account row.
const RolePolice = "police"

// PoliceSubject is the refresh-token subject used for the police principal,
// whose ledger rows carry a NULL account id.
const PoliceSubject = "police"

// PrincipalKind tags the two principal variants.
type PrincipalKind int

const (
	KindAccount PrincipalKind = iota + 1
	KindPolice
)

// Principal is a tagged variant: a university account or the singleton police
// identity. Downstream code switches on Kind exhaustively.
type Principal struct {
	Kind        PrincipalKind
	Account     *campus.Account // set when Kind == KindAccount
	PoliceEmail string          // set when Kind == KindPolice
}

// AccountPrincipal wraps an account row.
func AccountPrincipal(a *campus.Account) Principal {
	return Principal{Kind: KindAccount, Account: a}
}

// PolicePrincipal builds the singleton police principal.
func PolicePrincipal(email string) Principal {
	return Principal{Kind: KindPolice, PoliceEmail: email}
}

// AccessClaims are the stateless access-token claims. The account variant
// carries profile fields for downstream authorization; the police variant
// carries only email and the police role.
type AccessClaims struct {
	Role      string `json:"role"`
	Email     string `json:"email"`
	FullName  string `json:"full_name,omitempty"`
	StudentID string `json:"student_id,omitempty"`
	AccountID int64  `json:"account_id,omitempty"`
	jwt.RegisteredClaims
}

// IsPolice reports whether the claims belong to the police principal.
func (c *AccessClaims) IsPolice() bool { return c.Role == RolePolice }

// RefreshClaims carry the random token identifier whose hash is the ledger
// key. Subject is the stringified account id or PoliceSubject.
type RefreshClaims struct {
	TokenID string `json:"tid"`
	jwt.RegisteredClaims
}

// RefreshTokenRecord is one outstanding refresh token in the ledger. Only the
// hash of the token identifier is persisted; the raw identifier lives solely
// inside the signed token. A nil AccountID denotes the police principal.
type RefreshTokenRecord struct {
	ID        string
	TokenHash string
	AccountID *int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

// TokenPair bundles the two tokens returned at login and SSO boundaries.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}
