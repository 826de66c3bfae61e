package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const grantIssuer = "rostergate"

// GrantClaims is carried by a seat access grant.
type GrantClaims struct {
	AccountID string `json:"account_id"`
	Reason    string `json:"reason"`
	jwt.RegisteredClaims
}

// GrantIssuer signs and verifies short-lived seat access grants (HS256).
type GrantIssuer struct {
	secret []byte
	ttl    time.Duration
	clock  func() time.Time
}

// NewGrantIssuer builds an issuer. ttl is the maximum lifetime of a grant.
func NewGrantIssuer(secret string, ttl time.Duration) (*GrantIssuer, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("%w: ttl must be greater than zero", ErrInvalidInput)
	}
	return &GrantIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		clock:  func() time.Time { return time.Now().UTC() },
	}, nil
}

// Issue signs a grant for subject on accountID. The grant expires at
// checkedAt+maxAge or after the issuer ttl, whichever comes first, so it never
// outlives the seat snapshot that justified it.
func (g *GrantIssuer) Issue(subject, accountID, reason string, checkedAt time.Time, maxAge time.Duration) (string, time.Time, error) {
	subject = strings.TrimSpace(subject)
	accountID = strings.TrimSpace(accountID)
	if subject == "" || accountID == "" {
		return "", time.Time{}, fmt.Errorf("%w: subject and account are required", ErrInvalidInput)
	}
	now := g.clock()
	expires := now.Add(g.ttl)
	if !checkedAt.IsZero() {
		if limit := checkedAt.Add(maxAge); limit.Before(expires) {
			expires = limit
		}
	}
	if !expires.After(now) {
		return "", time.Time{}, fmt.Errorf("%w: seat snapshot already expired", ErrInvalidInput)
	}

	claims := GrantClaims{
		AccountID: accountID,
		Reason:    reason,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    grantIssuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign grant: %w", err)
	}
	return signed, expires, nil
}

// Parse verifies the signature and required claims of a grant.
func (g *GrantIssuer) Parse(token string) (*GrantClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &GrantClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return g.secret, nil
	}, jwt.WithTimeFunc(g.clock))
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*GrantClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if err := g.validateClaims(claims); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (g *GrantIssuer) validateClaims(claims *GrantClaims) error {
	if claims.Issuer != grantIssuer {
		return fmt.Errorf("unexpected issuer: %s", claims.Issuer)
	}
	if strings.TrimSpace(claims.Subject) == "" || strings.TrimSpace(claims.AccountID) == "" {
		return errors.New("subject or account missing")
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return errors.New("timestamps missing")
	}
	now := g.clock()
	if now.After(claims.ExpiresAt.Time) {
		return errors.New("grant expired")
	}
	// Allow a small clock skew of 5 seconds when validating issued-at.
	if claims.IssuedAt.Time.After(now.Add(5 * time.Second)) {
		return errors.New("grant issued in the future")
	}
	return nil
}
