package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	uuid "github.com/google/uuid"
)

const loginTokenPurpose = "phone_login"

// ErrLoginTokenInvalid indicates the token failed signature or claim checks.
var ErrLoginTokenInvalid = errors.New("login token invalid")

// LoginTokenClaims are carried by the one-time token returned from phone
// account creation. The token authenticates the owner's first session on the
// tenant's subdomain.
type LoginTokenClaims struct {
	TenantID  string `json:"tenant_id"`
	Subdomain string `json:"subdomain"`
	Purpose   string `json:"purpose"`
	jwt.RegisteredClaims
}

// LoginTokenManager mints and verifies short-lived HMAC-signed login tokens.
type LoginTokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewLoginTokenManager constructs a manager for the provided signing secret.
func NewLoginTokenManager(secret, issuer string, ttl time.Duration) (*LoginTokenManager, error) {
	secret = strings.TrimSpace(secret)
	if len(secret) < 32 {
		return nil, fmt.Errorf("login token secret must be at least 32 bytes")
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &LoginTokenManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// WithClock overrides the internal clock, used in tests.
func (m *LoginTokenManager) WithClock(clock func() time.Time) *LoginTokenManager {
	if clock != nil {
		m.now = clock
	}
	return m
}

// Mint issues a one-time login token for the given user and tenant.
func (m *LoginTokenManager) Mint(userID, tenantID, subdomain string) (string, error) {
	if userID == "" || tenantID == "" {
		return "", fmt.Errorf("user id and tenant id are required")
	}

	now := m.now().UTC()
	claims := LoginTokenClaims{
		TenantID:  tenantID,
		Subdomain: subdomain,
		Purpose:   loginTokenPurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign login token: %w", err)
	}

	return signed, nil
}

// Verify parses the token, checks the signature and purpose claim, and
// returns the embedded claims.
func (m *LoginTokenManager) Verify(raw string) (*LoginTokenClaims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrLoginTokenInvalid
	}

	claims := &LoginTokenClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithIssuer(m.issuer))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoginTokenInvalid, err)
	}

	if !token.Valid || claims.Purpose != loginTokenPurpose || claims.Subject == "" {
		return nil, ErrLoginTokenInvalid
	}

	return claims, nil
}
