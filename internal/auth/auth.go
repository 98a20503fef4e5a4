package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

const (
	RoleUser     = "ROLE_USER"
	RoleEducator = "ROLE_EDUCATOR"
	RoleAdmin    = "ROLE_ADMIN"
)

// Claims is the bearer token payload shared by the quiz service and its clients.
type Claims struct {
	Role    string `json:"role"`
	Premium bool   `json:"isPremium"`
	jwt.RegisteredClaims
}

// Principal is the authenticated user as far as entitlements are concerned.
type Principal struct {
	Username string
	Role     string
	Premium  bool
}

// Elevated reports whether the role bypasses the premium requirement.
func (p Principal) Elevated() bool {
	return p.Role == RoleAdmin || p.Role == RoleEducator
}

// CanExplain reports whether the user may request AI explanations.
func (p Principal) CanExplain() bool {
	return p.Premium || p.Elevated()
}

// Inspect decodes the token payload without verifying the signature. Clients
// only use it to decide what to offer; the service verifies every request.
func Inspect(token string) (Principal, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Principal{}, errors.Wrap(err, "inspect token")
	}
	return claims.Principal(), nil
}

func (c *Claims) Principal() Principal {
	role := c.Role
	if role == "" {
		role = RoleUser
	}
	return Principal{Username: c.Subject, Role: role, Premium: c.Premium}
}

// Signer issues and verifies HS256 tokens.
type Signer struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

func NewSigner(secret string, ttl time.Duration) *Signer {
	return &Signer{secret: []byte(secret), ttl: ttl, issuer: "drillbi-devserver", now: time.Now}
}

func (s *Signer) Issue(username, role string, premium bool) (string, error) {
	now := s.now()
	claims := &Claims{
		Role:    role,
		Premium: premium,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Signer) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, errors.Wrap(err, "verify token")
	}
	if !parsed.Valid {
		return nil, errors.New("verify token: invalid")
	}
	return claims, nil
}

type ctxKey struct{}

// Middleware rejects requests without a valid bearer token with 401 and
// stores the claims in the request context.
func (s *Signer) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			http.Error(w, "missing bearer", http.StatusUnauthorized)
			return
		}
		claims, err := s.Verify(strings.TrimPrefix(h, "Bearer "))
		if err != nil {
			http.Error(w, "bad token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, claims)))
	})
}

// ClaimsFrom returns the claims stored by Middleware.
func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(ctxKey{}).(*Claims)
	return c, ok
}
