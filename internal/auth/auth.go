// Package auth turns bearer tokens into the identity every store call is
// scoped by.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	applog "budgetplanner/internal/log"
)

type ctxKey string

const identityKey ctxKey = "identity"

var (
	ErrMissingToken = errors.New("missing auth token")
	ErrInvalidToken = errors.New("invalid auth token")
	ErrNoIdentity   = errors.New("user not authenticated")
)

// Identity is the authenticated user. UserID comes from the token subject.
type Identity struct {
	UserID string
	Email  string
}

// Claims is the token payload: the registered claims plus the email the
// profile mirrors.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 tokens. With an empty secret and a dev identity
// configured, every request is treated as the dev user.
type Verifier struct {
	secret []byte
	issuer string
	dev    *Identity
	logger *applog.Logger
}

type Option func(*Verifier)

func WithIssuer(issuer string) Option {
	return func(v *Verifier) { v.issuer = issuer }
}

// WithDevUser sets the identity used when a request carries no token. It is
// ignored once a secret is configured.
func WithDevUser(userID, email string) Option {
	return func(v *Verifier) {
		if userID != "" {
			v.dev = &Identity{UserID: userID, Email: email}
		}
	}
}

func WithLogger(logger *applog.Logger) Option {
	return func(v *Verifier) { v.logger = logger.WithComponent(applog.ComponentAuth) }
}

func NewVerifier(secret string, opts ...Option) *Verifier {
	v := &Verifier{secret: []byte(secret), logger: applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentAuth)}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify parses a raw token and returns the identity it carries.
func (v *Verifier) Verify(raw string) (Identity, error) {
	if len(v.secret) == 0 {
		return Identity{}, fmt.Errorf("%w: token verification disabled", ErrInvalidToken)
	}
	parserOpts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(v.issuer))
	}
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, parserOpts...)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return Identity{}, fmt.Errorf("%w: subject missing", ErrInvalidToken)
	}
	return Identity{UserID: claims.Subject, Email: claims.Email}, nil
}

// Issue signs a token for userID. Used by the seed tool and tests.
func (v *Verifier) Issue(userID, email string, ttl time.Duration) (string, error) {
	return v.issueAt(userID, email, time.Now(), ttl)
}

func (v *Verifier) issueAt(userID, email string, now time.Time, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Authenticate resolves the identity for r.
func (v *Verifier) Authenticate(r *http.Request) (Identity, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		if v.dev != nil && len(v.secret) == 0 {
			return *v.dev, nil
		}
		return Identity{}, ErrMissingToken
	}
	raw, ok := strings.CutPrefix(h, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return Identity{}, ErrMissingToken
	}
	return v.Verify(strings.TrimSpace(raw))
}

// Middleware rejects unauthenticated requests with 401 and stores the
// identity in the request context otherwise.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := v.Authenticate(r)
		if err != nil {
			v.logger.WarnContext(r.Context(), "Rejected request",
				applog.FieldError, err.Error(),
				"path", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("WWW-Authenticate", `Bearer realm="budget"`)
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), id)))
	})
}

func NewContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func IdentityFrom(ctx context.Context) (Identity, error) {
	id, ok := ctx.Value(identityKey).(Identity)
	if !ok || id.UserID == "" {
		return Identity{}, ErrNoIdentity
	}
	return id, nil
}
