package http

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"tracker/internal/core/domain/model/agent"
	"tracker/internal/core/domain/model/kernel"
	"tracker/internal/pkg/errs"
)

// ErrUnauthorized is returned when a request carries no usable token.
var ErrUnauthorized = errors.New("unauthorized")

// Claims is the token payload: the agent id and its role name.
type Claims struct {
	ID   string `json:"id"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Principal is the authenticated caller.
type Principal struct {
	AgentID kernel.AgentID
	Role    agent.Role
}

// Authenticator verifies HS256 bearer tokens. A disabled authenticator
// treats every caller as an anonymous admin.
type Authenticator struct {
	secret   []byte
	disabled bool
}

// NewAuthenticator creates an authenticator for secret.
func NewAuthenticator(secret string, disabled bool) *Authenticator {
	return &Authenticator{secret: []byte(secret), disabled: disabled}
}

// Authenticate reads the Authorization header. Both "Bearer <token>" and a
// bare token are accepted.
func (a *Authenticator) Authenticate(r *http.Request) (Principal, error) {
	if a.disabled {
		return Principal{Role: agent.RoleAdmin}, nil
	}

	raw := strings.TrimSpace(r.Header.Get(echo.HeaderAuthorization))
	if scheme, token, ok := strings.Cut(raw, " "); ok && strings.EqualFold(scheme, "Bearer") {
		raw = strings.TrimSpace(token)
	}
	if raw == "" {
		return Principal{}, fmt.Errorf("%w: no token", ErrUnauthorized)
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	id, err := kernel.NewAgentID(claims.ID)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	role, err := agent.ParseRole(claims.Role)
	if err != nil {
		return Principal{}, errs.NewForbiddenErrorWithCause(id.String(), "unknown role", err)
	}

	return Principal{AgentID: id, Role: role}, nil
}

// Authorize authenticates the request and requires one of the allowed roles.
func (a *Authenticator) Authorize(r *http.Request, allowed ...agent.Role) (Principal, error) {
	principal, err := a.Authenticate(r)
	if err != nil {
		return Principal{}, err
	}
	if !slices.Contains(allowed, principal.Role) {
		return Principal{}, errs.NewForbiddenError(principal.AgentID.String(), "access denied for role "+principal.Role.String())
	}
	return principal, nil
}

// IssueToken signs a token for principal valid for ttl.
func (a *Authenticator) IssueToken(principal Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		ID:   principal.AgentID.String(),
		Role: principal.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}
