// Package session carries the caller's identity and bearer tokens explicitly
// instead of reading them from ambient storage.
package session

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type Audience int

const (
	AudienceUser Audience = iota
	AudienceAdmin
)

const AdminTokenHeader = "X-Admin-Token"

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Session is immutable once built; build a new one when tokens change.
type Session struct {
	userToken  string
	adminToken string
	user       *User
}

// FromTokens decodes the user token's claims without verifying the signature.
// The backend verifies every request; here the claims only label the session.
func FromTokens(userToken, adminToken string) (*Session, error) {
	s := &Session{userToken: userToken, adminToken: adminToken}
	if userToken == "" {
		return s, nil
	}
	u, err := decodeUser(userToken)
	if err != nil {
		return s, err
	}
	s.user = &u
	return s, nil
}

// Anonymous is a session with no tokens at all.
func Anonymous() *Session { return &Session{} }

// WithUser builds a session from an already known user, mostly for tests and
// for the admin console where the backend returns the user object directly.
func WithUser(u User, userToken, adminToken string) *Session {
	return &Session{userToken: userToken, adminToken: adminToken, user: &u}
}

func (s *Session) CurrentUser() (User, bool) {
	if s == nil || s.user == nil || s.user.ID == "" {
		return User{}, false
	}
	return *s.user, true
}

func (s *Session) Token(a Audience) string {
	if s == nil {
		return ""
	}
	if a == AudienceAdmin {
		return s.adminToken
	}
	return s.userToken
}

// Authenticated reports whether a user token and a user id are both present.
func (s *Session) Authenticated() bool {
	_, ok := s.CurrentUser()
	return ok && s.userToken != ""
}

func (s *Session) IsAdmin() bool { return s != nil && s.adminToken != "" }

// FromRequest reads the user token from Authorization and the admin token
// from X-Admin-Token. A malformed user token yields an anonymous user part.
func FromRequest(r *http.Request) *Session {
	user := bearer(r.Header.Get("Authorization"))
	admin := bearer(r.Header.Get(AdminTokenHeader))
	s, err := FromTokens(user, admin)
	if err != nil {
		return &Session{adminToken: admin}
	}
	return s
}

func bearer(h string) string {
	h = strings.TrimSpace(h)
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return h
}

func decodeUser(token string) (User, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return User{}, fmt.Errorf("decode token: %w", err)
	}
	u := User{
		ID:    firstString(claims, "id", "_id", "userId", "sub"),
		Email: firstString(claims, "email"),
		Name:  firstString(claims, "name", "fullName"),
	}
	if u.ID == "" {
		return User{}, fmt.Errorf("decode token: no user id claim")
	}
	return u, nil
}

func firstString(c jwt.MapClaims, keys ...string) string {
	for _, k := range keys {
		if v, ok := c[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

type ctxKey struct{}

func With(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// From never returns nil.
func From(ctx context.Context) *Session {
	if s, ok := ctx.Value(ctxKey{}).(*Session); ok && s != nil {
		return s
	}
	return Anonymous()
}
