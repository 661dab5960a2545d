package session

import (
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopstream/storefront/internal/errors"
	"github.com/shopstream/storefront/internal/models"
)

// Claims mirrors the token the gateway issues at sign-in.
type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Name   string    `json:"name"`
	jwt.RegisteredClaims
}

// Session holds the authenticated user for one client instance. The token is
// issued and verified by the gateway; the client only decodes it to learn who
// it is acting for and when the session lapses.
type Session struct {
	mu             sync.RWMutex
	token          string
	claims         *Claims
	profileAddress *models.ShippingAddress
}

func New() *Session {
	return &Session{}
}

// SetToken installs a bearer token and decodes its claims. The signature is
// the gateway's to verify; the client checks only structure and expiry.
func (s *Session) SetToken(token string) error {

	token = strings.TrimPrefix(token, "Bearer ")

	claims := &Claims{}

	parser := jwt.NewParser()

	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return errors.UnauthenticatedError("Invalid session token").WithError(err)
	}

	if claims.UserID == uuid.Nil {
		return errors.UnauthenticatedError("Session token carries no user identity")
	}

	if claims.ExpiresAt != nil && claims.ExpiresAt.Time.Before(time.Now()) {
		return errors.UnauthenticatedError("Session token expired")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
	s.claims = claims

	return nil
}

// Clear drops the session, e.g. after the gateway reports Unauthenticated.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	s.claims = nil
	s.profileAddress = nil
}

func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.claims == nil {
		return false
	}

	if s.claims.ExpiresAt != nil && s.claims.ExpiresAt.Time.Before(time.Now()) {
		return false
	}

	return true
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.token
}

func (s *Session) UserID() uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.claims == nil {
		return uuid.Nil
	}

	return s.claims.UserID
}

func (s *Session) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.claims == nil {
		return ""
	}

	return s.claims.Name
}

// SetProfileAddress stores the saved address from the user's profile. The
// account layer populates it; the checkout address step offers it as a
// one-shot pre-fill.
func (s *Session) SetProfileAddress(addr *models.ShippingAddress) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profileAddress = addr
}

// ProfileAddress returns a copy, so checkout edits never write back into the
// profile.
func (s *Session) ProfileAddress() *models.ShippingAddress {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.profileAddress == nil {
		return nil
	}

	addr := *s.profileAddress

	return &addr
}
