// Package auth tracks the signed-in user and the bearer token pair, persisted to
// durable storage.
package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/storefront/internal/observer"
	tokens "github.com/angelmondragon/storefront/pkg/auth"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/storage"
	"github.com/angelmondragon/storefront/pkg/validation"
	"golang.org/x/sync/singleflight"
)

// State is a position in the session lifecycle.
type State string

const (
	StateAnonymous      State = "anonymous"
	StateAuthenticating State = "authenticating"
	StateAuthenticated  State = "authenticated"
)

const defaultExpiryLeeway = 30 * time.Second

// API is the slice of the remote API the session calls.
type API interface {
	Login(ctx context.Context, creds Credentials) (Tokens, error)
	Register(ctx context.Context, input RegisterInput) (User, error)
	Profile(ctx context.Context, accessToken string) (User, error)
	UpdateProfile(ctx context.Context, accessToken string, input ProfileInput) (User, error)
}

// SessionParams groups dependencies for the session.
type SessionParams struct {
	API     API
	Backend storage.Backend
	Logger  *logger.Logger
	Clock   func() time.Time
	// ExpiryLeeway tolerates clock skew when reading the access token's exp claim.
	ExpiryLeeway time.Duration
}

// Snapshot is what subscribers receive after every state change.
type Snapshot struct {
	State State
	User  *User
}

type Session struct {
	api     API
	backend storage.Backend
	logg    *logger.Logger
	now     func() time.Time
	leeway  time.Duration
	group   singleflight.Group

	mu      sync.RWMutex
	state   State
	user    *User
	access  string
	refresh string
	subs    observer.Registry[Snapshot]
}

func NewSession(params SessionParams) (*Session, error) {
	if params.API == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "auth api is required")
	}
	if params.Backend == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "storage backend is required")
	}
	s := &Session{
		api:     params.API,
		backend: params.Backend,
		logg:    params.Logger,
		now:     params.Clock,
		leeway:  params.ExpiryLeeway,
		state:   StateAnonymous,
	}
	if s.logg == nil {
		s.logg = logger.Nop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.leeway <= 0 {
		s.leeway = defaultExpiryLeeway
	}
	return s, nil
}

// Restore resumes a session from stored tokens. Missing, expired or rejected tokens
// leave the session anonymous without reporting an error.
func (s *Session) Restore(ctx context.Context) {
	ctx = s.logg.WithField(ctx, "store", "auth")
	access := s.readToken(ctx, storage.KeyAccessToken)
	if access == "" {
		s.setAnonymous()
		return
	}
	if tokens.Expired(access, s.now(), s.leeway) {
		s.logg.Info(ctx, "stored access token expired, signing out")
		s.clearTokens(ctx)
		s.setAnonymous()
		return
	}
	refresh := s.readToken(ctx, storage.KeyRefreshToken)

	s.transition(func() {
		s.state = StateAuthenticating
		s.access = access
		s.refresh = refresh
	})

	user, err := s.fetchProfile(ctx, access)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "stored session rejected, signing out")
		s.clearTokens(ctx)
		s.setAnonymous()
		return
	}
	s.setAuthenticated(user)
}

// Login exchanges credentials for a token pair, stores it, and loads the profile.
// A failed login leaves the previous session untouched.
func (s *Session) Login(ctx context.Context, username, password string) error {
	creds := Credentials{Username: strings.TrimSpace(username), Password: password}
	if err := validation.Struct(creds); err != nil {
		return err
	}

	var previous Snapshot
	s.transition(func() {
		previous = s.snapshotLocked()
		s.state = StateAuthenticating
	})

	pair, err := s.api.Login(ctx, creds)
	if err != nil {
		s.transition(func() {
			s.state = previous.State
		})
		return err
	}

	s.writeToken(ctx, storage.KeyAccessToken, pair.Access)
	s.writeToken(ctx, storage.KeyRefreshToken, pair.Refresh)
	s.mu.Lock()
	s.access = pair.Access
	s.refresh = pair.Refresh
	s.mu.Unlock()

	user, err := s.fetchProfile(ctx, pair.Access)
	if err != nil {
		s.clearTokens(ctx)
		s.setAnonymous()
		return err
	}
	s.setAuthenticated(user)
	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "signed in")
	return nil
}

// Register creates an account. It does not sign the new user in.
func (s *Session) Register(ctx context.Context, input RegisterInput) (User, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	if err := validation.Struct(input); err != nil {
		return User{}, err
	}
	return s.api.Register(ctx, input)
}

// Logout drops the tokens and the profile.
func (s *Session) Logout(ctx context.Context) {
	s.clearTokens(ctx)
	s.setAnonymous()
}

// UpdateProfile replaces the editable profile fields of the signed-in user. An
// unauthorized response ends the session.
func (s *Session) UpdateProfile(ctx context.Context, input ProfileInput) (User, error) {
	access, ok := s.authenticatedToken()
	if !ok {
		return User{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to update the profile")
	}
	if err := validation.Struct(input); err != nil {
		return User{}, err
	}
	user, err := s.api.UpdateProfile(ctx, access, input)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
			s.Logout(ctx)
		}
		return User{}, err
	}
	s.setAuthenticated(user)
	return user, nil
}

// RefreshProfile reloads the profile of the signed-in user. Concurrent calls share one
// request.
func (s *Session) RefreshProfile(ctx context.Context) (User, error) {
	access, ok := s.authenticatedToken()
	if !ok {
		return User{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "not signed in")
	}
	user, err := s.fetchProfile(ctx, access)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
			s.Logout(ctx)
		}
		return User{}, err
	}
	s.setAuthenticated(user)
	return user, nil
}

func (s *Session) User() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return User{}, false
	}
	return *s.user, true
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) IsAuthenticated() bool {
	return s.State() == StateAuthenticated
}

// AccessToken returns the current bearer token, or "" when anonymous.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access
}

// Tokens returns the current credential pair.
func (s *Session) Tokens() Tokens {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Tokens{Access: s.access, Refresh: s.refresh}
}

func (s *Session) Subscribe(fn func(Snapshot)) func() {
	return s.subs.Subscribe(fn)
}

func (s *Session) fetchProfile(ctx context.Context, access string) (User, error) {
	v, err, _ := s.group.Do("profile:"+access, func() (any, error) {
		return s.api.Profile(ctx, access)
	})
	if err != nil {
		return User{}, err
	}
	return v.(User), nil
}

func (s *Session) authenticatedToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateAuthenticated || s.access == "" {
		return "", false
	}
	return s.access, true
}

func (s *Session) setAuthenticated(user User) {
	s.transition(func() {
		s.state = StateAuthenticated
		s.user = &user
	})
}

func (s *Session) setAnonymous() {
	s.transition(func() {
		s.state = StateAnonymous
		s.user = nil
		s.access = ""
		s.refresh = ""
	})
}

// transition applies fn under the lock and notifies subscribers when the state or
// user changed.
func (s *Session) transition(fn func()) {
	s.mu.Lock()
	before := s.snapshotLocked()
	fn()
	after := s.snapshotLocked()
	s.mu.Unlock()

	if before.State != after.State || !sameUser(before.User, after.User) {
		s.subs.Notify(after)
	}
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{State: s.state}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	return snap
}

func sameUser(a, b *User) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (s *Session) readToken(ctx context.Context, key string) string {
	value, err := s.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logg.Error(s.logg.WithField(ctx, "storage_key", key), "failed to read token", err)
		}
		return ""
	}
	return strings.TrimSpace(value)
}

// writeToken stores value under key; an empty value removes the key so a token from
// an earlier session cannot outlive it.
func (s *Session) writeToken(ctx context.Context, key, value string) {
	if value == "" {
		if err := s.backend.Remove(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
			s.logg.Error(s.logg.WithField(ctx, "storage_key", key), "failed to remove token", err)
		}
		return
	}
	if err := s.backend.Set(ctx, key, value); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "storage_key", key), "failed to persist token", err)
	}
}

func (s *Session) clearTokens(ctx context.Context) {
	for _, key := range []string{storage.KeyAccessToken, storage.KeyRefreshToken} {
		if err := s.backend.Remove(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
			s.logg.Error(s.logg.WithField(ctx, "storage_key", key), "failed to remove token", err)
		}
	}
}
