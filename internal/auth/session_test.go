package auth

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/storage"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeAPI struct {
	mu            sync.Mutex
	tokens        Tokens
	loginErr      error
	profile       User
	profileErr    error
	profileCalls  atomic.Int32
	profileGate   chan struct{}
	updateErr     error
	registered    []RegisterInput
	lastProfileAT string
}

func (f *fakeAPI) Login(_ context.Context, creds Credentials) (Tokens, error) {
	if f.loginErr != nil {
		return Tokens{}, f.loginErr
	}
	return f.tokens, nil
}

func (f *fakeAPI) Register(_ context.Context, input RegisterInput) (User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered = append(f.registered, input)
	return User{ID: "99", Username: input.Username}, nil
}

func (f *fakeAPI) Profile(_ context.Context, accessToken string) (User, error) {
	f.profileCalls.Add(1)
	if f.profileGate != nil {
		<-f.profileGate
	}
	f.mu.Lock()
	f.lastProfileAT = accessToken
	f.mu.Unlock()
	if f.profileErr != nil {
		return User{}, f.profileErr
	}
	return f.profile, nil
}

func (f *fakeAPI) UpdateProfile(_ context.Context, _ string, input ProfileInput) (User, error) {
	if f.updateErr != nil {
		return User{}, f.updateErr
	}
	u := f.profile
	u.FirstName = input.FirstName
	u.LastName = input.LastName
	return u, nil
}

func accessToken(t *testing.T, exp time.Time) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("remote-secret"))
	require.NoError(t, err)
	return signed
}

func newTestSession(t *testing.T, api *fakeAPI, backend storage.Backend) *Session {
	t.Helper()
	s, err := NewSession(SessionParams{
		API:     api,
		Backend: backend,
		Clock:   func() time.Time { return testNow },
	})
	require.NoError(t, err)
	return s
}

func TestNewSessionRequiresDependencies(t *testing.T) {
	_, err := NewSession(SessionParams{Backend: storage.NewMemory(0)})
	require.Error(t, err)
	_, err = NewSession(SessionParams{API: &fakeAPI{}})
	require.Error(t, err)
}

func TestRestoreWithoutTokenStaysAnonymous(t *testing.T) {
	api := &fakeAPI{}
	s := newTestSession(t, api, storage.NewMemory(0))

	s.Restore(context.Background())

	assert.Equal(t, StateAnonymous, s.State())
	assert.Zero(t, api.profileCalls.Load())
}

func TestRestoreLoadsProfile(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory(0)
	token := accessToken(t, testNow.Add(time.Hour))
	require.NoError(t, backend.Set(ctx, storage.KeyAccessToken, token))
	require.NoError(t, backend.Set(ctx, storage.KeyRefreshToken, "refresh"))
	api := &fakeAPI{profile: User{ID: "1", Username: "somchai"}}
	s := newTestSession(t, api, backend)

	var states []State
	s.Subscribe(func(snap Snapshot) { states = append(states, snap.State) })
	s.Restore(ctx)

	assert.True(t, s.IsAuthenticated())
	user, ok := s.User()
	require.True(t, ok)
	assert.Equal(t, "somchai", user.Username)
	assert.Equal(t, Tokens{Access: token, Refresh: "refresh"}, s.Tokens())
	assert.Equal(t, []State{StateAuthenticating, StateAuthenticated}, states)
}

func TestRestoreWithRejectedTokenSignsOutSilently(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory(0)
	require.NoError(t, backend.Set(ctx, storage.KeyAccessToken, "opaque"))
	require.NoError(t, backend.Set(ctx, storage.KeyRefreshToken, "refresh"))
	api := &fakeAPI{profileErr: pkgerrors.New(pkgerrors.CodeUnauthorized, "token not valid")}
	s := newTestSession(t, api, backend)

	s.Restore(ctx)

	assert.Equal(t, StateAnonymous, s.State())
	assert.Empty(t, s.AccessToken())
	_, err := backend.Get(ctx, storage.KeyAccessToken)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = backend.Get(ctx, storage.KeyRefreshToken)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRestoreWithExpiredTokenSkipsProfileFetch(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory(0)
	require.NoError(t, backend.Set(ctx, storage.KeyAccessToken, accessToken(t, testNow.Add(-time.Hour))))
	api := &fakeAPI{profile: User{ID: "1"}}
	s := newTestSession(t, api, backend)

	s.Restore(ctx)

	assert.Equal(t, StateAnonymous, s.State())
	assert.Zero(t, api.profileCalls.Load())
	assert.Zero(t, backend.Len())
}

func TestLoginStoresTokensAndProfile(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory(0)
	api := &fakeAPI{tokens: Tokens{Access: "a1", Refresh: "r1"}, profile: User{ID: "5", Username: "nok"}}
	s := newTestSession(t, api, backend)

	require.NoError(t, s.Login(ctx, " nok ", "secret"))

	assert.True(t, s.IsAuthenticated())
	assert.Equal(t, "a1", s.AccessToken())
	assert.Equal(t, "a1", api.lastProfileAT)
	stored, err := backend.Get(ctx, storage.KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "a1", stored)
	stored, err = backend.Get(ctx, storage.KeyRefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "r1", stored)
}

func TestLoginWithoutRefreshDropsStaleRefreshToken(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory(0)
	api := &fakeAPI{tokens: Tokens{Access: "a1", Refresh: "r1"}, profile: User{ID: "5", Username: "nok"}}
	s := newTestSession(t, api, backend)
	require.NoError(t, s.Login(ctx, "nok", "secret"))

	api.tokens = Tokens{Access: "a2"}
	require.NoError(t, s.Login(ctx, "nok", "secret"))

	assert.Equal(t, "a2", s.AccessToken())
	assert.Empty(t, s.Tokens().Refresh)
	_, err := backend.Get(ctx, storage.KeyRefreshToken)
	require.ErrorIs(t, err, storage.ErrNotFound)
	stored, err := backend.Get(ctx, storage.KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "a2", stored)
}

func TestLoginValidatesInput(t *testing.T) {
	s := newTestSession(t, &fakeAPI{}, storage.NewMemory(0))
	err := s.Login(context.Background(), "  ", "")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Equal(t, StateAnonymous, s.State())
}

func TestLoginFailureKeepsPreviousState(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{tokens: Tokens{Access: "a1", Refresh: "r1"}, profile: User{ID: "5"}}
	s := newTestSession(t, api, storage.NewMemory(0))
	require.NoError(t, s.Login(ctx, "nok", "secret"))

	api.loginErr = pkgerrors.New(pkgerrors.CodeUnauthorized, "no active account")
	err := s.Login(ctx, "nok", "wrong")

	require.Error(t, err)
	assert.True(t, s.IsAuthenticated())
	assert.Equal(t, "a1", s.AccessToken())
}

func TestLoginProfileFailureClearsTokens(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory(0)
	api := &fakeAPI{
		tokens:     Tokens{Access: "a1", Refresh: "r1"},
		profileErr: pkgerrors.New(pkgerrors.CodeDependency, "profile unavailable"),
	}
	s := newTestSession(t, api, backend)

	err := s.Login(ctx, "nok", "secret")

	require.Error(t, err)
	assert.Equal(t, StateAnonymous, s.State())
	assert.Zero(t, backend.Len())
}

func TestLogoutClearsEverything(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory(0)
	api := &fakeAPI{tokens: Tokens{Access: "a1", Refresh: "r1"}, profile: User{ID: "5"}}
	s := newTestSession(t, api, backend)
	require.NoError(t, s.Login(ctx, "nok", "secret"))

	s.Logout(ctx)

	assert.Equal(t, StateAnonymous, s.State())
	_, ok := s.User()
	assert.False(t, ok)
	assert.Zero(t, backend.Len())
}

func TestRegisterValidatesAndDoesNotSignIn(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{}
	s := newTestSession(t, api, storage.NewMemory(0))

	_, err := s.Register(ctx, RegisterInput{Username: "x", Email: "x@y.co", Password: "password1", Password2: "password2"})
	require.Error(t, err)
	assert.Empty(t, api.registered)

	user, err := s.Register(ctx, RegisterInput{Username: "x", Email: "x@y.co", Password: "password1", Password2: "password1"})
	require.NoError(t, err)
	assert.Equal(t, "x", user.Username)
	assert.Equal(t, StateAnonymous, s.State())
}

func TestUpdateProfileRequiresSession(t *testing.T) {
	s := newTestSession(t, &fakeAPI{}, storage.NewMemory(0))
	_, err := s.UpdateProfile(context.Background(), ProfileInput{FirstName: "A"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestUpdateProfileReplacesUser(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{tokens: Tokens{Access: "a1"}, profile: User{ID: "5", Username: "nok"}}
	s := newTestSession(t, api, storage.NewMemory(0))
	require.NoError(t, s.Login(ctx, "nok", "secret"))

	updated, err := s.UpdateProfile(ctx, ProfileInput{FirstName: "Nok", LastName: "Dee"})
	require.NoError(t, err)
	assert.Equal(t, "Nok Dee", updated.DisplayName())
	user, _ := s.User()
	assert.Equal(t, "Nok", user.FirstName)
}

func TestUpdateProfileUnauthorizedSignsOut(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{tokens: Tokens{Access: "a1"}, profile: User{ID: "5"}}
	s := newTestSession(t, api, storage.NewMemory(0))
	require.NoError(t, s.Login(ctx, "nok", "secret"))

	api.updateErr = pkgerrors.New(pkgerrors.CodeUnauthorized, "token expired")
	_, err := s.UpdateProfile(ctx, ProfileInput{FirstName: "A"})

	require.Error(t, err)
	assert.Equal(t, StateAnonymous, s.State())
}

func TestRefreshProfileCoalescesConcurrentCalls(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{tokens: Tokens{Access: "a1"}, profile: User{ID: "5"}}
	s := newTestSession(t, api, storage.NewMemory(0))
	require.NoError(t, s.Login(ctx, "nok", "secret"))
	api.profileCalls.Store(0)

	api.profileGate = make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.RefreshProfile(ctx)
			assert.NoError(t, err)
		}()
	}
	require.Eventually(t, func() bool { return api.profileCalls.Load() >= 1 }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(api.profileGate)
	wg.Wait()

	assert.Equal(t, int32(1), api.profileCalls.Load())
}
