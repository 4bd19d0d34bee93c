package service_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Miraines/AquaTrack/auth-service/internal/adapters/transport/http/dto"
	"github.com/Miraines/AquaTrack/auth-service/internal/app/auth/jwt"
	"github.com/Miraines/AquaTrack/auth-service/internal/app/auth/password"
	appsvc "github.com/Miraines/AquaTrack/auth-service/internal/app/auth/service"
	authErrors "github.com/Miraines/AquaTrack/auth-service/internal/domain/auth/errors"
	"github.com/Miraines/AquaTrack/auth-service/internal/domain/auth/model"
	"github.com/Miraines/AquaTrack/auth-service/internal/infra/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

/* ──────────────────────────────── stubs ──────────────────────────────── */

type userRepoStub struct {
	mu    sync.Mutex
	users map[uuid.UUID]model.User
	// lookupErr, when set, is returned by every lookup
	lookupErr error
	// hideOnce makes the next GetUserByEmail miss, simulating a concurrent
	// first login that inserts between lookup and create
	hideOnce bool
}

func newUserRepoStub() *userRepoStub {
	return &userRepoStub{users: make(map[uuid.UUID]model.User)}
}

func (u *userRepoStub) CreateUser(_ context.Context, m model.User) (model.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, v := range u.users {
		if v.Email == m.Email {
			return model.User{}, authErrors.ErrUserExists
		}
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	u.users[m.ID] = m
	return m, nil
}

func (u *userRepoStub) GetUserByEmail(_ context.Context, email string) (model.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.lookupErr != nil {
		return model.User{}, u.lookupErr
	}
	if u.hideOnce {
		u.hideOnce = false
		return model.User{}, authErrors.NewNotFound("user not found")
	}
	for _, v := range u.users {
		if v.Email == email {
			return v, nil
		}
	}
	return model.User{}, authErrors.NewNotFound("user not found")
}

func (u *userRepoStub) GetUserByID(_ context.Context, id uuid.UUID) (model.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	v, ok := u.users[id]
	if !ok {
		return model.User{}, authErrors.NewNotFound("user not found")
	}
	return v, nil
}

func (u *userRepoStub) UpdateUser(_ context.Context, m model.User) (model.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.users[m.ID] = m
	return m, nil
}

func (u *userRepoStub) count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.users)
}

type sessionRepoStub struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]model.Session
}

func newSessionRepoStub() *sessionRepoStub {
	return &sessionRepoStub{sessions: make(map[uuid.UUID]model.Session)}
}

func (s *sessionRepoStub) CreateSession(_ context.Context, m model.Session) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[m.ID] = m
	return m, nil
}

func (s *sessionRepoStub) GetSession(_ context.Context, id uuid.UUID) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.sessions[id]
	if !ok {
		return model.Session{}, authErrors.ErrSessionNotFound
	}
	return v, nil
}

func (s *sessionRepoStub) DeleteSession(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return authErrors.ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

func (s *sessionRepoStub) RotateSession(_ context.Context, oldID uuid.UUID, token string, next model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.sessions[oldID]
	if !ok || cur.RefreshToken != token {
		return authErrors.ErrStaleSession
	}
	delete(s.sessions, oldID)
	s.sessions[next.ID] = next
	return nil
}

func (s *sessionRepoStub) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func (s *sessionRepoStub) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

type verifierStub struct {
	identities map[string]model.FederatedIdentity
	err        error
}

func (v *verifierStub) AuthCodeURL(state string) string {
	return "https://accounts.google.com/o/oauth2/auth?state=" + state
}

func (v *verifierStub) Verify(_ context.Context, code string) (model.FederatedIdentity, error) {
	if v.err != nil {
		return model.FederatedIdentity{}, v.err
	}
	id, ok := v.identities[code]
	if !ok {
		return model.FederatedIdentity{}, authErrors.ErrInvalidGrant
	}
	return id, nil
}

/* ───────────────────────────── helpers ───────────────────────────── */

type env struct {
	svc      appsvc.Service
	users    *userRepoStub
	sessions *sessionRepoStub
	google   *verifierStub
	now      *time.Time
}

func newEnv(t *testing.T) *env {
	t.Helper()
	cfg := &config.Config{
		JWTSecret:        "test-secret",
		AccessTokenTTL:   time.Hour,
		RefreshTokenTTL:  7 * 24 * time.Hour,
		PasswordHashAlgo: config.HashBcrypt,
		BcryptCost:       bcrypt.MinCost,
	}
	codec, err := jwt.NewJWTUtil(cfg)
	require.NoError(t, err)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	e := &env{
		users:    newUserRepoStub(),
		sessions: newSessionRepoStub(),
		google:   &verifierStub{identities: map[string]model.FederatedIdentity{}},
		now:      &now,
	}
	e.svc = appsvc.New(e.users, e.sessions, codec, password.New(cfg), e.google, cfg,
		dto.NewValidator(), zap.NewNop(),
		appsvc.WithClock(func() time.Time { return *e.now }),
	)
	return e
}

func (e *env) register(t *testing.T, email string) model.AuthResult {
	t.Helper()
	res, err := e.svc.Register(context.Background(), dto.RegisterDTO{Email: email, Password: "Str0ngP@ss"})
	require.NoError(t, err)
	return res
}

/* ───────────────────────────── tests ───────────────────────────── */

func TestAuthService_RegisterLogin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	res := e.register(t, "a@x.com")
	require.NotEmpty(t, res.AccessToken)
	require.NotEmpty(t, res.RefreshToken)
	require.NotEqual(t, uuid.Nil, res.SessionID)
	require.Equal(t, "a@x.com", res.User.Email)
	require.Equal(t, model.DefaultName, res.User.Name)
	require.Equal(t, model.DefaultAvatarURL, res.User.AvatarURL)
	require.Equal(t, model.GenderOther, res.User.Gender)
	require.Equal(t, model.DefaultDailyNorm, res.User.DailyNorm)

	sess, err := e.sessions.GetSession(ctx, res.SessionID)
	require.NoError(t, err)
	require.Equal(t, res.RefreshToken, sess.RefreshToken)
	require.Equal(t, e.now.Add(7*24*time.Hour), sess.ExpiresAt)

	stored, err := e.users.GetUserByID(ctx, res.User.ID)
	require.NoError(t, err)
	require.NotEqual(t, "Str0ngP@ss", stored.PasswordHash)

	login, err := e.svc.Login(ctx, dto.LoginDTO{Email: "a@x.com", Password: "Str0ngP@ss"})
	require.NoError(t, err)
	require.Equal(t, res.User.ID, login.User.ID)
	require.NotEqual(t, res.SessionID, login.SessionID)
}

func TestAuthService_RegisterProfileFields(t *testing.T) {
	e := newEnv(t)
	weight, norm := 70.0, 2.1

	res, err := e.svc.Register(context.Background(), dto.RegisterDTO{
		Email: "p@x.com", Password: "Str0ngP@ss",
		Name: "Ira", Gender: "female", Weight: &weight, DailyNorm: &norm,
	})
	require.NoError(t, err)
	require.Equal(t, "Ira", res.User.Name)
	require.Equal(t, model.GenderFemale, res.User.Gender)
	require.Equal(t, 70.0, res.User.Weight)
	require.Equal(t, 2.1, res.User.DailyNorm)
}

func TestAuthService_RegisterDuplicate(t *testing.T) {
	e := newEnv(t)
	e.register(t, "dup@x.com")

	_, err := e.svc.Register(context.Background(), dto.RegisterDTO{Email: "dup@x.com", Password: "Str0ngP@ss"})
	require.True(t, authErrors.IsAlreadyExists(err))
	require.Equal(t, "User already exists", err.Error())
	require.Equal(t, 1, e.users.count())
}

func TestAuthService_RegisterInvalid(t *testing.T) {
	e := newEnv(t)

	_, err := e.svc.Register(context.Background(), dto.RegisterDTO{Email: "x@x.com", Password: "weak"})
	require.True(t, authErrors.IsInvalidArgument(err))
	require.Equal(t, 0, e.users.count())
}

func TestAuthService_LoginFailuresAreIndistinguishable(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.register(t, "u@x.com")

	_, wrongPwd := e.svc.Login(ctx, dto.LoginDTO{Email: "u@x.com", Password: "Wr0ngP@ss"})
	_, unknown := e.svc.Login(ctx, dto.LoginDTO{Email: "ghost@x.com", Password: "Str0ngP@ss"})

	require.ErrorIs(t, wrongPwd, authErrors.ErrInvalidCredentials)
	require.ErrorIs(t, unknown, authErrors.ErrInvalidCredentials)
	require.Equal(t, wrongPwd.Error(), unknown.Error())
	require.Equal(t, "Invalid email or password", unknown.Error())
	require.True(t, authErrors.IsUnauthorized(unknown))
}

func TestAuthService_LoginStoreFailureIsInternal(t *testing.T) {
	e := newEnv(t)
	e.users.lookupErr = authErrors.WrapInternal(errors.New("connection refused"), "GetUserByEmail")

	_, err := e.svc.Login(context.Background(), dto.LoginDTO{Email: "u@x.com", Password: "Str0ngP@ss"})
	require.True(t, authErrors.IsInternal(err))
	require.False(t, authErrors.IsUnauthorized(err))
}

func TestAuthService_RefreshRotation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	res := e.register(t, "r@x.com")

	in := dto.RefreshDTO{SessionID: res.SessionID.String(), RefreshToken: res.RefreshToken}
	pair, err := e.svc.Refresh(ctx, in)
	require.NoError(t, err)
	require.NotEqual(t, res.SessionID, pair.SessionID)
	require.Equal(t, res.User.ID, pair.UserId)
	require.Equal(t, 1, e.sessions.count())

	// the consumed pair is dead
	_, err = e.svc.Refresh(ctx, in)
	require.ErrorIs(t, err, authErrors.ErrInvalidRefreshToken)

	// the new one works
	_, err = e.svc.Refresh(ctx, dto.RefreshDTO{SessionID: pair.SessionID.String(), RefreshToken: pair.RefreshToken})
	require.NoError(t, err)
}

func TestAuthService_RefreshRejects(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	res := e.register(t, "r@x.com")

	_, err := e.svc.Refresh(ctx, dto.RefreshDTO{SessionID: res.SessionID.String(), RefreshToken: "forged"})
	require.ErrorIs(t, err, authErrors.ErrInvalidRefreshToken)

	_, err = e.svc.Refresh(ctx, dto.RefreshDTO{SessionID: uuid.NewString(), RefreshToken: res.RefreshToken})
	require.ErrorIs(t, err, authErrors.ErrInvalidRefreshToken)

	_, err = e.svc.Refresh(ctx, dto.RefreshDTO{SessionID: "not-a-uuid", RefreshToken: res.RefreshToken})
	require.ErrorIs(t, err, authErrors.ErrInvalidRefreshToken)

	_, err = e.svc.Refresh(ctx, dto.RefreshDTO{})
	require.True(t, authErrors.IsInvalidArgument(err))

	// the genuine pair survives failed attempts
	_, err = e.svc.Refresh(ctx, dto.RefreshDTO{SessionID: res.SessionID.String(), RefreshToken: res.RefreshToken})
	require.NoError(t, err)
}

func TestAuthService_RefreshExpiredSession(t *testing.T) {
	e := newEnv(t)
	res := e.register(t, "old@x.com")

	*e.now = e.now.Add(7*24*time.Hour + time.Second)

	_, err := e.svc.Refresh(context.Background(), dto.RefreshDTO{
		SessionID: res.SessionID.String(), RefreshToken: res.RefreshToken,
	})
	require.ErrorIs(t, err, authErrors.ErrSessionExpired)
	require.Equal(t, "Session expired", err.Error())
}

func TestAuthService_ConcurrentRefreshSingleWinner(t *testing.T) {
	e := newEnv(t)
	res := e.register(t, "race@x.com")
	in := dto.RefreshDTO{SessionID: res.SessionID.String(), RefreshToken: res.RefreshToken}

	var wins, rejected atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.svc.Refresh(context.Background(), in)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, authErrors.ErrInvalidRefreshToken):
				rejected.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), wins.Load())
	require.Equal(t, int32(15), rejected.Load())
	require.Equal(t, 1, e.sessions.count())
}

// Logging in again does not end earlier sessions.
func TestAuthService_MultipleSessionsPerUser(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	first := e.register(t, "multi@x.com")

	second, err := e.svc.Login(ctx, dto.LoginDTO{Email: "multi@x.com", Password: "Str0ngP@ss"})
	require.NoError(t, err)

	_, err = e.svc.Refresh(ctx, dto.RefreshDTO{SessionID: first.SessionID.String(), RefreshToken: first.RefreshToken})
	require.NoError(t, err)
	_, err = e.svc.Refresh(ctx, dto.RefreshDTO{SessionID: second.SessionID.String(), RefreshToken: second.RefreshToken})
	require.NoError(t, err)
}

func TestAuthService_Logout(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	res := e.register(t, "out@x.com")

	require.NoError(t, e.svc.Logout(ctx, dto.LogoutDTO{SessionID: res.SessionID.String()}))
	require.Equal(t, 0, e.sessions.count())

	err := e.svc.Logout(ctx, dto.LogoutDTO{SessionID: res.SessionID.String()})
	require.True(t, authErrors.IsNotFound(err))

	err = e.svc.Logout(ctx, dto.LogoutDTO{SessionID: "garbage"})
	require.True(t, authErrors.IsNotFound(err))

	_, err = e.svc.Refresh(ctx, dto.RefreshDTO{SessionID: res.SessionID.String(), RefreshToken: res.RefreshToken})
	require.ErrorIs(t, err, authErrors.ErrInvalidRefreshToken)
}

func TestAuthService_LoginGoogleReusesUser(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.google.identities["code-1"] = model.FederatedIdentity{Email: "g@x.com", GivenName: "Gina", Picture: "https://pic", Subject: "111"}
	e.google.identities["code-2"] = model.FederatedIdentity{Email: "g@x.com", GivenName: "Gina", Picture: "https://pic", Subject: "111"}

	first, err := e.svc.LoginGoogle(ctx, dto.GoogleLoginDTO{Code: "code-1"})
	require.NoError(t, err)
	require.Equal(t, "Gina", first.User.Name)
	require.Equal(t, "https://pic", first.User.AvatarURL)

	second, err := e.svc.LoginGoogle(ctx, dto.GoogleLoginDTO{Code: "code-2"})
	require.NoError(t, err)
	require.Equal(t, first.User.ID, second.User.ID)
	require.Equal(t, 1, e.users.count())
	require.Equal(t, 2, e.sessions.count())

	// the generated password never matches the subject
	_, err = e.svc.Login(ctx, dto.LoginDTO{Email: "g@x.com", Password: "111"})
	require.ErrorIs(t, err, authErrors.ErrInvalidCredentials)
}

func TestAuthService_LoginGoogleExistingLocalUser(t *testing.T) {
	e := newEnv(t)
	local := e.register(t, "both@x.com")
	e.google.identities["c"] = model.FederatedIdentity{Email: "both@x.com", Subject: "9"}

	res, err := e.svc.LoginGoogle(context.Background(), dto.GoogleLoginDTO{Code: "c"})
	require.NoError(t, err)
	require.Equal(t, local.User.ID, res.User.ID)
	require.Equal(t, model.DefaultName, res.User.Name)
}

func TestAuthService_LoginGoogleCreateRace(t *testing.T) {
	e := newEnv(t)
	existing := e.register(t, "race@x.com")
	e.google.identities["c"] = model.FederatedIdentity{Email: "race@x.com", Subject: "1"}
	e.users.hideOnce = true

	res, err := e.svc.LoginGoogle(context.Background(), dto.GoogleLoginDTO{Code: "c"})
	require.NoError(t, err)
	require.Equal(t, existing.User.ID, res.User.ID)
	require.Equal(t, 1, e.users.count())
}

func TestAuthService_LoginGoogleErrors(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.svc.LoginGoogle(ctx, dto.GoogleLoginDTO{Code: "unknown"})
	require.ErrorIs(t, err, authErrors.ErrInvalidGoogleToken)
	require.Equal(t, "Invalid Google token", err.Error())

	e.google.err = authErrors.ErrVerificationFailed
	_, err = e.svc.LoginGoogle(ctx, dto.GoogleLoginDTO{Code: "x"})
	require.ErrorIs(t, err, authErrors.ErrVerificationFailed)

	_, err = e.svc.LoginGoogle(ctx, dto.GoogleLoginDTO{})
	require.True(t, authErrors.IsInvalidArgument(err))
}

func TestAuthService_LoginGoogleLookupFailureNotMasked(t *testing.T) {
	e := newEnv(t)
	e.google.identities["c"] = model.FederatedIdentity{Email: "g@x.com", Subject: "1"}
	e.users.lookupErr = authErrors.WrapInternal(errors.New("timeout"), "GetUserByEmail")

	_, err := e.svc.LoginGoogle(context.Background(), dto.GoogleLoginDTO{Code: "c"})
	require.True(t, authErrors.IsInternal(err))
	require.Equal(t, 0, e.users.count())
}

func TestAuthService_GoogleAuthURL(t *testing.T) {
	e := newEnv(t)
	require.Contains(t, e.svc.GoogleAuthURL("st"), "state=st")
}

func TestAuthService_Authenticate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	res := e.register(t, "who@x.com")

	uid, err := e.svc.Authenticate(ctx, res.AccessToken)
	require.NoError(t, err)
	require.Equal(t, res.User.ID, uid)

	for _, tok := range []string{"", "garbage", res.AccessToken + "x"} {
		_, err = e.svc.Authenticate(ctx, tok)
		require.ErrorIs(t, err, authErrors.ErrNotLoggedIn)
	}
}
