package service

import (
	"context"
	"errors"
	"time"

	"github.com/Miraines/AquaTrack/auth-service/internal/adapters/transport/http/dto"
	"github.com/Miraines/AquaTrack/auth-service/internal/app/auth/password"
	customErrors "github.com/Miraines/AquaTrack/auth-service/internal/domain/auth/errors"
	"github.com/Miraines/AquaTrack/auth-service/internal/domain/auth/jwt"
	"github.com/Miraines/AquaTrack/auth-service/internal/domain/auth/model"
	repo "github.com/Miraines/AquaTrack/auth-service/internal/domain/auth/repo"
	"github.com/Miraines/AquaTrack/auth-service/internal/infra/config"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// IdentityVerifier resolves an authorization code from an external provider.
type IdentityVerifier interface {
	AuthCodeURL(state string) string
	Verify(ctx context.Context, code string) (model.FederatedIdentity, error)
}

type Service interface {
	Register(context.Context, dto.RegisterDTO) (model.AuthResult, error)
	Login(context.Context, dto.LoginDTO) (model.AuthResult, error)
	Logout(context.Context, dto.LogoutDTO) error
	Refresh(context.Context, dto.RefreshDTO) (model.TokenPair, error)
	GoogleAuthURL(state string) string
	LoginGoogle(context.Context, dto.GoogleLoginDTO) (model.AuthResult, error)
	Authenticate(ctx context.Context, accessToken string) (uuid.UUID, error)
}

type authService struct {
	userRepo    repo.UserRepo
	sessionRepo repo.SessionRepo
	codec       jwt.TokenCodec
	hasher      password.Hasher
	google      IdentityVerifier
	cfg         *config.Config
	v           *validator.Validate
	log         *zap.Logger
	now         func() time.Time
}

type Option func(*authService)

// WithClock replaces the wall clock used for session expiry.
func WithClock(now func() time.Time) Option {
	return func(a *authService) { a.now = now }
}

func New(
	ur repo.UserRepo,
	sr repo.SessionRepo,
	codec jwt.TokenCodec,
	hasher password.Hasher,
	google IdentityVerifier,
	cfg *config.Config,
	v *validator.Validate,
	log *zap.Logger,
	opts ...Option,
) Service {
	a := &authService{
		userRepo:    ur,
		sessionRepo: sr,
		codec:       codec,
		hasher:      hasher,
		google:      google,
		cfg:         cfg,
		v:           v,
		log:         log,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *authService) Register(ctx context.Context, in dto.RegisterDTO) (model.AuthResult, error) {
	if err := dto.Validate(a.v, in); err != nil {
		return model.AuthResult{}, err
	}

	passwordHash, err := a.hasher.Hash(in.Password)
	if err != nil {
		return model.AuthResult{}, err
	}

	user := model.User{
		Email:        in.Email,
		PasswordHash: passwordHash,
		Name:         in.Name,
		AvatarURL:    in.AvatarURL,
		Gender:       model.Gender(in.Gender),
	}
	if in.Weight != nil {
		user.Weight = *in.Weight
	}
	if in.ActiveTime != nil {
		user.ActiveTime = *in.ActiveTime
	}
	if in.DailyNorm != nil {
		user.DailyNorm = *in.DailyNorm
	}
	user.ApplyDefaults()

	created, err := a.userRepo.CreateUser(ctx, user)
	if err != nil {
		if customErrors.IsAlreadyExists(err) {
			return model.AuthResult{}, customErrors.ErrUserExists
		}
		if customErrors.IsInvalidArgument(err) {
			return model.AuthResult{}, err
		}
		return model.AuthResult{}, customErrors.WrapInternal(err, "Register")
	}

	return a.startSession(ctx, created)
}

func (a *authService) Login(ctx context.Context, in dto.LoginDTO) (model.AuthResult, error) {
	if err := dto.Validate(a.v, in); err != nil {
		return model.AuthResult{}, err
	}

	user, err := a.userRepo.GetUserByEmail(ctx, in.Email)
	switch {
	case customErrors.IsNotFound(err):
		return model.AuthResult{}, customErrors.ErrInvalidCredentials
	case err != nil:
		return model.AuthResult{}, customErrors.WrapInternal(err, "Login")
	}

	ok, err := a.hasher.Verify(in.Password, user.PasswordHash)
	if err != nil {
		return model.AuthResult{}, customErrors.WrapInternal(err, "Login")
	}
	if !ok {
		return model.AuthResult{}, customErrors.ErrInvalidCredentials
	}

	return a.startSession(ctx, user)
}

// Logout removes the session. An unknown or malformed session id is a
// client error.
func (a *authService) Logout(ctx context.Context, in dto.LogoutDTO) error {
	if err := dto.Validate(a.v, in); err != nil {
		return err
	}

	sid, err := uuid.Parse(in.SessionID)
	if err != nil {
		return customErrors.ErrSessionNotFound
	}

	if err := a.sessionRepo.DeleteSession(ctx, sid); err != nil {
		if customErrors.IsNotFound(err) {
			return customErrors.ErrSessionNotFound
		}
		return customErrors.WrapInternal(err, "Logout")
	}
	return nil
}

// Refresh trades a live (session, refresh token) pair for a new one. The old
// pair is consumed atomically, so at most one of several concurrent calls
// with the same pair succeeds.
func (a *authService) Refresh(ctx context.Context, in dto.RefreshDTO) (model.TokenPair, error) {
	if err := dto.Validate(a.v, in); err != nil {
		return model.TokenPair{}, err
	}

	sid, err := uuid.Parse(in.SessionID)
	if err != nil {
		return model.TokenPair{}, customErrors.ErrInvalidRefreshToken
	}

	sess, err := a.sessionRepo.GetSession(ctx, sid)
	switch {
	case customErrors.IsNotFound(err):
		return model.TokenPair{}, customErrors.ErrInvalidRefreshToken
	case err != nil:
		return model.TokenPair{}, customErrors.WrapInternal(err, "Refresh")
	}

	if sess.RefreshToken != in.RefreshToken {
		return model.TokenPair{}, customErrors.ErrInvalidRefreshToken
	}

	now := a.now().UTC()
	if sess.Expired(now) {
		return model.TokenPair{}, customErrors.ErrSessionExpired
	}

	pair, next, err := a.issue(sess.UserID, now)
	if err != nil {
		return model.TokenPair{}, err
	}

	if err := a.sessionRepo.RotateSession(ctx, sess.ID, in.RefreshToken, next); err != nil {
		if errors.Is(err, customErrors.ErrStaleSession) {
			a.log.Warn("refresh lost rotation race", zap.String("session_id", sess.ID.String()))
			return model.TokenPair{}, customErrors.ErrInvalidRefreshToken
		}
		return model.TokenPair{}, customErrors.WrapInternal(err, "Refresh")
	}

	return pair, nil
}

func (a *authService) GoogleAuthURL(state string) string {
	return a.google.AuthCodeURL(state)
}

func (a *authService) LoginGoogle(ctx context.Context, in dto.GoogleLoginDTO) (model.AuthResult, error) {
	if err := dto.Validate(a.v, in); err != nil {
		return model.AuthResult{}, err
	}

	identity, err := a.google.Verify(ctx, in.Code)
	if err != nil {
		if customErrors.IsInvalidGrant(err) {
			return model.AuthResult{}, customErrors.ErrInvalidGoogleToken
		}
		if customErrors.IsInvalidArgument(err) {
			return model.AuthResult{}, err
		}
		return model.AuthResult{}, customErrors.WrapInternal(err, "LoginGoogle")
	}

	user, err := a.userRepo.GetUserByEmail(ctx, identity.Email)
	switch {
	case err == nil:
		return a.startSession(ctx, user)
	case customErrors.IsNotFound(err):
	default:
		return model.AuthResult{}, customErrors.WrapInternal(err, "LoginGoogle")
	}

	user, err = a.createFederatedUser(ctx, identity)
	if err != nil {
		return model.AuthResult{}, err
	}
	return a.startSession(ctx, user)
}

// createFederatedUser stores a user whose password is never usable for
// local login. A concurrent first login for the same email wins the insert;
// the loser picks up the stored row.
func (a *authService) createFederatedUser(ctx context.Context, identity model.FederatedIdentity) (model.User, error) {
	passwordHash, err := a.hasher.Hash(identity.Subject + ":" + uuid.NewString())
	if err != nil {
		return model.User{}, customErrors.WrapInternal(err, "LoginGoogle")
	}

	user := model.User{
		Email:        identity.Email,
		PasswordHash: passwordHash,
		Name:         identity.GivenName,
		AvatarURL:    identity.Picture,
	}
	user.ApplyDefaults()

	created, err := a.userRepo.CreateUser(ctx, user)
	switch {
	case err == nil:
		a.log.Info("created user from google identity", zap.String("user_id", created.ID.String()))
		return created, nil
	case customErrors.IsAlreadyExists(err):
		existing, err := a.userRepo.GetUserByEmail(ctx, identity.Email)
		if err != nil {
			return model.User{}, customErrors.WrapInternal(err, "LoginGoogle")
		}
		return existing, nil
	default:
		return model.User{}, customErrors.WrapInternal(err, "LoginGoogle")
	}
}

func (a *authService) Authenticate(_ context.Context, accessToken string) (uuid.UUID, error) {
	if accessToken == "" {
		return uuid.Nil, customErrors.ErrNotLoggedIn
	}
	subject, err := a.codec.Verify(accessToken)
	if err != nil {
		return uuid.Nil, customErrors.ErrNotLoggedIn
	}
	uid, err := uuid.Parse(subject)
	if err != nil {
		return uuid.Nil, customErrors.ErrNotLoggedIn
	}
	return uid, nil
}

func (a *authService) startSession(ctx context.Context, user model.User) (model.AuthResult, error) {
	pair, sess, err := a.issue(user.ID, a.now().UTC())
	if err != nil {
		return model.AuthResult{}, err
	}
	if _, err := a.sessionRepo.CreateSession(ctx, sess); err != nil {
		return model.AuthResult{}, customErrors.WrapInternal(err, "CreateSession")
	}
	return model.AuthResult{User: user.View(), TokenPair: pair}, nil
}

// issue mints an access/refresh pair for uid and the session that will hold
// the refresh token. Nothing is persisted.
func (a *authService) issue(uid uuid.UUID, now time.Time) (model.TokenPair, model.Session, error) {
	at, _, err := a.codec.Issue(uid.String(), a.cfg.AccessTokenTTL)
	if err != nil {
		return model.TokenPair{}, model.Session{}, customErrors.WrapInternal(err, "IssueAccessToken")
	}
	rt, _, err := a.codec.Issue(uid.String(), a.cfg.RefreshTokenTTL)
	if err != nil {
		return model.TokenPair{}, model.Session{}, customErrors.WrapInternal(err, "IssueRefreshToken")
	}

	sess := model.Session{
		ID:           uuid.New(),
		UserID:       uid,
		RefreshToken: rt,
		ExpiresAt:    now.Add(a.cfg.RefreshTokenTTL),
		CreatedAt:    now,
	}
	return model.TokenPair{
		AccessToken:  at,
		RefreshToken: rt,
		AccessTTL:    a.cfg.AccessTokenTTL,
		RefreshTTL:   a.cfg.RefreshTokenTTL,
		UserId:       uid,
		SessionID:    sess.ID,
	}, sess, nil
}
