// Package http exposes the auth and profile services over REST with cookie
// based sessions.
package http

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"time"

	"github.com/Miraines/AquaTrack/auth-service/internal/adapters/transport/http/dto"
	"github.com/Miraines/AquaTrack/auth-service/internal/adapters/transport/http/middleware"
	authsvc "github.com/Miraines/AquaTrack/auth-service/internal/app/auth/service"
	usersvc "github.com/Miraines/AquaTrack/auth-service/internal/app/user/service"
	customErrors "github.com/Miraines/AquaTrack/auth-service/internal/domain/auth/errors"
	"github.com/Miraines/AquaTrack/auth-service/internal/domain/auth/model"
	"github.com/Miraines/AquaTrack/auth-service/internal/infra/config"
	"github.com/Miraines/AquaTrack/auth-service/internal/infra/metrics"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	errBadBody    = customErrors.NewInvalidArgument("Invalid request body")
	errBadState   = customErrors.NewInvalidArgument("Invalid OAuth state")
	errNoSession  = customErrors.NewUnauthorized("You are not logged in")
	errNoUserInCx = errors.New("user id missing from request context")
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Handler struct {
	auth    authsvc.Service
	users   usersvc.Service
	cfg     *config.Config
	metrics *metrics.Metrics
	log     *zap.Logger
	checks  map[string]HealthCheck
}

func NewHandler(
	auth authsvc.Service,
	users usersvc.Service,
	cfg *config.Config,
	m *metrics.Metrics,
	log *zap.Logger,
	checks map[string]HealthCheck,
) *Handler {
	return &Handler{auth: auth, users: users, cfg: cfg, metrics: m, log: log, checks: checks}
}

type authResponse struct {
	User         model.UserView `json:"user"`
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
	SessionID    string         `json:"sessionId"`
}

type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	SessionID    string `json:"sessionId"`
}

func newAuthResponse(res model.AuthResult) authResponse {
	return authResponse{
		User:         res.User,
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		SessionID:    res.SessionID.String(),
	}
}

func emailDigest(email string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(email)))
}

func (h *Handler) observe(op string, err error) {
	h.metrics.Observe(op, outcomeOf(err))
}

// bindOptionalJSON decodes the body when there is one. An empty body leaves
// dst untouched.
func bindOptionalJSON(c *gin.Context, dst any) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (h *Handler) Register(c *gin.Context) {
	var body dto.RegisterDTO
	if err := c.ShouldBindJSON(&body); err != nil {
		h.writeError(c, errBadBody)
		return
	}
	h.log.Info("/auth/register", zap.String("user", emailDigest(body.Email)))

	res, err := h.auth.Register(c.Request.Context(), body)
	h.observe("register", err)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.setAuthCookies(c, res.TokenPair)
	c.JSON(nethttp.StatusCreated, newAuthResponse(res))
}

func (h *Handler) Login(c *gin.Context) {
	var body dto.LoginDTO
	if err := c.ShouldBindJSON(&body); err != nil {
		h.writeError(c, errBadBody)
		return
	}
	h.log.Info("/auth/login", zap.String("user", emailDigest(body.Email)))

	res, err := h.auth.Login(c.Request.Context(), body)
	h.observe("login", err)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.setAuthCookies(c, res.TokenPair)
	c.JSON(nethttp.StatusOK, newAuthResponse(res))
}

// Logout ends the session named in the body or the sessionId cookie. Cookies
// are cleared whatever the outcome.
func (h *Handler) Logout(c *gin.Context) {
	var body dto.LogoutDTO
	if err := bindOptionalJSON(c, &body); err != nil {
		h.clearAuthCookies(c)
		h.writeError(c, errBadBody)
		return
	}
	body.SessionID = cookieOr(c, cookieSessionID, body.SessionID)

	h.clearAuthCookies(c)
	if body.SessionID == "" {
		h.writeError(c, errNoSession)
		return
	}

	err := h.auth.Logout(c.Request.Context(), body)
	h.observe("logout", err)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(nethttp.StatusNoContent)
}

func (h *Handler) Refresh(c *gin.Context) {
	var body dto.RefreshDTO
	if err := bindOptionalJSON(c, &body); err != nil {
		h.writeError(c, errBadBody)
		return
	}
	body.SessionID = cookieOr(c, cookieSessionID, body.SessionID)
	body.RefreshToken = cookieOr(c, cookieRefreshToken, body.RefreshToken)

	if body.SessionID == "" || body.RefreshToken == "" {
		h.writeError(c, errNoSession)
		return
	}

	pair, err := h.auth.Refresh(c.Request.Context(), body)
	h.observe("refresh", err)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.setAuthCookies(c, pair)
	c.JSON(nethttp.StatusOK, refreshResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		SessionID:    pair.SessionID.String(),
	})
}

// GoogleRedirect sends the browser to Google's consent screen. The state is
// pinned in a short-lived cookie and checked on callback.
func (h *Handler) GoogleRedirect(c *gin.Context) {
	state := uuid.NewString()
	h.setCookie(c, cookieOAuthState, state, int(oauthStateTTL.Seconds()))
	c.Redirect(nethttp.StatusFound, h.auth.GoogleAuthURL(state))
}

func (h *Handler) GoogleCallback(c *gin.Context) {
	expected, _ := c.Cookie(cookieOAuthState)
	h.setCookie(c, cookieOAuthState, "", -1)
	if expected == "" || c.Query("state") != expected {
		h.observe("google", errBadState)
		h.writeError(c, errBadState)
		return
	}

	res, err := h.auth.LoginGoogle(c.Request.Context(), dto.GoogleLoginDTO{Code: c.Query("code")})
	h.observe("google", err)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.setAuthCookies(c, res.TokenPair)
	c.Redirect(nethttp.StatusFound, h.cfg.FrontendURL)
}

// GoogleLogin is the API form of the callback for clients that run the
// consent flow themselves and post the code.
func (h *Handler) GoogleLogin(c *gin.Context) {
	var body dto.GoogleLoginDTO
	if err := c.ShouldBindJSON(&body); err != nil {
		h.writeError(c, errBadBody)
		return
	}

	res, err := h.auth.LoginGoogle(c.Request.Context(), body)
	h.observe("google", err)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.setAuthCookies(c, res.TokenPair)
	c.JSON(nethttp.StatusOK, newAuthResponse(res))
}

func (h *Handler) CurrentUser(c *gin.Context) {
	uid, ok := middleware.UserID(c)
	if !ok {
		h.writeError(c, customErrors.WrapInternal(errNoUserInCx, "CurrentUser"))
		return
	}
	view, err := h.users.Current(c.Request.Context(), uid)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(nethttp.StatusOK, view)
}

func (h *Handler) UpdateCurrentUser(c *gin.Context) {
	uid, ok := middleware.UserID(c)
	if !ok {
		h.writeError(c, customErrors.WrapInternal(errNoUserInCx, "UpdateCurrentUser"))
		return
	}
	var body dto.UpdateUserDTO
	if err := c.ShouldBindJSON(&body); err != nil {
		h.writeError(c, errBadBody)
		return
	}

	view, err := h.users.Update(c.Request.Context(), uid, body)
	h.observe("update_user", err)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(nethttp.StatusOK, gin.H{"message": "User updated successfully", "user": view})
}

func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.log.Warn("health check failed", zap.String("dependency", name), zap.Error(err))
			failed[name] = "unavailable"
		}
	}
	if len(failed) > 0 {
		c.JSON(nethttp.StatusServiceUnavailable, gin.H{"status": "unavailable", "failed": failed})
		return
	}
	c.JSON(nethttp.StatusOK, gin.H{"status": "ok", "time": time.Now().Unix()})
}
