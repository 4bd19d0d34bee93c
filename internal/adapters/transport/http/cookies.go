package http

import (
	nethttp "net/http"
	"time"

	"github.com/Miraines/AquaTrack/auth-service/internal/domain/auth/model"
	"github.com/gin-gonic/gin"
)

const (
	cookieAccessToken  = "accessToken"
	cookieRefreshToken = "refreshToken"
	cookieSessionID    = "sessionId"
	cookieOAuthState   = "oauthState"

	oauthStateTTL = 10 * time.Minute
)

func (h *Handler) setCookie(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(nethttp.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, "/", h.cfg.CookieDomain, h.cfg.CookieSecure, true)
}

func (h *Handler) setAuthCookies(c *gin.Context, pair model.TokenPair) {
	h.setCookie(c, cookieAccessToken, pair.AccessToken, int(pair.AccessTTL.Seconds()))
	h.setCookie(c, cookieRefreshToken, pair.RefreshToken, int(pair.RefreshTTL.Seconds()))
	h.setCookie(c, cookieSessionID, pair.SessionID.String(), int(pair.RefreshTTL.Seconds()))
}

func (h *Handler) clearAuthCookies(c *gin.Context) {
	for _, name := range []string{cookieAccessToken, cookieRefreshToken, cookieSessionID} {
		h.setCookie(c, name, "", -1)
	}
}

// cookieOr returns fallback when non-empty, else the named cookie.
func cookieOr(c *gin.Context, name, fallback string) string {
	if fallback != "" {
		return fallback
	}
	v, _ := c.Cookie(name)
	return v
}
