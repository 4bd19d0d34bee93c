package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const userIDKey = "userID"

type authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (uuid.UUID, error)
}

// RequireUser resolves the bearer token into a user id. Failures are handed
// to onError, which must write the response.
func RequireUser(auth authenticator, onError func(*gin.Context, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, err := auth.Authenticate(c.Request.Context(), bearerToken(c.GetHeader("Authorization")))
		if err != nil {
			onError(c, err)
			c.Abort()
			return
		}
		c.Set(userIDKey, uid)
		c.Next()
	}
}

// UserID returns the id stored by RequireUser.
func UserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return uuid.Nil, false
	}
	uid, ok := v.(uuid.UUID)
	return uid, ok
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
