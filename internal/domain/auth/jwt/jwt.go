package jwt

import (
	"github.com/golang-jwt/jwt/v5"
	"time"
)

// Claims is the whole payload of access and refresh tokens: a subject, its
// validity window and a random token id.
type Claims struct {
	jwt.RegisteredClaims
}

type TokenCodec interface {
	Issue(subject string, ttl time.Duration) (token string, exp time.Time, err error)
	Verify(token string) (subject string, err error)
}
