package jwt

import (
	"errors"
	customErrors "github.com/Miraines/AquaTrack/auth-service/internal/domain/auth/errors"
	jwt2 "github.com/Miraines/AquaTrack/auth-service/internal/domain/auth/jwt"
	"github.com/Miraines/AquaTrack/auth-service/internal/infra/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"time"
)

var errEmptySecret = errors.New("jwt secret is empty")

type JwtUtilImpl struct {
	secret []byte
	issuer string
	now    func() time.Time
}

var _ jwt2.TokenCodec = (*JwtUtilImpl)(nil)

func NewJWTUtil(cfg *config.Config) (*JwtUtilImpl, error) {
	if cfg.JWTSecret == "" {
		return nil, customErrors.WrapInternal(errEmptySecret, "NewJWTUtil")
	}
	return &JwtUtilImpl{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.Issuer,
		now:    time.Now,
	}, nil
}

func (j *JwtUtilImpl) Issue(subject string, ttl time.Duration) (string, time.Time, error) {
	now := j.now()

	claims := jwt2.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			Issuer:    j.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", time.Time{}, customErrors.WrapInternal(err, "sign token")
	}

	return signed, claims.ExpiresAt.Time, nil
}

// Verify returns the token subject. Every failure, whether a bad signature,
// an expired token or a missing subject, is reported as ErrInvalidToken.
func (j *JwtUtilImpl) Verify(raw string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	}
	if j.issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.issuer))
	}

	token, err := jwt.ParseWithClaims(raw, &jwt2.Claims{}, func(t *jwt.Token) (interface{}, error) {
		return j.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return "", customErrors.ErrInvalidToken
	}

	claims, ok := token.Claims.(*jwt2.Claims)
	if !ok || claims.Subject == "" {
		return "", customErrors.ErrInvalidToken
	}

	return claims.Subject, nil
}
