// Package password hashes and checks account credentials. New digests use
// the configured scheme; verification recognises every supported scheme so
// digests written under a previous setting keep working.
package password

import (
	"errors"
	"strings"

	customErrors "github.com/Miraines/AquaTrack/auth-service/internal/domain/auth/errors"
	"github.com/Miraines/AquaTrack/auth-service/internal/infra/config"
	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"
)

// bcrypt ignores everything past 72 bytes.
const MaxBcryptPasswordLen = 72

var argonParams = &argon2id.Params{
	Memory:      64 * 1024, // 64 MiB
	Iterations:  2,
	Parallelism: 4,
	SaltLength:  16,
	KeyLength:   32,
}

var ErrPasswordTooLong = customErrors.NewInvalidArgument("password exceeds 72 bytes")

type Hasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) (bool, error)
}

type hasher struct {
	algo string
	cost int
}

func New(cfg *config.Config) Hasher {
	cost := cfg.BcryptCost
	if cost == 0 {
		cost = 10
	}
	algo := cfg.PasswordHashAlgo
	if algo == "" {
		algo = config.HashBcrypt
	}
	return &hasher{algo: algo, cost: cost}
}

func (h *hasher) Hash(plain string) (string, error) {
	if h.algo == config.HashArgon2id {
		digest, err := argon2id.CreateHash(plain, argonParams)
		if err != nil {
			return "", customErrors.WrapInternal(err, "argon2id hash")
		}
		return digest, nil
	}

	if len(plain) > MaxBcryptPasswordLen {
		return "", ErrPasswordTooLong
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", customErrors.WrapInternal(err, "bcrypt hash")
	}
	return string(digest), nil
}

func (h *hasher) Verify(plain, digest string) (bool, error) {
	if strings.HasPrefix(digest, "$argon2id$") {
		ok, err := argon2id.ComparePasswordAndHash(plain, digest)
		if err != nil {
			return false, customErrors.WrapInternal(err, "argon2id compare")
		}
		return ok, nil
	}

	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, customErrors.WrapInternal(err, "bcrypt compare")
	}
}
