package redis

import (
	"context"
	"strconv"
	"time"

	customErrors "github.com/Miraines/AquaTrack/auth-service/internal/domain/auth/errors"
	"github.com/Miraines/AquaTrack/auth-service/internal/domain/auth/model"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "session:"

// expiredRetention keeps a session readable for a while after it expires so
// a late refresh reports the expiry instead of an unknown session.
const expiredRetention = 24 * time.Hour

const (
	fieldUserID       = "user_id"
	fieldRefreshToken = "refresh_token"
	fieldExpiresAt    = "expires_at"
	fieldCreatedAt    = "created_at"
)

// KEYS[1] old session, KEYS[2] new session.
// ARGV: presented token, user id, new token, expires_at ms, created_at ms,
// key expiry ms.
var rotateScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'refresh_token') ~= ARGV[1] then
  return 0
end
redis.call('DEL', KEYS[1])
redis.call('HSET', KEYS[2], 'user_id', ARGV[2], 'refresh_token', ARGV[3], 'expires_at', ARGV[4], 'created_at', ARGV[5])
redis.call('PEXPIREAT', KEYS[2], ARGV[6])
return 1
`)

// RedisSessionRepo keeps each session in a hash whose key outlives the
// session by expiredRetention. Redis drops the key afterwards, so
// DeleteExpired has nothing left to do.
type RedisSessionRepo struct {
	client *redis.Client
}

func NewRedisSessionRepo(client *redis.Client) *RedisSessionRepo {
	return &RedisSessionRepo{
		client: client,
	}
}

func sessionKey(id uuid.UUID) string {
	return sessionKeyPrefix + id.String()
}

func (r *RedisSessionRepo) CreateSession(ctx context.Context, s model.Session) (model.Session, error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	key := sessionKey(s.ID)

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, map[string]any{
			fieldUserID:       s.UserID.String(),
			fieldRefreshToken: s.RefreshToken,
			fieldExpiresAt:    s.ExpiresAt.UnixMilli(),
			fieldCreatedAt:    s.CreatedAt.UnixMilli(),
		})
		pipe.PExpireAt(ctx, key, keyExpiry(s.ExpiresAt))
		return nil
	})
	if err != nil {
		return model.Session{}, customErrors.WrapInternal(err, "CreateSession")
	}
	return s, nil
}

func (r *RedisSessionRepo) GetSession(ctx context.Context, id uuid.UUID) (model.Session, error) {
	vals, err := r.client.HGetAll(ctx, sessionKey(id)).Result()
	if err != nil {
		return model.Session{}, customErrors.WrapInternal(err, "GetSession")
	}
	if len(vals) == 0 {
		return model.Session{}, customErrors.ErrSessionNotFound
	}

	userID, err := uuid.Parse(vals[fieldUserID])
	if err != nil {
		return model.Session{}, customErrors.WrapInternal(err, "GetSession user_id")
	}
	expMs, err := strconv.ParseInt(vals[fieldExpiresAt], 10, 64)
	if err != nil {
		return model.Session{}, customErrors.WrapInternal(err, "GetSession expires_at")
	}
	createdMs, err := strconv.ParseInt(vals[fieldCreatedAt], 10, 64)
	if err != nil {
		return model.Session{}, customErrors.WrapInternal(err, "GetSession created_at")
	}

	return model.Session{
		ID:           id,
		UserID:       userID,
		RefreshToken: vals[fieldRefreshToken],
		ExpiresAt:    time.UnixMilli(expMs).UTC(),
		CreatedAt:    time.UnixMilli(createdMs).UTC(),
	}, nil
}

func (r *RedisSessionRepo) DeleteSession(ctx context.Context, id uuid.UUID) error {
	n, err := r.client.Del(ctx, sessionKey(id)).Result()
	if err != nil {
		return customErrors.WrapInternal(err, "DeleteSession")
	}
	if n == 0 {
		return customErrors.ErrSessionNotFound
	}
	return nil
}

func (r *RedisSessionRepo) RotateSession(ctx context.Context, oldID uuid.UUID, refreshToken string, next model.Session) error {
	if next.ID == uuid.Nil {
		return customErrors.NewInvalidArgument("next session has no id")
	}
	if next.CreatedAt.IsZero() {
		next.CreatedAt = time.Now().UTC()
	}

	res, err := rotateScript.Run(ctx, r.client,
		[]string{sessionKey(oldID), sessionKey(next.ID)},
		refreshToken,
		next.UserID.String(),
		next.RefreshToken,
		next.ExpiresAt.UnixMilli(),
		next.CreatedAt.UnixMilli(),
		keyExpiry(next.ExpiresAt).UnixMilli(),
	).Int()
	if err != nil {
		return customErrors.WrapInternal(err, "RotateSession")
	}
	if res != 1 {
		return customErrors.ErrStaleSession
	}
	return nil
}

func (r *RedisSessionRepo) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}

// keyExpiry is the session expiry plus expiredRetention, floored at one
// second from now because Redis deletes keys given a past deadline.
func keyExpiry(exp time.Time) time.Time {
	exp = exp.Add(expiredRetention)
	if floor := time.Now().Add(time.Second); exp.Before(floor) {
		return floor
	}
	return exp
}
