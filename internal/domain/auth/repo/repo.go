package repo

import (
	"context"
	"github.com/Miraines/AquaTrack/auth-service/internal/domain/auth/model"
	"github.com/google/uuid"
	"time"
)

type UserRepo interface {
	CreateUser(ctx context.Context, u model.User) (model.User, error)

	GetUserByEmail(ctx context.Context, email string) (model.User, error)

	GetUserByID(ctx context.Context, id uuid.UUID) (model.User, error)

	UpdateUser(ctx context.Context, u model.User) (model.User, error)
}

type SessionRepo interface {
	CreateSession(ctx context.Context, s model.Session) (model.Session, error)

	// GetSession does not filter out expired sessions.
	GetSession(ctx context.Context, id uuid.UUID) (model.Session, error)

	DeleteSession(ctx context.Context, id uuid.UUID) error

	// RotateSession replaces oldID with next only while oldID still holds
	// refreshToken, otherwise it returns errors.ErrStaleSession.
	RotateSession(ctx context.Context, oldID uuid.UUID, refreshToken string, next model.Session) error

	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
