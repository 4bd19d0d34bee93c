package postgres

import (
	"context"
	"errors"
	customErrors "github.com/Miraines/AquaTrack/auth-service/internal/domain/auth/errors"
	"github.com/Miraines/AquaTrack/auth-service/internal/domain/auth/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"time"
)

type PostgresSessionRepo struct {
	db *gorm.DB
}

func NewPostgresSessionRepo(db *gorm.DB) *PostgresSessionRepo {
	return &PostgresSessionRepo{db: db}
}

func (p *PostgresSessionRepo) CreateSession(ctx context.Context, s model.Session) (model.Session, error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if err := p.db.WithContext(ctx).Create(&s).Error; err != nil {
		return model.Session{}, customErrors.WrapInternal(err, "CreateSession")
	}
	return s, nil
}

func (p *PostgresSessionRepo) GetSession(ctx context.Context, id uuid.UUID) (model.Session, error) {
	var s model.Session
	res := p.db.WithContext(ctx).Where("id = ?", id).First(&s)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return model.Session{}, customErrors.ErrSessionNotFound
	}
	if err := res.Error; err != nil {
		return model.Session{}, customErrors.WrapInternal(err, "GetSession")
	}
	return s, nil
}

func (p *PostgresSessionRepo) DeleteSession(ctx context.Context, id uuid.UUID) error {
	res := p.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Session{})
	if err := res.Error; err != nil {
		return customErrors.WrapInternal(err, "DeleteSession")
	}
	if res.RowsAffected == 0 {
		return customErrors.ErrSessionNotFound
	}
	return nil
}

// RotateSession deletes the old row only while it still carries the presented
// refresh token. Concurrent rotations of one session serialize on that row, so
// exactly one of them sees RowsAffected == 1.
func (p *PostgresSessionRepo) RotateSession(ctx context.Context, oldID uuid.UUID, refreshToken string, next model.Session) error {
	if next.ID == uuid.Nil {
		return customErrors.NewInvalidArgument("next session has no id")
	}
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND refresh_token = ?", oldID, refreshToken).Delete(&model.Session{})
		if err := res.Error; err != nil {
			return customErrors.WrapInternal(err, "RotateSession delete")
		}
		if res.RowsAffected != 1 {
			return customErrors.ErrStaleSession
		}
		if err := tx.Create(&next).Error; err != nil {
			return customErrors.WrapInternal(err, "RotateSession create")
		}
		return nil
	})
}

func (p *PostgresSessionRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res := p.db.WithContext(ctx).Where("expires_at < ?", before).Delete(&model.Session{})
	if err := res.Error; err != nil {
		return 0, customErrors.WrapInternal(err, "DeleteExpired")
	}
	return res.RowsAffected, nil
}
