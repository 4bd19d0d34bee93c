package postgres

import (
	"context"
	"errors"
	customErrors "github.com/Miraines/AquaTrack/auth-service/internal/domain/auth/errors"
	"github.com/Miraines/AquaTrack/auth-service/internal/domain/auth/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var errUserInvalid = customErrors.NewInvalidArgument("Error creating user.")

// profileColumns are the only columns UpdateUser writes.
var profileColumns = []string{"email", "name", "avatar_url", "weight", "active_time", "gender", "daily_norm", "updated_at"}

type PostgresUserRepo struct {
	db *gorm.DB
}

func NewPostgresUserRepo(db *gorm.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

func (p *PostgresUserRepo) CreateUser(ctx context.Context, user model.User) (model.User, error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	res := p.db.WithContext(ctx).Create(&user)
	if err := res.Error; err != nil {
		switch {
		case isUniqueViolation(err):
			return model.User{}, customErrors.ErrUserExists
		case isConstraintViolation(err):
			return model.User{}, errUserInvalid
		}
		return model.User{}, customErrors.WrapInternal(err, "CreateUser")
	}
	return user, nil
}

func (p *PostgresUserRepo) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	var u model.User
	res := p.db.WithContext(ctx).Where("email = ?", email).First(&u)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return model.User{}, customErrors.ErrNotFound
	}
	if err := res.Error; err != nil {
		return model.User{}, customErrors.WrapInternal(err, "GetUserByEmail")
	}

	return u, nil
}

func (p *PostgresUserRepo) GetUserByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	var u model.User
	res := p.db.WithContext(ctx).Where("id = ?", id).First(&u)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return model.User{}, customErrors.ErrNotFound
	}
	if err := res.Error; err != nil {
		return model.User{}, customErrors.WrapInternal(err, "GetUserByID")
	}

	return u, nil
}

func (p *PostgresUserRepo) UpdateUser(ctx context.Context, user model.User) (model.User, error) {
	res := p.db.WithContext(ctx).
		Model(&model.User{ID: user.ID}).
		Select(profileColumns).
		Updates(&user)
	if err := res.Error; err != nil {
		if isUniqueViolation(err) {
			return model.User{}, customErrors.ErrUserExists
		}
		return model.User{}, customErrors.WrapInternal(err, "UpdateUser")
	}
	if res.RowsAffected == 0 {
		return model.User{}, customErrors.ErrNotFound
	}

	return p.GetUserByID(ctx, user.ID)
}
