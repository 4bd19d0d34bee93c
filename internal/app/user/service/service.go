// Package service serves the authenticated user's own profile.
package service

import (
	"context"
	"strings"

	"github.com/Miraines/AquaTrack/auth-service/internal/adapters/transport/http/dto"
	customErrors "github.com/Miraines/AquaTrack/auth-service/internal/domain/auth/errors"
	"github.com/Miraines/AquaTrack/auth-service/internal/domain/auth/model"
	repo "github.com/Miraines/AquaTrack/auth-service/internal/domain/auth/repo"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Service interface {
	Current(ctx context.Context, userID uuid.UUID) (model.UserView, error)
	Update(ctx context.Context, userID uuid.UUID, in dto.UpdateUserDTO) (model.UserView, error)
}

type userService struct {
	users repo.UserRepo
	v     *validator.Validate
	log   *zap.Logger
}

func New(users repo.UserRepo, v *validator.Validate, log *zap.Logger) Service {
	return &userService{users: users, v: v, log: log}
}

// Current returns the caller's profile. A token whose user has disappeared
// is treated as not logged in.
func (s *userService) Current(ctx context.Context, userID uuid.UUID) (model.UserView, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return model.UserView{}, err
	}
	return user.View(), nil
}

func (s *userService) Update(ctx context.Context, userID uuid.UUID, in dto.UpdateUserDTO) (model.UserView, error) {
	if err := dto.Validate(s.v, in); err != nil {
		return model.UserView{}, err
	}

	user, err := s.load(ctx, userID)
	if err != nil {
		return model.UserView{}, err
	}

	if in.Name != nil {
		user.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		user.Email = *in.Email
	}
	if in.AvatarURL != nil {
		user.AvatarURL = *in.AvatarURL
	}
	if in.Weight != nil {
		user.Weight = *in.Weight
	}
	if in.ActiveTime != nil {
		user.ActiveTime = *in.ActiveTime
	}
	if in.Gender != nil {
		user.Gender = model.Gender(*in.Gender)
	}
	if in.DailyNorm != nil {
		user.DailyNorm = *in.DailyNorm
	}

	updated, err := s.users.UpdateUser(ctx, user)
	switch {
	case err == nil:
	case customErrors.IsAlreadyExists(err):
		return model.UserView{}, customErrors.ErrUserExists
	case customErrors.IsNotFound(err):
		return model.UserView{}, customErrors.ErrNotLoggedIn
	case customErrors.IsInvalidArgument(err):
		return model.UserView{}, err
	default:
		return model.UserView{}, customErrors.WrapInternal(err, "UpdateUser")
	}

	s.log.Info("user profile updated", zap.String("user_id", userID.String()))
	return updated.View(), nil
}

func (s *userService) load(ctx context.Context, userID uuid.UUID) (model.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	switch {
	case err == nil:
		return user, nil
	case customErrors.IsNotFound(err):
		return model.User{}, customErrors.ErrNotLoggedIn
	default:
		return model.User{}, customErrors.WrapInternal(err, "GetUserByID")
	}
}
