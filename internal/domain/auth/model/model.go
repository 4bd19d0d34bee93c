package model

import (
	"github.com/google/uuid"
	"time"
)

const (
	DefaultName      = "User"
	DefaultAvatarURL = "https://sbcf.fr/wp-content/uploads/2018/03/sbcf-default-avatar.png"
	DefaultDailyNorm = 1.5
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email        string    `gorm:"size:320;uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Name         string    `gorm:"size:128;not null"`
	AvatarURL    string    `gorm:"size:2048;not null"`
	Weight       float64   `gorm:"not null;default:0"`
	ActiveTime   float64   `gorm:"not null;default:0"`
	Gender       Gender    `gorm:"size:16;not null"`
	DailyNorm    float64   `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ApplyDefaults fills profile fields a new account is created without.
func (u *User) ApplyDefaults() {
	if u.Name == "" {
		u.Name = DefaultName
	}
	if u.AvatarURL == "" {
		u.AvatarURL = DefaultAvatarURL
	}
	if u.Gender == "" {
		u.Gender = GenderOther
	}
	if u.DailyNorm == 0 {
		u.DailyNorm = DefaultDailyNorm
	}
}

// UserView is the only shape of a user that leaves the service layer.
type UserView struct {
	ID         uuid.UUID `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	AvatarURL  string    `json:"avatarURL"`
	Weight     float64   `json:"weight"`
	ActiveTime float64   `json:"activeTime"`
	Gender     Gender    `json:"gender"`
	DailyNorm  float64   `json:"dailyNorm"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (u User) View() UserView {
	return UserView{
		ID:         u.ID,
		Email:      u.Email,
		Name:       u.Name,
		AvatarURL:  u.AvatarURL,
		Weight:     u.Weight,
		ActiveTime: u.ActiveTime,
		Gender:     u.Gender,
		DailyNorm:  u.DailyNorm,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

type Session struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID       uuid.UUID `gorm:"type:uuid;index;not null"`
	RefreshToken string    `gorm:"not null"`
	ExpiresAt    time.Time `gorm:"index;not null"`
	CreatedAt    time.Time
}

func (s Session) Expired(now time.Time) bool {
	return s.ExpiresAt.Before(now)
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	UserId       uuid.UUID
	SessionID    uuid.UUID
}

type AuthResult struct {
	User UserView
	TokenPair
}

// FederatedIdentity is what an external identity provider vouches for.
type FederatedIdentity struct {
	Email     string
	GivenName string
	Picture   string
	Subject   string
}
