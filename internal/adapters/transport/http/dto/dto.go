package dto

type RegisterDTO struct {
	Email      string   `json:"email"      validate:"required,email,max=320"`
	Password   string   `json:"password"   validate:"required,strongpwd"`
	Name       string   `json:"name"       validate:"omitempty,max=128"`
	AvatarURL  string   `json:"avatarURL"  validate:"omitempty,url,max=2048"`
	Weight     *float64 `json:"weight"     validate:"omitnil,gte=0,lte=500"`
	ActiveTime *float64 `json:"activeTime" validate:"omitnil,gte=0,lte=24"`
	Gender     string   `json:"gender"     validate:"omitempty,gender"`
	DailyNorm  *float64 `json:"dailyNorm"  validate:"omitnil,gt=0,lte=15"`
}

type LoginDTO struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LogoutDTO struct {
	SessionID string `json:"sessionId" validate:"required"`
}

type RefreshDTO struct {
	SessionID    string `json:"sessionId"    validate:"required"`
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type GoogleLoginDTO struct {
	Code string `json:"code" form:"code" validate:"required"`
}

// UpdateUserDTO carries a partial profile; nil fields are left untouched.
type UpdateUserDTO struct {
	Name       *string  `json:"name"       validate:"omitnil,min=1,max=128"`
	Email      *string  `json:"email"      validate:"omitnil,email,max=320"`
	AvatarURL  *string  `json:"avatarURL"  validate:"omitnil,url,max=2048"`
	Weight     *float64 `json:"weight"     validate:"omitnil,gte=0,lte=500"`
	ActiveTime *float64 `json:"activeTime" validate:"omitnil,gte=0,lte=24"`
	Gender     *string  `json:"gender"     validate:"omitnil,gender"`
	DailyNorm  *float64 `json:"dailyNorm"  validate:"omitnil,gt=0,lte=15"`
}
