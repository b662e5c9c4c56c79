package models

type UserProfile struct {
	ID          string `json:"_id,omitempty"`
	UserID      string `json:"userId"`
	Username    string `json:"username" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	PhoneNumber string `json:"phoneNumber" validate:"required"`
	Address     string `json:"address" validate:"required"`
	City        string `json:"city" validate:"required"`
	District    string `json:"district,omitempty"`
	Country     string `json:"country" validate:"required"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
	IsVerified  bool   `json:"isVerified"`
}

type ProfilePhoto struct {
	UserID string `json:"userId"`
	Image  string `json:"image"`
}
