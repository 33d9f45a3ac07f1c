package domain

import "time"

// Session binds an issued session credential (stored hashed) to the user and
// the upstream identity-provider tokens obtained at login.
type Session struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"index;not null" json:"user_id"`
	TokenHash       string    `gorm:"size:128;uniqueIndex;not null" json:"-"`
	IDPAccessToken  string    `gorm:"size:4096" json:"-"`
	IDPRefreshToken string    `gorm:"size:4096" json:"-"`
	ExpiresAt       time.Time `gorm:"index;not null" json:"expires_at"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
