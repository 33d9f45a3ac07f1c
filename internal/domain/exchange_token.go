package domain

import "time"

// ExchangeToken is a single-use, short-lived handoff token. Only the hash of
// the opaque token is stored; the raw value exists solely in the redirect URL.
type ExchangeToken struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	TokenHash  string     `gorm:"size:128;uniqueIndex;not null" json:"-"`
	Credential string     `gorm:"size:2048;not null" json:"-"`
	UserID     uint       `gorm:"index;not null" json:"user_id"`
	ExpiresAt  time.Time  `gorm:"index;not null" json:"expires_at"`
	UsedAt     *time.Time `gorm:"index" json:"used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
