package domain

import "time"

type NodeState string

const (
	NodeStatePending  NodeState = "PENDING"
	NodeStateActive   NodeState = "ACTIVE"
	NodeStateInactive NodeState = "INACTIVE"
)

// PeripheralNode is the registry record for one affiliated clinic system.
// ActivationToken is populated only while the node is PENDING and the clinic
// has not completed registration.
type PeripheralNode struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	LegalID         string     `gorm:"size:32;uniqueIndex;not null" json:"legal_id"`
	Name            string     `gorm:"size:255;not null" json:"name"`
	Contact         string     `gorm:"size:512" json:"contact"`
	Department      string     `gorm:"size:128" json:"department"`
	Locality        string     `gorm:"size:128" json:"locality"`
	Address         string     `gorm:"size:255" json:"address"`
	URL             string     `gorm:"size:255" json:"url,omitempty"`
	LogoObjectKey   string     `gorm:"size:255" json:"logo_object_key,omitempty"`
	RemoteBaseURL   string     `gorm:"size:255" json:"remote_base_url,omitempty"`
	RemoteUser      string     `gorm:"size:128" json:"-"`
	RemotePassword  string     `gorm:"size:128" json:"-"`
	State           NodeState  `gorm:"size:16;index;default:PENDING" json:"state"`
	ActivationToken *string    `gorm:"size:128;index" json:"-"`
	ActivationURL   *string    `gorm:"size:512" json:"activation_url,omitempty"`
	TokenExpiresAt  *time.Time `json:"token_expires_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
