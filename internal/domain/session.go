package domain

import (
	"time"

	"github.com/google/uuid"
)

// Session binds a user to an issued access/refresh token lineage. Only keyed
// fingerprints of the opaque token secrets are stored.
type Session struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	User             User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	AccessTokenHash  string    `gorm:"size:128;index;not null" json:"-"`
	RefreshTokenHash *string   `gorm:"size:128;uniqueIndex" json:"-"`
	UserAgent        string    `gorm:"size:512" json:"user_agent"`
	IP               string    `gorm:"size:64" json:"ip"`
	Revoked          bool      `gorm:"index;not null" json:"revoked"`
	CreatedAt        time.Time `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Usable reports whether the session can still authorize requests.
func (s *Session) Usable() bool {
	return s != nil && !s.Revoked && s.User.Status
}
