package model

import (
	"time"

	"github.com/google/uuid"
)

// Revocation reasons recorded on RefreshSession rows
const (
	RevokeReasonLogout = "logout"
	RevokeReasonReplay = "replay_detected"
)

// RefreshSession persists the state of one refresh token. Only the SHA-256
// hash of the opaque token is stored; the raw value is returned to the
// client exactly once. A session that has been consumed (rotated) or
// revoked can never authenticate another rotation.
type RefreshSession struct {
	ID            uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	User          User       `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	TokenHash     string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"-"`
	IssuedAt      time.Time  `gorm:"not null" json:"issued_at"`
	ExpiresAt     time.Time  `gorm:"not null" json:"expires_at"`
	RotatedFrom   *uuid.UUID `gorm:"type:uuid;index" json:"rotated_from,omitempty"` // Back-reference to the session this one replaced
	Consumed      bool       `gorm:"default:false;index" json:"consumed"`
	Revoked       bool       `gorm:"default:false;index" json:"revoked"`
	RevokedReason string     `gorm:"type:varchar(50)" json:"revoked_reason,omitempty"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// Usable reports whether the session may still authenticate a rotation.
func (s *RefreshSession) Usable(now time.Time) bool {
	return !s.Consumed && !s.Revoked && now.Before(s.ExpiresAt)
}
