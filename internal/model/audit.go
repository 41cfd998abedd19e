package model

import (
	"time"

	"github.com/google/uuid"
)

// Security audit actions. ReplayDetected is the only one that carries a
// side effect beyond the failing request (cascading session revocation)
// and must be distinguishable from ordinary authentication failures.
const (
	ActionLoginSuccess    = "LOGIN_SUCCESS"
	ActionLoginFailed     = "LOGIN_FAILED"
	ActionTokenRefreshed  = "TOKEN_REFRESHED"
	ActionReplayDetected  = "REPLAY_DETECTED"
	ActionSessionsRevoked = "SESSIONS_REVOKED"
)

// AuditLog tracks Who, What, and When for security-relevant events
type AuditLog struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable when the subject is unknown (e.g. bad email)
	User      *User      `gorm:"foreignKey:UserID" json:"user"`
	Action    string     `gorm:"type:varchar(50);not null;index" json:"action"`
	Details   string     `gorm:"type:jsonb" json:"details"` // Serialized JSON payload of the event
	ClientIP  string     `gorm:"type:varchar(64)" json:"client_ip"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
}
