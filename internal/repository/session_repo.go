package repository

import (
	"context"
	"errors"

	"fleetgate/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrSessionConsumed is returned by Consume when the conditional update
// matches no row, i.e. the session was already rotated or revoked.
var ErrSessionConsumed = errors.New("refresh session already consumed")

// SessionRepository persists refresh-token session state. Consume is the
// atomic compare-and-set that makes token rotation race-safe: of two
// concurrent rotations presenting the same token, exactly one succeeds.
type SessionRepository interface {
	Create(ctx context.Context, session *model.RefreshSession) error
	GetByTokenHash(ctx context.Context, hash string) (*model.RefreshSession, error)
	Consume(ctx context.Context, id uuid.UUID) error
	RevokeAllForUser(ctx context.Context, userID uuid.UUID, reason string) error
}

type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository returns a new instance of SessionRepository
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(ctx context.Context, session *model.RefreshSession) error {
	return GetDB(ctx, r.db).Create(session).Error
}

func (r *sessionRepository) GetByTokenHash(ctx context.Context, hash string) (*model.RefreshSession, error) {
	var session model.RefreshSession
	if err := GetDB(ctx, r.db).First(&session, "token_hash = ?", hash).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// Consume marks the session consumed only if it is still usable. The
// WHERE clause is the compare half of the compare-and-set; RowsAffected
// tells us whether this caller won the race.
func (r *sessionRepository) Consume(ctx context.Context, id uuid.UUID) error {
	res := GetDB(ctx, r.db).Model(&model.RefreshSession{}).
		Where("id = ? AND consumed = ? AND revoked = ?", id, false, false).
		Update("consumed", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSessionConsumed
	}
	return nil
}

func (r *sessionRepository) RevokeAllForUser(ctx context.Context, userID uuid.UUID, reason string) error {
	return GetDB(ctx, r.db).Model(&model.RefreshSession{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Updates(map[string]interface{}{"revoked": true, "revoked_reason": reason}).Error
}
