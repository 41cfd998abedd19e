package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"fleetgate/internal/model"
	"fleetgate/internal/repository"
	"fleetgate/internal/websocket"

	"github.com/google/uuid"
)

type SecurityEventResponse struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Action    string `json:"action"`
	Details   string `json:"details"`
	CreatedAt string `json:"created_at"`
}

// AuditService records security-relevant events (logins, rotations,
// replays, revocations) and exposes them paginated. Recording is
// best-effort: a failed audit write never fails the caller's request.
type AuditService interface {
	Record(ctx context.Context, action string, userID *uuid.UUID, details string)
	ListSecurityEvents(ctx context.Context, page, limit int) ([]SecurityEventResponse, int64, error)
}

type auditService struct {
	repo repository.AuditRepository
	hub  *websocket.Hub
}

// NewAuditService creates a new AuditService instance. hub may be nil
// when live alerts are not wired (e.g. in tests).
func NewAuditService(repo repository.AuditRepository, hub *websocket.Hub) AuditService {
	return &auditService{repo: repo, hub: hub}
}

func (s *auditService) Record(ctx context.Context, action string, userID *uuid.UUID, details string) {
	entry := &model.AuditLog{
		UserID:  userID,
		Action:  action,
		Details: details,
	}
	if err := s.repo.Log(ctx, entry); err != nil {
		log.Printf("failed to record audit event %s: %v", action, err)
	}

	if s.hub != nil {
		userIDStr := ""
		if userID != nil {
			userIDStr = userID.String()
		}
		payload, err := json.Marshal(map[string]interface{}{
			"action":  action,
			"user_id": userIDStr,
			"details": details,
			"at":      time.Now().Format(time.RFC3339),
		})
		if err == nil {
			s.hub.Publish(payload)
		}
	}
}

func (s *auditService) ListSecurityEvents(ctx context.Context, page, limit int) ([]SecurityEventResponse, int64, error) {
	logs, total, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}

	res := make([]SecurityEventResponse, 0, len(logs))
	for _, l := range logs {
		username := ""
		userID := ""
		if l.User != nil {
			username = l.User.Username
		}
		if l.UserID != nil {
			userID = l.UserID.String()
		}

		res = append(res, SecurityEventResponse{
			ID:        l.ID.String(),
			UserID:    userID,
			Username:  username,
			Action:    l.Action,
			Details:   l.Details,
			CreatedAt: l.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	return res, total, nil
}
