package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"fleetgate/internal/model"
	"fleetgate/internal/repository"
	"fleetgate/pkg/apperr"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Subject is the authenticated principal derived from a verified access
// token. It is never persisted separately from the token's claims.
type Subject struct {
	ID     uuid.UUID `json:"id"`
	Email  string    `json:"email"`
	Roles  []string  `json:"roles"`
	TeamID string    `json:"team_id,omitempty"`
}

// HasRole reports whether the subject holds the named role.
func (s *Subject) HasRole(name string) bool {
	for _, r := range s.Roles {
		if r == name {
			return true
		}
	}
	return false
}

// TokenPair is the credential pair returned on login and refresh
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// accessClaims are the JWT claims carried by an access token
type accessClaims struct {
	jwt.RegisteredClaims
	Email  string   `json:"email"`
	Roles  []string `json:"roles"`
	TeamID string   `json:"team_id,omitempty"`
}

// TokenService issues, verifies and rotates credentials. Verify is the
// stateless fast path: an access token stays valid until its own expiry
// even if the owning refresh session is revoked, so the access TTL bounds
// the revocation delay.
type TokenService interface {
	Issue(ctx context.Context, email, password string) (*TokenPair, error)
	Verify(accessToken string) (*Subject, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	RevokeAll(ctx context.Context, subjectID uuid.UUID, reason string) error
}

type tokenService struct {
	users      repository.UserRepository
	sessions   repository.SessionRepository
	txManager  repository.TransactionManager
	audit      AuditService
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenService returns a new instance of TokenService
func NewTokenService(
	users repository.UserRepository,
	sessions repository.SessionRepository,
	txManager repository.TransactionManager,
	audit AuditService,
	secret []byte,
	accessTTL, refreshTTL time.Duration,
) TokenService {
	return &tokenService{
		users:      users,
		sessions:   sessions,
		txManager:  txManager,
		audit:      audit,
		secret:     secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

func (s *tokenService) Issue(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		// Unknown email and wrong password are indistinguishable to the caller
		s.audit.Record(ctx, model.ActionLoginFailed, nil, fmt.Sprintf(`{"email":%q}`, email))
		return nil, apperr.ErrInvalidCredentials
	}

	if !user.Active {
		s.audit.Record(ctx, model.ActionLoginFailed, &user.ID, `{"reason":"inactive"}`)
		return nil, apperr.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		s.audit.Record(ctx, model.ActionLoginFailed, &user.ID, `{"reason":"password mismatch"}`)
		return nil, apperr.ErrInvalidCredentials
	}

	pair, err := s.mint(ctx, user, nil)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, model.ActionLoginSuccess, &user.ID, "")
	return pair, nil
}

func (s *tokenService) Verify(accessToken string) (*Subject, error) {
	claims := &accessClaims{}
	token, err := jwt.ParseWithClaims(accessToken, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.ErrTokenExpired
		}
		return nil, apperr.ErrInvalidToken
	}
	if !token.Valid {
		return nil, apperr.ErrInvalidToken
	}

	subjectID, err := uuid.Parse(claims.Subject)
	if err != nil || claims.Email == "" {
		return nil, apperr.ErrInvalidToken
	}

	return &Subject{
		ID:     subjectID,
		Email:  claims.Email,
		Roles:  claims.Roles,
		TeamID: claims.TeamID,
	}, nil
}

func (s *tokenService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	session, err := s.sessions.GetByTokenHash(ctx, hashToken(refreshToken))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrInvalidToken
		}
		return nil, err
	}

	if session.Consumed || session.Revoked {
		return nil, s.handleReplay(ctx, session)
	}
	if !time.Now().Before(session.ExpiresAt) {
		return nil, apperr.ErrInvalidToken
	}

	var pair *TokenPair
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		// Conditional update: of two rotations racing on this token,
		// exactly one gets past this line.
		if err := s.sessions.Consume(txCtx, session.ID); err != nil {
			return err
		}
		user, err := s.users.GetByID(txCtx, session.UserID.String())
		if err != nil {
			return err
		}
		pair, err = s.mint(txCtx, user, &session.ID)
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrSessionConsumed) {
			return nil, s.handleReplay(ctx, session)
		}
		return nil, err
	}

	s.audit.Record(ctx, model.ActionTokenRefreshed, &session.UserID, "")
	return pair, nil
}

// handleReplay treats presentation of a consumed token as theft: every
// session of the owning subject is revoked, forcing a full re-login.
func (s *tokenService) handleReplay(ctx context.Context, session *model.RefreshSession) error {
	log.Printf("SECURITY: refresh token replay detected for user %s (session %s), revoking all sessions", session.UserID, session.ID)

	if err := s.RevokeAll(ctx, session.UserID, model.RevokeReasonReplay); err != nil {
		log.Printf("SECURITY: failed to revoke sessions after replay for user %s: %v", session.UserID, err)
	}
	s.audit.Record(ctx, model.ActionReplayDetected, &session.UserID, fmt.Sprintf(`{"session_id":%q}`, session.ID))
	return apperr.ErrReplayDetected
}

func (s *tokenService) RevokeAll(ctx context.Context, subjectID uuid.UUID, reason string) error {
	if err := s.sessions.RevokeAllForUser(ctx, subjectID, reason); err != nil {
		return err
	}
	s.audit.Record(ctx, model.ActionSessionsRevoked, &subjectID, fmt.Sprintf(`{"reason":%q}`, reason))
	return nil
}

// mint creates a refresh session row and signs a matching access token.
// rotatedFrom links the new session to the one it replaces.
func (s *tokenService) mint(ctx context.Context, user *model.User, rotatedFrom *uuid.UUID) (*TokenPair, error) {
	opaque, err := generateOpaqueToken()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	session := &model.RefreshSession{
		UserID:      user.ID,
		TokenHash:   hashToken(opaque),
		IssuedAt:    now,
		ExpiresAt:   now.Add(s.refreshTTL),
		RotatedFrom: rotatedFrom,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
		Email: user.Email,
		Roles: user.RoleNames(),
	}
	if user.TeamID != nil {
		claims.TeamID = user.TeamID.String()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	return &TokenPair{AccessToken: signed, RefreshToken: opaque}, nil
}

// generateOpaqueToken returns 32 bytes of cryptographic randomness,
// base64url-encoded. Only its hash ever reaches the database.
func generateOpaqueToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
