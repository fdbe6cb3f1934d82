package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sandeepkv93/secure-session-auth-service/internal/repository"
)

type SessionView struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UserAgent string    `json:"user_agent"`
	IP        string    `json:"ip"`
	IsCurrent bool      `json:"is_current"`
}

type SessionService struct {
	sessionRepo repository.SessionRepository
}

func NewSessionService(sessionRepo repository.SessionRepository) *SessionService {
	return &SessionService{sessionRepo: sessionRepo}
}

func (s *SessionService) ListActiveSessions(ctx context.Context, userID, currentSessionID uuid.UUID) ([]SessionView, error) {
	sessions, err := s.sessionRepo.ListActiveByUserID(ctx, userID)
	if err != nil {
		return nil, storageError("list sessions", err)
	}
	views := make([]SessionView, 0, len(sessions))
	for _, session := range sessions {
		views = append(views, SessionView{
			ID:        session.ID,
			CreatedAt: session.CreatedAt,
			UpdatedAt: session.UpdatedAt,
			UserAgent: session.UserAgent,
			IP:        session.IP,
			IsCurrent: session.ID == currentSessionID,
		})
	}
	return views, nil
}

// RevokeSession revokes one session by id, independent of any sibling
// sessions of the same user.
func (s *SessionService) RevokeSession(ctx context.Context, sessionID uuid.UUID) (string, error) {
	changed, err := s.sessionRepo.Revoke(ctx, sessionID)
	if err != nil {
		return "", storageError("revoke session", err)
	}
	if !changed {
		return "already_revoked", nil
	}
	return "revoked", nil
}
