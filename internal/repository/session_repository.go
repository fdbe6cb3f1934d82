package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sandeepkv93/secure-session-auth-service/internal/domain"
	"github.com/sandeepkv93/secure-session-auth-service/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionOwnerInactive is a miss where a live session row matched but
	// its owner was inactive. It matches ErrSessionNotFound under errors.Is.
	ErrSessionOwnerInactive = fmt.Errorf("%w: owner inactive", ErrSessionNotFound)
)

// SessionRepository stores sessions keyed by token fingerprints. Each method
// is a single statement, so every mutation is atomic at the storage level.
type SessionRepository interface {
	Create(ctx context.Context, s *domain.Session) error
	FindActiveByRefreshHash(ctx context.Context, hash string) (*domain.Session, error)
	FindActiveByUserAndAccessHash(ctx context.Context, userID uuid.UUID, hash string) (*domain.Session, error)
	ListActiveByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Session, error)
	RotateAccessToken(ctx context.Context, sessionID uuid.UUID, accessHash, userAgent, ip string) error
	Revoke(ctx context.Context, sessionID uuid.UUID) (bool, error)
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

type GormSessionRepository struct{ db *gorm.DB }

func NewSessionRepository(db *gorm.DB) SessionRepository { return &GormSessionRepository{db: db} }

func (r *GormSessionRepository) Create(ctx context.Context, s *domain.Session) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(s).Error
	observability.RecordRepositoryOperation(ctx, "session", "create", outcome(err, nil))
	return err
}

// activeSessions selects usable sessions: not revoked and owned by an active
// user. The owning user is loaded through the same join.
func (r *GormSessionRepository) activeSessions(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		InnerJoins("User", r.db.Where(&domain.User{Status: true})).
		Where("sessions.revoked = ?", false)
}

func (r *GormSessionRepository) FindActiveByRefreshHash(ctx context.Context, hash string) (*domain.Session, error) {
	var s domain.Session
	err := r.activeSessions(ctx).
		Where("sessions.refresh_token_hash = ?", hash).
		Order("sessions.created_at DESC").
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = r.missCause(ctx, "refresh_token_hash = ?", hash)
	}
	return r.found(ctx, "find_active_by_refresh_hash", &s, err)
}

// FindActiveByUserAndAccessHash prefers the newest row when several could match.
func (r *GormSessionRepository) FindActiveByUserAndAccessHash(ctx context.Context, userID uuid.UUID, hash string) (*domain.Session, error) {
	var s domain.Session
	err := r.activeSessions(ctx).
		Where("sessions.user_id = ? AND sessions.access_token_hash = ?", userID, hash).
		Order("sessions.created_at DESC").
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = r.missCause(ctx, "user_id = ? AND access_token_hash = ?", userID, hash)
	}
	return r.found(ctx, "find_active_by_user_and_access_hash", &s, err)
}

// missCause tells a plain miss from one hidden by an inactive owner. Any live
// row matching cond after the joined lookup missed means the owner was
// inactive at that read.
func (r *GormSessionRepository) missCause(ctx context.Context, cond string, args ...any) error {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Session{}).
		Where("revoked = ?", false).
		Where(cond, args...).
		Count(&n).Error
	switch {
	case err != nil:
		return err
	case n > 0:
		return ErrSessionOwnerInactive
	default:
		return ErrSessionNotFound
	}
}

func (r *GormSessionRepository) found(ctx context.Context, op string, s *domain.Session, err error) (*domain.Session, error) {
	observability.RecordRepositoryOperation(ctx, "session", op, outcome(err, ErrSessionNotFound))
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *GormSessionRepository) ListActiveByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Session, error) {
	var sessions []domain.Session
	err := r.activeSessions(ctx).
		Where("sessions.user_id = ?", userID).
		Order("sessions.created_at DESC").
		Find(&sessions).Error
	observability.RecordRepositoryOperation(ctx, "session", "list_active_by_user_id", outcome(err, nil))
	return sessions, err
}

// RotateAccessToken swaps the access fingerprint and client metadata in one
// conditional update. A revoked or missing session yields ErrSessionNotFound.
func (r *GormSessionRepository) RotateAccessToken(ctx context.Context, sessionID uuid.UUID, accessHash, userAgent, ip string) error {
	res := r.db.WithContext(ctx).Model(&domain.Session{}).
		Where("id = ? AND revoked = ?", sessionID, false).
		Updates(map[string]any{
			"access_token_hash": accessHash,
			"user_agent":        userAgent,
			"ip":                ip,
			"updated_at":        time.Now().UTC(),
		})
	err := res.Error
	if err == nil && res.RowsAffected == 0 {
		err = ErrSessionNotFound
	}
	observability.RecordRepositoryOperation(ctx, "session", "rotate_access_token", outcome(err, ErrSessionNotFound))
	return err
}

// Revoke reports whether this call changed the row. Revoking an already
// revoked or unknown session succeeds with false.
func (r *GormSessionRepository) Revoke(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.Session{}).
		Where("id = ? AND revoked = ?", sessionID, false).
		Updates(map[string]any{"revoked": true, "updated_at": time.Now().UTC()})
	observability.RecordRepositoryOperation(ctx, "session", "revoke", outcome(res.Error, nil))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GormSessionRepository) RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.Session{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Updates(map[string]any{"revoked": true, "updated_at": time.Now().UTC()})
	observability.RecordRepositoryOperation(ctx, "session", "revoke_all_for_user", outcome(res.Error, nil))
	if res.Error != nil {
		return res.RowsAffected, res.Error
	}
	return res.RowsAffected, nil
}
