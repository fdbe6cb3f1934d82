package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/sandeepkv93/secure-session-auth-service/internal/domain"
	"github.com/sandeepkv93/secure-session-auth-service/internal/observability"
	"github.com/sandeepkv93/secure-session-auth-service/internal/repository"
)

var ErrUserNotFound = errors.New("user not found")

// UserService backs the user directory and admin status changes.
type UserService struct {
	userRepo  repository.UserRepository
	missCache NegativeLookupCacheStore
	logger    *slog.Logger
}

func NewUserService(userRepo repository.UserRepository, missCache NegativeLookupCacheStore, logger *slog.Logger) *UserService {
	if missCache == nil {
		missCache = NewNoopNegativeLookupCacheStore()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{userRepo: userRepo, missCache: missCache, logger: logger.With("component", "user_service")}
}

func (s *UserService) List(ctx context.Context, query repository.UserListQuery) (repository.PageResult[domain.User], error) {
	page, err := s.userRepo.ListPaged(ctx, query)
	if err != nil {
		return repository.PageResult[domain.User]{}, storageError("list users", err)
	}
	for i := range page.Items {
		page.Items[i].PasswordHash = ""
	}
	return page, nil
}

func (s *UserService) Count(ctx context.Context) (int64, error) {
	n, err := s.userRepo.Count(ctx)
	if err != nil {
		return 0, storageError("count users", err)
	}
	return n, nil
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	u, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storageError("find user", err)
	}
	return sanitizeUser(u), nil
}

// SetStatus activates or deactivates a user. Deactivation takes effect on the
// next session lookup; no session rows are written.
func (s *UserService) SetStatus(ctx context.Context, id uuid.UUID, status bool) error {
	if err := s.userRepo.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return storageError("update user status", err)
	}
	if status {
		s.dropMisses(ctx)
	}
	observability.Audit(ctx, s.logger, "user.status_changed", "user_id", id, "status", status)
	return nil
}

// missCounter is implemented by miss stores that can report live entries.
type missCounter interface {
	Count(ctx context.Context, namespace string) (int64, error)
}

// dropMisses clears both miss namespaces after a reactivation. Lookups never
// cache an inactive-owner miss, so this only sweeps plain misses that could
// predate the status change.
func (s *UserService) dropMisses(ctx context.Context) {
	counter, _ := s.missCache.(missCounter)
	for _, ns := range []string{accessMissNamespace, refreshMissNamespace} {
		var dropped int64
		if counter != nil {
			dropped, _ = counter.Count(ctx, ns)
		}
		if err := s.missCache.InvalidateNamespace(ctx, ns); err != nil {
			observability.RecordNegativeLookup(ctx, ns, "error")
			s.logger.WarnContext(ctx, "invalidate negative lookup cache failed", "namespace", ns, "error", err)
			continue
		}
		observability.RecordNegativeLookup(ctx, ns, "invalidate")
		s.logger.DebugContext(ctx, "negative lookup namespace cleared", "namespace", ns, "dropped", dropped)
	}
}
