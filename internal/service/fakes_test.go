package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sandeepkv93/secure-session-auth-service/internal/domain"
	"github.com/sandeepkv93/secure-session-auth-service/internal/repository"
	"github.com/sandeepkv93/secure-session-auth-service/internal/security"
)

var errStorageDown = errors.New("connection refused")

type inMemoryUserRepo struct {
	mu            sync.Mutex
	byID          map[uuid.UUID]*domain.User
	existsBarrier *sync.WaitGroup
	failWith      error
}

func newInMemoryUserRepo() *inMemoryUserRepo {
	return &inMemoryUserRepo{byID: map[uuid.UUID]*domain.User{}}
}

func (r *inMemoryUserRepo) Create(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	for _, existing := range r.byID {
		if existing.Email == u.Email {
			return repository.ErrDuplicateEmail
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	cp := *u
	cp.CreatedAt = time.Now().UTC()
	r.byID[cp.ID] = &cp
	return nil
}

func (r *inMemoryUserRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	u, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *inMemoryUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	for _, u := range r.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *inMemoryUserRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.mu.Lock()
	if r.failWith != nil {
		r.mu.Unlock()
		return false, r.failWith
	}
	exists := false
	for _, u := range r.byID {
		if u.Email == email {
			exists = true
			break
		}
	}
	barrier := r.existsBarrier
	r.mu.Unlock()
	if barrier != nil {
		barrier.Done()
		barrier.Wait()
	}
	return exists, nil
}

func (r *inMemoryUserRepo) ListPaged(_ context.Context, q repository.UserListQuery) (repository.PageResult[domain.User], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return repository.PageResult[domain.User]{}, r.failWith
	}
	var all []domain.User
	for _, u := range r.byID {
		if q.Email != "" && !strings.HasPrefix(u.Email, q.Email) {
			continue
		}
		if q.Status != nil && u.Status != *q.Status {
			continue
		}
		all = append(all, *u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Email < all[j].Email })
	return repository.PageResult[domain.User]{Items: all, Page: 1, PageSize: len(all), Total: int64(len(all)), TotalPages: 1}, nil
}

func (r *inMemoryUserRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return 0, r.failWith
	}
	return int64(len(r.byID)), nil
}

func (r *inMemoryUserRepo) UpdateStatus(_ context.Context, id uuid.UUID, status bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	u, ok := r.byID[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.Status = status
	return nil
}

func (r *inMemoryUserRepo) status(id uuid.UUID) (domain.User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return domain.User{}, false
	}
	return *u, true
}

// inMemorySessionRepo mirrors the gorm store, including the join on the
// owner's status.
type inMemorySessionRepo struct {
	mu       sync.Mutex
	users    *inMemoryUserRepo
	byID     map[uuid.UUID]*domain.Session
	writes   int
	failWith error
}

func newInMemorySessionRepo(users *inMemoryUserRepo) *inMemorySessionRepo {
	return &inMemorySessionRepo{users: users, byID: map[uuid.UUID]*domain.Session{}}
}

func (r *inMemorySessionRepo) Create(_ context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	cp := *s
	now := time.Now().UTC()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	r.byID[cp.ID] = &cp
	r.writes++
	return nil
}

func (r *inMemorySessionRepo) findActive(match func(*domain.Session) bool) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	var best *domain.Session
	for _, s := range r.byID {
		if s.Revoked || !match(s) {
			continue
		}
		if best == nil || s.CreatedAt.After(best.CreatedAt) {
			best = s
		}
	}
	if best == nil {
		return nil, repository.ErrSessionNotFound
	}
	owner, ok := r.users.status(best.UserID)
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	if !owner.Status {
		return nil, repository.ErrSessionOwnerInactive
	}
	cp := *best
	cp.User = owner
	return &cp, nil
}

func (r *inMemorySessionRepo) FindActiveByRefreshHash(_ context.Context, hash string) (*domain.Session, error) {
	return r.findActive(func(s *domain.Session) bool {
		return s.RefreshTokenHash != nil && *s.RefreshTokenHash == hash
	})
}

func (r *inMemorySessionRepo) FindActiveByUserAndAccessHash(_ context.Context, userID uuid.UUID, hash string) (*domain.Session, error) {
	return r.findActive(func(s *domain.Session) bool {
		return s.UserID == userID && s.AccessTokenHash == hash
	})
}

func (r *inMemorySessionRepo) ListActiveByUserID(_ context.Context, userID uuid.UUID) ([]domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	var out []domain.Session
	for _, s := range r.byID {
		if s.UserID == userID && !s.Revoked {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *inMemorySessionRepo) RotateAccessToken(_ context.Context, sessionID uuid.UUID, accessHash, ua, ip string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	s, ok := r.byID[sessionID]
	if !ok || s.Revoked {
		return repository.ErrSessionNotFound
	}
	s.AccessTokenHash = accessHash
	s.UserAgent = ua
	s.IP = ip
	s.UpdatedAt = time.Now().UTC()
	r.writes++
	return nil
}

func (r *inMemorySessionRepo) Revoke(_ context.Context, sessionID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return false, r.failWith
	}
	s, ok := r.byID[sessionID]
	if !ok || s.Revoked {
		return false, nil
	}
	s.Revoked = true
	r.writes++
	return true, nil
}

func (r *inMemorySessionRepo) RevokeAllForUser(_ context.Context, userID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return 0, r.failWith
	}
	var n int64
	for _, s := range r.byID {
		if s.UserID == userID && !s.Revoked {
			s.Revoked = true
			n++
		}
	}
	r.writes += int(n)
	return n, nil
}

func (r *inMemorySessionRepo) get(id uuid.UUID) domain.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.byID[id]
}

func (r *inMemorySessionRepo) writeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

type failingSecrets struct{}

func (failingSecrets) NewSecret() (string, error) { return "", errors.New("entropy unavailable") }

type authFixture struct {
	users    *inMemoryUserRepo
	sessions *inMemorySessionRepo
	cache    *InMemoryNegativeLookupCacheStore
	codec    *security.JWTManager
	fp       *security.Fingerprinter
	tokens   *TokenService
	auth     *AuthService
	userSvc  *UserService
}

func testAuthConfig() AuthConfig {
	return AuthConfig{
		AccessTokenTTL:      15 * time.Minute,
		RefreshTokenTTL:     24 * time.Hour,
		MaxFingerprintValue: 100_000_000,
		NegativeLookupTTL:   time.Minute,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestCodec(t *testing.T) *security.JWTManager {
	t.Helper()
	codec, err := security.NewJWTManager("iss", "aud", "abcdefghijklmnopqrstuvwxyz123456", "HS256")
	if err != nil {
		t.Fatalf("new jwt manager: %v", err)
	}
	return codec
}

func newTestHasher(t *testing.T) *security.PasswordHasher {
	t.Helper()
	h, err := security.NewPasswordHasher(4)
	if err != nil {
		t.Fatalf("new password hasher: %v", err)
	}
	return h
}

func newAuthFixture(t *testing.T, cfg AuthConfig) *authFixture {
	t.Helper()
	f := &authFixture{
		users: newInMemoryUserRepo(),
		cache: NewInMemoryNegativeLookupCacheStore(0),
		codec: newTestCodec(t),
		fp:    security.NewFingerprinter("salt-0123456789abcdef"),
	}
	f.sessions = newInMemorySessionRepo(f.users)
	logger := testLogger()
	f.tokens = NewTokenService(f.codec, f.fp, security.NewRandomSecretGenerator(), f.sessions, f.cache, cfg, logger)
	f.auth = NewAuthService(cfg, f.users, f.sessions, newTestHasher(t), f.tokens, nil, logger)
	f.userSvc = NewUserService(f.users, f.cache, logger)
	return f
}

func (f *authFixture) registerAndLogin(t *testing.T, email string) (*domain.User, domain.TokenPair) {
	t.Helper()
	ctx := context.Background()
	u, err := f.auth.Register(ctx, "Test User", email, "longpass1")
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	pair, err := f.auth.Authenticate(ctx, email, "longpass1", "test-agent", "127.0.0.1")
	if err != nil {
		t.Fatalf("authenticate %s: %v", email, err)
	}
	return u, pair
}
