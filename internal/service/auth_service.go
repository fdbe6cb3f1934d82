package service

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sandeepkv93/secure-session-auth-service/internal/config"
	"github.com/sandeepkv93/secure-session-auth-service/internal/domain"
	"github.com/sandeepkv93/secure-session-auth-service/internal/observability"
	"github.com/sandeepkv93/secure-session-auth-service/internal/repository"
	"github.com/sandeepkv93/secure-session-auth-service/internal/security"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	minPasswordLength = 8
	loginProvider     = "local"
)

var tracer = otel.Tracer("secure-session-auth-service/service")

// AuthConfig is the immutable subset of configuration the auth flows read.
type AuthConfig struct {
	AccessTokenTTL      time.Duration
	RefreshTokenTTL     time.Duration
	MaxFingerprintValue int64
	NegativeLookupTTL   time.Duration
}

func NewAuthConfig(cfg *config.Config) AuthConfig {
	ac := AuthConfig{
		AccessTokenTTL:      cfg.AccessTokenTTL,
		RefreshTokenTTL:     cfg.RefreshTokenTTL,
		MaxFingerprintValue: cfg.MaxFingerprintValue,
	}
	if cfg.NegativeLookupCacheEnabled {
		ac.NegativeLookupTTL = cfg.NegativeLookupCacheTTL
	}
	return ac
}

type AuthService struct {
	cfg         AuthConfig
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	hasher      CredentialHasher
	tokens      *TokenService
	events      UserEventPublisher
	logger      *slog.Logger
}

func NewAuthService(
	cfg AuthConfig,
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	hasher CredentialHasher,
	tokens *TokenService,
	events UserEventPublisher,
	logger *slog.Logger,
) *AuthService {
	if events == nil {
		events = NoopUserEventPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		cfg:         cfg,
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		hasher:      hasher,
		tokens:      tokens,
		events:      events,
		logger:      logger.With("component", "auth_service"),
	}
}

func (s *AuthService) Register(ctx context.Context, name, email, password string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "auth.register")
	defer span.End()

	user, err := s.register(ctx, name, email, password)
	observability.RecordAuthRegister(ctx, statusOf(err))
	finishSpan(span, err)
	return user, err
}

func (s *AuthService) register(ctx context.Context, name, email, password string) (*domain.User, error) {
	if err := validateRegistration(name, email, password); err != nil {
		return nil, err
	}

	exists, err := s.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, storageError("check email", err)
	}
	if exists {
		return nil, ErrDuplicateUser
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	fingerprint, err := security.RandomFingerprintValue(s.cfg.MaxFingerprintValue)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Fingerprint:  fingerprint,
		Role:         domain.RoleUser,
		Status:       true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrDuplicateUser
		}
		return nil, storageError("create user", err)
	}

	if err := s.events.PublishUserRegistered(ctx, newUserRegisteredEvent(user)); err != nil {
		s.logger.WarnContext(ctx, "publish user registered event failed", "user_id", user.ID, "error", err)
	}
	observability.Audit(ctx, s.logger, "user.registered", "user_id", user.ID)
	return sanitizeUser(user), nil
}

func validateRegistration(name, email, password string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: "name", Message: "must not be empty"}
	}
	if strings.TrimSpace(email) == "" {
		return &ValidationError{Field: "email", Message: "must not be empty"}
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !hasDottedDomain(email) {
		return &ValidationError{Field: "email", Message: "is not a valid address"}
	}
	if password == "" {
		return &ValidationError{Field: "password", Message: "must not be empty"}
	}
	if len(password) < minPasswordLength {
		return &ValidationError{Field: "password", Message: "must be at least 8 characters"}
	}
	if len(password) > security.MaxPasswordBytes {
		return &ValidationError{Field: "password", Message: "must be at most 72 bytes"}
	}
	return nil
}

// hasDottedDomain requires a domain of at least two non-empty labels, which
// net/mail does not.
func hasDottedDomain(email string) bool {
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return false
	}
	labels := strings.Split(email[at+1:], ".")
	if len(labels) < 2 {
		return false
	}
	for _, l := range labels {
		if l == "" {
			return false
		}
	}
	return true
}

func (s *AuthService) Authenticate(ctx context.Context, email, password, userAgent, ip string) (domain.TokenPair, error) {
	ctx, span := tracer.Start(ctx, "auth.authenticate")
	defer span.End()

	pair, err := s.authenticate(ctx, email, password, userAgent, ip)
	observability.RecordAuthLogin(ctx, loginProvider, statusOf(err))
	finishSpan(span, err)
	return pair, err
}

func (s *AuthService) authenticate(ctx context.Context, email, password, userAgent, ip string) (domain.TokenPair, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.hasher.VerifyDummy(password)
			s.logger.InfoContext(ctx, "authentication rejected", "reason", "unknown_email")
			return domain.TokenPair{}, ErrInvalidCredentials
		}
		return domain.TokenPair{}, storageError("find user", err)
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		s.logger.InfoContext(ctx, "authentication rejected", "reason", "bad_password", "user_id", user.ID)
		return domain.TokenPair{}, ErrInvalidCredentials
	}
	if !user.Status {
		s.logger.InfoContext(ctx, "authentication rejected", "reason", "inactive", "user_id", user.ID)
		return domain.TokenPair{}, ErrInvalidCredentials
	}

	pair, session, err := s.tokens.Issue(ctx, user, userAgent, ip)
	if err != nil {
		return domain.TokenPair{}, err
	}
	observability.Audit(ctx, s.logger, "session.created", "user_id", user.ID, "session_id", session.ID, "ip", ip)
	return pair, nil
}

func (s *AuthService) RefreshAccessToken(ctx context.Context, refreshToken, userAgent, ip string) (domain.TokenPair, error) {
	ctx, span := tracer.Start(ctx, "auth.refresh")
	defer span.End()

	pair, session, err := s.tokens.Rotate(ctx, refreshToken, userAgent, ip)
	observability.RecordAuthRefresh(ctx, statusOf(err))
	finishSpan(span, err)
	if err != nil {
		s.logTokenFailure(ctx, "refresh", err)
		return domain.TokenPair{}, err
	}
	span.SetAttributes(attribute.String("session.id", session.ID.String()))
	return pair, nil
}

// RevokeSession logs out the session behind accessToken. Envelopes that no
// longer resolve are treated as already logged out.
func (s *AuthService) RevokeSession(ctx context.Context, userID uuid.UUID, accessToken string) error {
	ctx, span := tracer.Start(ctx, "auth.revoke_session")
	defer span.End()

	err := s.revokeSession(ctx, userID, accessToken)
	observability.RecordAuthLogout(ctx, statusOf(err))
	finishSpan(span, err)
	return err
}

func (s *AuthService) revokeSession(ctx context.Context, userID uuid.UUID, accessToken string) error {
	session, err := s.tokens.ResolveForLogout(ctx, userID, accessToken)
	if err != nil {
		if errors.Is(err, ErrInvalidOrExpiredToken) {
			s.logger.DebugContext(ctx, "logout without resolvable session", "user_id", userID, "reason", TokenFailureReason(err))
			return nil
		}
		return err
	}
	changed, err := s.sessionRepo.Revoke(ctx, session.ID)
	if err != nil {
		return storageError("revoke session", err)
	}
	if changed {
		observability.Audit(ctx, s.logger, "session.revoked", "user_id", userID, "session_id", session.ID)
	}
	return nil
}

// RevokeAllSessions signs the user out everywhere.
func (s *AuthService) RevokeAllSessions(ctx context.Context, userID uuid.UUID) (int64, error) {
	ctx, span := tracer.Start(ctx, "auth.revoke_all_sessions", trace.WithAttributes(attribute.String("user.id", userID.String())))
	defer span.End()

	n, err := s.sessionRepo.RevokeAllForUser(ctx, userID)
	if err != nil {
		err = storageError("revoke all sessions", err)
	}
	observability.RecordAuthLogout(ctx, statusOf(err))
	finishSpan(span, err)
	if err != nil {
		return 0, err
	}
	observability.Audit(ctx, s.logger, "session.revoked_all", "user_id", userID, "count", n)
	return n, nil
}

func (s *AuthService) VerifyRequest(ctx context.Context, accessToken string) (domain.AuthenticatedIdentity, error) {
	ctx, span := tracer.Start(ctx, "auth.verify_request")
	defer span.End()

	session, err := s.tokens.Resolve(ctx, accessToken)
	finishSpan(span, err)
	if err != nil {
		observability.RecordAuthVerify(ctx, "failure", verifyReason(err))
		s.logTokenFailure(ctx, "verify", err)
		return domain.AuthenticatedIdentity{}, err
	}
	observability.RecordAuthVerify(ctx, "success", "none")
	u := session.User
	return domain.AuthenticatedIdentity{
		UserID:    u.ID,
		SessionID: session.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		Status:    u.Status,
	}, nil
}

func (s *AuthService) logTokenFailure(ctx context.Context, op string, err error) {
	reason := TokenFailureReason(err)
	switch reason {
	case "":
		s.logger.ErrorContext(ctx, "token "+op+" failed", "error", err)
	case "expired":
		s.logger.InfoContext(ctx, "token "+op+" rejected", "reason", reason)
	default:
		s.logger.WarnContext(ctx, "token "+op+" rejected", "reason", reason)
	}
}

func verifyReason(err error) string {
	if r := TokenFailureReason(err); r != "" {
		return r
	}
	return ErrorKind(err)
}

func finishSpan(span trace.Span, err error) {
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	span.SetAttributes(attribute.String("auth.error_kind", ErrorKind(err)))
	if errors.Is(err, ErrStorage) {
		span.RecordError(err)
	}
	span.SetStatus(codes.Error, ErrorKind(err))
}

func sanitizeUser(u *domain.User) *domain.User {
	out := *u
	out.PasswordHash = ""
	return &out
}
