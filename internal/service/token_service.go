package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sandeepkv93/secure-session-auth-service/internal/domain"
	"github.com/sandeepkv93/secure-session-auth-service/internal/observability"
	"github.com/sandeepkv93/secure-session-auth-service/internal/repository"
	"github.com/sandeepkv93/secure-session-auth-service/internal/security"
)

const (
	accessMissNamespace  = "auth.access.miss"
	refreshMissNamespace = "auth.refresh.miss"
)

// TokenService mints envelopes around fresh opaque secrets and resolves
// presented envelopes back to their sessions through secret fingerprints.
type TokenService struct {
	codec        TokenCodec
	fingerprints TokenFingerprinter
	secrets      security.SecretGenerator
	sessionRepo  repository.SessionRepository
	missCache    NegativeLookupCacheStore
	missTTL      time.Duration
	accessTTL    time.Duration
	refreshTTL   time.Duration
	logger       *slog.Logger
}

func NewTokenService(
	codec TokenCodec,
	fingerprints TokenFingerprinter,
	secrets security.SecretGenerator,
	sessionRepo repository.SessionRepository,
	missCache NegativeLookupCacheStore,
	cfg AuthConfig,
	logger *slog.Logger,
) *TokenService {
	if missCache == nil {
		missCache = NewNoopNegativeLookupCacheStore()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenService{
		codec:        codec,
		fingerprints: fingerprints,
		secrets:      secrets,
		sessionRepo:  sessionRepo,
		missCache:    missCache,
		missTTL:      cfg.NegativeLookupTTL,
		accessTTL:    cfg.AccessTokenTTL,
		refreshTTL:   cfg.RefreshTokenTTL,
		logger:       logger.With("component", "token_service"),
	}
}

// Issue opens a new session for user and returns its token pair.
func (s *TokenService) Issue(ctx context.Context, user *domain.User, ua, ip string) (domain.TokenPair, *domain.Session, error) {
	access, accessSecret, err := s.mint(user.ID, security.PurposeAccess, s.accessTTL)
	if err != nil {
		return domain.TokenPair{}, nil, err
	}
	refresh, refreshSecret, err := s.mint(user.ID, security.PurposeRefresh, s.refreshTTL)
	if err != nil {
		return domain.TokenPair{}, nil, err
	}
	session := &domain.Session{
		ID:               uuid.New(),
		UserID:           user.ID,
		AccessTokenHash:  s.fingerprints.Fingerprint(accessSecret),
		RefreshTokenHash: ptr(s.fingerprints.Fingerprint(refreshSecret)),
		UserAgent:        ua,
		IP:               ip,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return domain.TokenPair{}, nil, storageError("create session", err)
	}
	return domain.TokenPair{AccessToken: access, RefreshToken: refresh}, session, nil
}

// Rotate swaps a new access secret into the session behind refreshToken. The
// refresh envelope is returned unchanged.
func (s *TokenService) Rotate(ctx context.Context, refreshToken, ua, ip string) (domain.TokenPair, *domain.Session, error) {
	claims, err := s.codec.Decode(refreshToken, security.PurposeRefresh)
	if err != nil {
		return domain.TokenPair{}, nil, decodeFailure(err)
	}
	userID, _ := claims.UserID()
	hash := s.fingerprints.Fingerprint(claims.Secret)

	session, err := s.lookup(ctx, refreshMissNamespace, hash, func() (*domain.Session, error) {
		return s.sessionRepo.FindActiveByRefreshHash(ctx, hash)
	})
	if err != nil {
		return domain.TokenPair{}, nil, err
	}
	if session.UserID != userID {
		return domain.TokenPair{}, nil, invalidToken("claim_mismatch", nil)
	}

	access, accessSecret, err := s.mint(userID, security.PurposeAccess, s.accessTTL)
	if err != nil {
		return domain.TokenPair{}, nil, err
	}
	accessHash := s.fingerprints.Fingerprint(accessSecret)
	if err := s.sessionRepo.RotateAccessToken(ctx, session.ID, accessHash, ua, ip); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return domain.TokenPair{}, nil, invalidToken("revoked", err)
		}
		return domain.TokenPair{}, nil, storageError("rotate access token", err)
	}
	session.AccessTokenHash = accessHash
	session.UserAgent = ua
	session.IP = ip
	return domain.TokenPair{AccessToken: access, RefreshToken: refreshToken}, session, nil
}

// Resolve maps an access envelope to its usable session, owner included.
func (s *TokenService) Resolve(ctx context.Context, accessToken string) (*domain.Session, error) {
	claims, err := s.codec.Decode(accessToken, security.PurposeAccess)
	if err != nil {
		return nil, decodeFailure(err)
	}
	return s.resolveClaims(ctx, claims)
}

// ResolveForLogout is Resolve without the expiry check, restricted to
// envelopes issued to userID.
func (s *TokenService) ResolveForLogout(ctx context.Context, userID uuid.UUID, accessToken string) (*domain.Session, error) {
	claims, err := s.codec.DecodeIgnoringExpiry(accessToken, security.PurposeAccess)
	if err != nil {
		return nil, decodeFailure(err)
	}
	if subject, _ := claims.UserID(); subject != userID {
		return nil, invalidToken("claim_mismatch", nil)
	}
	return s.resolveClaims(ctx, claims)
}

func (s *TokenService) resolveClaims(ctx context.Context, claims *security.Claims) (*domain.Session, error) {
	userID, _ := claims.UserID()
	hash := s.fingerprints.Fingerprint(claims.Secret)
	return s.lookup(ctx, accessMissNamespace, userID.String()+":"+hash, func() (*domain.Session, error) {
		return s.sessionRepo.FindActiveByUserAndAccessHash(ctx, userID, hash)
	})
}

// lookup consults the miss cache before storage. Only misses are cached, and
// not those caused by an inactive owner; cache failures fall through to
// storage.
func (s *TokenService) lookup(ctx context.Context, namespace, key string, find func() (*domain.Session, error)) (*domain.Session, error) {
	hit, err := s.missCache.Get(ctx, namespace, key)
	if err != nil {
		observability.RecordNegativeLookup(ctx, namespace, "error")
		s.logger.WarnContext(ctx, "negative lookup cache read failed", "namespace", namespace, "error", err)
	} else if hit {
		observability.RecordNegativeLookup(ctx, namespace, "hit")
		return nil, invalidToken("cached_miss", nil)
	}

	session, err := find()
	switch {
	case err == nil:
		return session, nil
	case errors.Is(err, repository.ErrSessionOwnerInactive):
		// Reactivation must make the session usable at once, so these
		// misses are never cached.
		observability.RecordNegativeLookup(ctx, namespace, "skip_inactive")
		return nil, invalidToken("not_found", err)
	case errors.Is(err, repository.ErrSessionNotFound):
		if cerr := s.missCache.Set(ctx, namespace, key, s.missTTL); cerr != nil {
			observability.RecordNegativeLookup(ctx, namespace, "error")
			s.logger.WarnContext(ctx, "negative lookup cache write failed", "namespace", namespace, "error", cerr)
		} else {
			observability.RecordNegativeLookup(ctx, namespace, "store")
		}
		return nil, invalidToken("not_found", err)
	default:
		return nil, storageError("find session", err)
	}
}

func (s *TokenService) mint(userID uuid.UUID, purpose string, ttl time.Duration) (string, string, error) {
	secret, err := s.secrets.NewSecret()
	if err != nil {
		return "", "", fmt.Errorf("generate %s secret: %w", purpose, err)
	}
	envelope, err := s.codec.Encode(security.TokenClaims{UserID: userID, Secret: secret, Purpose: purpose}, ttl)
	if err != nil {
		return "", "", fmt.Errorf("encode %s token: %w", purpose, err)
	}
	return envelope, secret, nil
}

func decodeFailure(err error) error {
	if errors.Is(err, security.ErrTokenExpired) {
		return invalidToken("expired", err)
	}
	return invalidToken("invalid", err)
}

func ptr[T any](v T) *T { return &v }
