package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sandeepkv93/secure-session-auth-service/internal/domain"
	"github.com/sandeepkv93/secure-session-auth-service/internal/repository"
	"github.com/sandeepkv93/secure-session-auth-service/internal/security"
)

type AuthServiceInterface interface {
	Register(ctx context.Context, name, email, password string) (*domain.User, error)
	Authenticate(ctx context.Context, email, password, userAgent, ip string) (domain.TokenPair, error)
	RefreshAccessToken(ctx context.Context, refreshToken, userAgent, ip string) (domain.TokenPair, error)
	RevokeSession(ctx context.Context, userID uuid.UUID, accessToken string) error
	RevokeAllSessions(ctx context.Context, userID uuid.UUID) (int64, error)
	VerifyRequest(ctx context.Context, accessToken string) (domain.AuthenticatedIdentity, error)
}

type UserServiceInterface interface {
	List(ctx context.Context, query repository.UserListQuery) (repository.PageResult[domain.User], error)
	Count(ctx context.Context) (int64, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.User, error)
	SetStatus(ctx context.Context, id uuid.UUID, status bool) error
}

type CredentialHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
	VerifyDummy(password string)
}

type TokenCodec interface {
	Encode(tc security.TokenClaims, ttl time.Duration) (string, error)
	Decode(raw, purpose string) (*security.Claims, error)
	DecodeIgnoringExpiry(raw, purpose string) (*security.Claims, error)
}

type TokenFingerprinter interface {
	Fingerprint(secret string) string
}
