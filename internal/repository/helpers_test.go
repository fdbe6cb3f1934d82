package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sandeepkv93/secure-session-auth-service/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func createUserForTest(t *testing.T, repo UserRepository, email string, status bool) *domain.User {
	t.Helper()
	u := &domain.User{
		Name:         "user " + email,
		Email:        email,
		PasswordHash: "$2a$04$placeholder",
		Role:         domain.RoleUser,
		Status:       true,
	}
	if err := repo.Create(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	if !status {
		if err := repo.UpdateStatus(context.Background(), u.ID, false); err != nil {
			t.Fatalf("deactivate user %s: %v", email, err)
		}
		u.Status = false
	}
	return u
}

func createSessionForTest(t *testing.T, repo SessionRepository, userID uuid.UUID, access, refresh string, createdAt time.Time) *domain.Session {
	t.Helper()
	s := &domain.Session{
		UserID:          userID,
		AccessTokenHash: access,
		UserAgent:       "test-agent",
		IP:              "127.0.0.1",
		CreatedAt:       createdAt,
	}
	if refresh != "" {
		s.RefreshTokenHash = strPtr(refresh)
	}
	if err := repo.Create(context.Background(), s); err != nil {
		t.Fatalf("create session: %v", err)
	}
	return s
}

func strPtr(v string) *string { return &v }
