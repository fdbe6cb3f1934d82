package authctl

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sandeepkv93/secure-session-auth-service/internal/service"
	"github.com/sandeepkv93/secure-session-auth-service/internal/tools/common"
)

func setTestEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "abcdefghijklmnopqrstuvwxyz123456")
	t.Setenv("SESSION_SALT", "salt-0123456789abcdef")
	t.Setenv("BCRYPT_COST", "4")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", filepath.Join(t.TempDir(), "auth.db"))
	t.Setenv("DB_MIN_CONNS", "1")
	t.Setenv("DB_MAX_CONNS", "1")
	t.Setenv("LOG_LEVEL", "error")
}

func runCLI(t *testing.T, args ...string) (common.CIResult, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand(&out)
	cmd.SetArgs(append([]string{"--ci", "--env-file", filepath.Join(t.TempDir(), "none.env")}, args...))
	err := cmd.Execute()

	var res common.CIResult
	if jerr := json.Unmarshal(out.Bytes(), &res); jerr != nil {
		t.Fatalf("decode output of %v: %v (%q)", args, jerr, out.String())
	}
	return res, err
}

func detail(t *testing.T, res common.CIResult, key string) string {
	t.Helper()
	for _, d := range res.Details {
		if v, ok := strings.CutPrefix(d, key+"="); ok {
			return v
		}
	}
	t.Fatalf("missing %s in %v", key, res.Details)
	return ""
}

func TestCLISessionLifecycle(t *testing.T) {
	setTestEnv(t)

	if res, err := runCLI(t, "migrate"); err != nil || !res.OK {
		t.Fatalf("migrate: %v %+v", err, res)
	}
	res, err := runCLI(t, "register", "--name", "Ana", "--email", "ana@example.com", "--password", "s3cretpass")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	userID := detail(t, res, "user_id")

	res, err = runCLI(t, "register", "--name", "Ana", "--email", "ana@example.com", "--password", "s3cretpass")
	if !errors.Is(err, service.ErrDuplicateUser) || res.OK || ExitCode(err) != 2 {
		t.Fatalf("expected duplicate user, got %v %+v", err, res)
	}

	res, err = runCLI(t, "login", "--email", "ana@example.com", "--password", "s3cretpass")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	access := detail(t, res, "access_token")
	refresh := detail(t, res, "refresh_token")

	res, err = runCLI(t, "verify", "--access-token", access)
	if err != nil || detail(t, res, "user_id") != userID {
		t.Fatalf("verify: %v %+v", err, res)
	}

	res, err = runCLI(t, "refresh", "--refresh-token", refresh)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	access = detail(t, res, "access_token")

	if res, err = runCLI(t, "sessions", "--user-id", userID); err != nil || detail(t, res, "active") != "1" {
		t.Fatalf("sessions: %v %+v", err, res)
	}
	if res, err = runCLI(t, "users", "list", "--status", "active"); err != nil || len(res.Details) != 2 {
		t.Fatalf("users list: %v %+v", err, res)
	}
	if res, err = runCLI(t, "health"); err != nil || !res.OK {
		t.Fatalf("health: %v %+v", err, res)
	}

	if _, err := runCLI(t, "users", "set-status", "--user-id", userID, "--active=false"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := runCLI(t, "verify", "--access-token", access); ExitCode(err) != 3 {
		t.Fatalf("expected token rejection for inactive user, got %v", err)
	}
	if _, err := runCLI(t, "users", "set-status", "--user-id", userID, "--active=true"); err != nil {
		t.Fatalf("reactivate: %v", err)
	}

	if _, err := runCLI(t, "logout", "--user-id", userID, "--access-token", access); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := runCLI(t, "logout", "--user-id", userID, "--access-token", access); err != nil {
		t.Fatalf("second logout: %v", err)
	}
	if res, err = runCLI(t, "revoke-all", "--user-id", userID); err != nil || detail(t, res, "revoked") != "0" {
		t.Fatalf("revoke-all: %v %+v", err, res)
	}
}

func TestCLIReportsConfigErrors(t *testing.T) {
	setTestEnv(t)
	t.Setenv("JWT_SECRET", "short")

	res, err := runCLI(t, "health")
	if err == nil || res.OK || !strings.Contains(res.Error, "JWT_SECRET") {
		t.Fatalf("expected config error, got %v %+v", err, res)
	}
	if ExitCode(err) != 1 {
		t.Fatalf("exit code = %d", ExitCode(err))
	}
}

func TestCLIRejectsBadUserID(t *testing.T) {
	setTestEnv(t)
	if _, err := runCLI(t, "migrate"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	_, err := runCLI(t, "revoke-all", "--user-id", "not-a-uuid")
	if !errors.Is(err, service.ErrValidation) || ExitCode(err) != 2 {
		t.Fatalf("expected validation error, got %v", err)
	}
}
