package authctl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sandeepkv93/secure-session-auth-service/internal/app"
	"github.com/sandeepkv93/secure-session-auth-service/internal/config"
	"github.com/sandeepkv93/secure-session-auth-service/internal/di"
	"github.com/sandeepkv93/secure-session-auth-service/internal/service"
	"github.com/sandeepkv93/secure-session-auth-service/internal/tools/common"
	"github.com/sandeepkv93/secure-session-auth-service/internal/tools/ui"
)

type options struct {
	ci        bool
	envFile   string
	timeout   time.Duration
	userAgent string
	ip        string
	out       io.Writer
}

// NewRootCommand builds authctl. Output goes to out, which defaults to stdout.
func NewRootCommand(out io.Writer) *cobra.Command {
	if out == nil {
		out = os.Stdout
	}
	opts := &options{out: out}
	cmd := &cobra.Command{
		Use:           "authctl",
		Short:         "Operate the session authentication service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(out)
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before the environment is read")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "per-command deadline")
	cmd.PersistentFlags().StringVar(&opts.userAgent, "user-agent", "authctl", "client user agent recorded on sessions")
	cmd.PersistentFlags().StringVar(&opts.ip, "ip", "127.0.0.1", "client address recorded on sessions")

	cmd.AddCommand(
		newMigrateCommand(opts),
		newRegisterCommand(opts),
		newLoginCommand(opts),
		newRefreshCommand(opts),
		newVerifyCommand(opts),
		newLogoutCommand(opts),
		newRevokeAllCommand(opts),
		newSessionsCommand(opts),
		newUsersCommand(opts),
		newHealthCommand(opts),
		newLoadgenCommand(opts),
	)
	return cmd
}

type action func(ctx context.Context, a *app.App) ([]string, error)

// execute wires the app for one command, runs fn and reports the outcome in
// the requested output mode.
func execute(opts *options, title string, fn action) error {
	cfg, err := loadConfig(opts.envFile)
	if err != nil {
		if opts.ci {
			common.WriteCIResult(opts.out, false, title, nil, err)
		}
		return err
	}

	wrapped := func(ctx context.Context) ([]string, error) {
		a, cleanup, err := di.InitializeApp(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("initialize app: %w", err)
		}
		defer cleanup()
		return fn(ctx, a)
	}

	var details []string
	if opts.ci {
		ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
		defer cancel()
		details, err = wrapped(ctx)
		common.WriteCIResult(opts.out, err == nil, title, details, err)
		return err
	}
	details, err = ui.Run(title, func(ctx context.Context) ([]string, error) {
		ctx, cancel := context.WithTimeout(ctx, opts.timeout)
		defer cancel()
		return wrapped(ctx)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		_, _ = fmt.Fprint(opts.out, ui.Render(title, details, err))
	}
	return err
}

func loadConfig(envFile string) (*config.Config, error) {
	if err := common.LoadEnvFile(envFile); err != nil {
		return nil, err
	}
	return config.Load()
}

// ExitCode maps a command error onto the process exit status.
func ExitCode(err error) int {
	switch service.ErrorKind(err) {
	case "none":
		return 0
	case "validation", "duplicate_user", "not_found":
		return 2
	case "invalid_credentials", "invalid_token":
		return 3
	case "storage":
		return 4
	default:
		return 1
	}
}

func parseUserID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, &service.ValidationError{Field: "user-id", Message: "is not a valid uuid"}
	}
	return id, nil
}
