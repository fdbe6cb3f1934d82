package authctl

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sandeepkv93/secure-session-auth-service/internal/app"
	"github.com/sandeepkv93/secure-session-auth-service/internal/domain"
	"github.com/sandeepkv93/secure-session-auth-service/internal/repository"
	"github.com/sandeepkv93/secure-session-auth-service/internal/service"
	"github.com/sandeepkv93/secure-session-auth-service/internal/tools/loadgen"
)

func newSessionsCommand(opts *options) *cobra.Command {
	var userID, current string
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List a user's active sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(opts, "authctl sessions", func(ctx context.Context, a *app.App) ([]string, error) {
				id, err := parseUserID(userID)
				if err != nil {
					return nil, err
				}
				currentID, _ := uuid.Parse(current)
				views, err := a.Sessions.ListActiveSessions(ctx, id, currentID)
				if err != nil {
					return nil, err
				}
				details := make([]string, 0, len(views)+1)
				details = append(details, fmt.Sprintf("active=%d", len(views)))
				for _, v := range views {
					line := fmt.Sprintf("%s created=%s ua=%q ip=%s", v.ID, v.CreatedAt.Format(time.RFC3339), v.UserAgent, v.IP)
					if v.IsCurrent {
						line += " (current)"
					}
					details = append(details, line)
				}
				return details, nil
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user-id", "", "session owner")
	cmd.Flags().StringVar(&current, "current-session", "", "session id to mark as current")
	return cmd
}

func newUsersCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{Use: "users", Short: "Inspect and administer users"}
	cmd.AddCommand(newUsersListCommand(opts), newUsersSetStatusCommand(opts))
	return cmd
}

func newUsersListCommand(opts *options) *cobra.Command {
	var (
		query  repository.UserListQuery
		status string
		role   string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Page through registered users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(opts, "authctl users list", func(ctx context.Context, a *app.App) ([]string, error) {
				switch status {
				case "":
				case "active", "inactive":
					active := status == "active"
					query.Status = &active
				default:
					return nil, &service.ValidationError{Field: "status", Message: "must be active or inactive"}
				}
				query.Role = domain.Role(role)
				if query.Role != "" && !query.Role.Valid() {
					return nil, &service.ValidationError{Field: "role", Message: "must be USER or ADMIN"}
				}
				page, err := a.Users.List(ctx, query)
				if err != nil {
					return nil, err
				}
				details := []string{fmt.Sprintf("page=%d/%d total=%d", page.Page, page.TotalPages, page.Total)}
				for _, u := range page.Items {
					details = append(details, fmt.Sprintf("%s %s role=%s active=%t", u.ID, u.Email, u.Role, u.Status))
				}
				return details, nil
			})
		},
	}
	cmd.Flags().IntVar(&query.Page, "page", repository.DefaultPage, "page number")
	cmd.Flags().IntVar(&query.PageSize, "page-size", repository.DefaultPageSize, "page size")
	cmd.Flags().StringVar(&query.Email, "email", "", "email prefix filter")
	cmd.Flags().StringVar(&status, "status", "", "active or inactive")
	cmd.Flags().StringVar(&role, "role", "", "USER or ADMIN")
	return cmd
}

func newUsersSetStatusCommand(opts *options) *cobra.Command {
	var (
		userID string
		active bool
	)
	cmd := &cobra.Command{
		Use:   "set-status",
		Short: "Activate or deactivate a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(opts, "authctl users set-status", func(ctx context.Context, a *app.App) ([]string, error) {
				id, err := parseUserID(userID)
				if err != nil {
					return nil, err
				}
				if err := a.Users.SetStatus(ctx, id, active); err != nil {
					return nil, err
				}
				return []string{fmt.Sprintf("user_id=%s active=%t", id, active)}, nil
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user-id", "", "user to update")
	cmd.Flags().BoolVar(&active, "active", true, "new active flag")
	return cmd
}

func newHealthCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe the database and Redis",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(opts, "authctl health", func(ctx context.Context, a *app.App) ([]string, error) {
				ready, results := a.Readiness.Ready(ctx)
				details := make([]string, 0, len(results))
				for _, r := range results {
					if r.Healthy {
						details = append(details, r.Name+": ok")
					} else {
						details = append(details, r.Name+": "+r.Error)
					}
				}
				if !ready {
					return details, fmt.Errorf("dependencies not ready")
				}
				return details, nil
			})
		},
	}
}

func newLoadgenCommand(opts *options) *cobra.Command {
	var cfg loadgen.Config
	cmd := &cobra.Command{
		Use:   "loadgen",
		Short: "Drive the auth flows in-process to exercise metrics and traces",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(opts, "authctl loadgen", func(ctx context.Context, a *app.App) ([]string, error) {
				res, err := loadgen.Run(ctx, a.Auth, cfg)
				if err != nil {
					return nil, err
				}
				details := []string{fmt.Sprintf("total=%d failures=%d elapsed=%s", res.TotalRequests, res.Failures, res.Elapsed.Round(time.Millisecond))}
				for op, n := range res.Operations {
					details = append(details, fmt.Sprintf("op %s=%d", op, n))
				}
				for outcome, n := range res.Outcomes {
					details = append(details, fmt.Sprintf("outcome %s=%d", outcome, n))
				}
				return details, nil
			})
		},
	}
	cmd.Flags().StringVar(&cfg.Profile, "profile", "mixed", "mixed, auth or refresh")
	cmd.Flags().DurationVar(&cfg.Duration, "duration", 10*time.Second, "how long to generate traffic")
	cmd.Flags().IntVar(&cfg.RPS, "rps", 20, "operations per second")
	cmd.Flags().IntVar(&cfg.Concurrency, "concurrency", 4, "concurrent users")
	cmd.Flags().Uint64Var(&cfg.Seed, "seed", 42, "operation mix seed")
	return cmd
}
