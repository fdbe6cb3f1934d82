package authctl

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/secure-session-auth-service/internal/app"
	"github.com/sandeepkv93/secure-session-auth-service/internal/repository"
)

func newMigrateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the users and sessions tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(opts, "authctl migrate", func(ctx context.Context, a *app.App) ([]string, error) {
				if err := repository.Migrate(ctx, a.DB); err != nil {
					return nil, err
				}
				return []string{"driver=" + a.Config.DatabaseDriver, "schema up to date"}, nil
			})
		},
	}
}

func newRegisterCommand(opts *options) *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a user account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(opts, "authctl register", func(ctx context.Context, a *app.App) ([]string, error) {
				u, err := a.Auth.Register(ctx, name, email, password)
				if err != nil {
					return nil, err
				}
				return []string{"user_id=" + u.ID.String(), "email=" + u.Email, "role=" + string(u.Role)}, nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "login email")
	cmd.Flags().StringVar(&password, "password", "", "password (8 to 72 bytes)")
	return cmd
}

func newLoginCommand(opts *options) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate and open a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(opts, "authctl login", func(ctx context.Context, a *app.App) ([]string, error) {
				pair, err := a.Auth.Authenticate(ctx, email, password, opts.userAgent, opts.ip)
				if err != nil {
					return nil, err
				}
				return []string{"access_token=" + pair.AccessToken, "refresh_token=" + pair.RefreshToken}, nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "login email")
	cmd.Flags().StringVar(&password, "password", "", "password")
	return cmd
}

func newRefreshCommand(opts *options) *cobra.Command {
	var refreshToken string
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Exchange a refresh token for a new access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(opts, "authctl refresh", func(ctx context.Context, a *app.App) ([]string, error) {
				pair, err := a.Auth.RefreshAccessToken(ctx, refreshToken, opts.userAgent, opts.ip)
				if err != nil {
					return nil, err
				}
				return []string{"access_token=" + pair.AccessToken, "refresh_token=" + pair.RefreshToken}, nil
			})
		},
	}
	cmd.Flags().StringVar(&refreshToken, "refresh-token", "", "refresh token from login")
	return cmd
}

func newVerifyCommand(opts *options) *cobra.Command {
	var accessToken string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Resolve an access token to its identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(opts, "authctl verify", func(ctx context.Context, a *app.App) ([]string, error) {
				id, err := a.Auth.VerifyRequest(ctx, accessToken)
				if err != nil {
					return nil, err
				}
				return []string{
					"user_id=" + id.UserID.String(),
					"session_id=" + id.SessionID.String(),
					"email=" + id.Email,
					"role=" + string(id.Role),
					fmt.Sprintf("active=%t", id.Status),
				}, nil
			})
		},
	}
	cmd.Flags().StringVar(&accessToken, "access-token", "", "access token to verify")
	return cmd
}

func newLogoutCommand(opts *options) *cobra.Command {
	var userID, accessToken string
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Revoke the session behind an access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(opts, "authctl logout", func(ctx context.Context, a *app.App) ([]string, error) {
				id, err := parseUserID(userID)
				if err != nil {
					return nil, err
				}
				if err := a.Auth.RevokeSession(ctx, id, accessToken); err != nil {
					return nil, err
				}
				return []string{"logged out"}, nil
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user-id", "", "owner of the session")
	cmd.Flags().StringVar(&accessToken, "access-token", "", "access token of the session, expired tokens are accepted")
	return cmd
}

func newRevokeAllCommand(opts *options) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "revoke-all",
		Short: "Revoke every session of a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(opts, "authctl revoke-all", func(ctx context.Context, a *app.App) ([]string, error) {
				id, err := parseUserID(userID)
				if err != nil {
					return nil, err
				}
				n, err := a.Auth.RevokeAllSessions(ctx, id)
				if err != nil {
					return nil, err
				}
				return []string{fmt.Sprintf("revoked=%d", n)}, nil
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user-id", "", "user whose sessions are revoked")
	return cmd
}
