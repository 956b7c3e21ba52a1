package cli

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/betminds/linx-orders/internal/bootstrap"
)

var errRevocationNeedsRedis = errors.New("token revocation needs redis.enabled and a reachable Redis")

func newTokenCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage service tokens for the HTTP trigger",
	}
	cmd.AddCommand(newTokenMintCommand(opts))
	cmd.AddCommand(newTokenRevokeCommand(opts))
	return cmd
}

func newTokenMintCommand(opts *RootOptions) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
		scopes  []string
	)

	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Mint an HS256 service token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, bootstrap.Options{SkipDatabase: true}, func(app *bootstrap.App) error {
				if app.Config.Auth.Secret == "" {
					return NewExitError(ExitCommandError, "auth.secret is not configured")
				}
				var granted []string
				if len(scopes) > 0 {
					granted = scopes
				}
				token, err := app.JWT.Issue(subject, ttl, granted)
				if err != nil {
					return WrapExitError(ExitCommandError, "mint failed", err)
				}
				return newPrinter(opts, cmd.OutOrStdout()).result("Token", token, nil)
			})
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "token subject, e.g. the calling scheduler")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default auth.token_ttl)")
	cmd.Flags().StringSliceVar(&scopes, "scope", nil, "granted scopes (default sync:trigger,sync:read)")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

// RevokeReport is the output of token revoke.
type RevokeReport struct {
	ID      string    `json:"jti"`
	Subject string    `json:"subject"`
	Until   time.Time `json:"revoked_until"`
}

func newTokenRevokeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <token>",
		Short: "Revoke a service token until it expires",
		Long:  "Stores the token id in Redis so every server instance rejects it. Requires redis.enabled.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, bootstrap.Options{SkipDatabase: true}, func(app *bootstrap.App) error {
				if app.Redis == nil {
					return WrapExitError(ExitCommandError, "revoke failed", errRevocationNeedsRedis)
				}
				claims, err := app.JWT.Validate(args[0])
				if err != nil {
					return WrapExitError(ExitCommandError, "revoke failed", err)
				}
				ttl := claims.RemainingTTL()
				if err := app.Revocations.Revoke(cmd.Context(), claims.ID, ttl); err != nil {
					return WrapExitError(ExitFailure, "revoke failed", err)
				}
				return newPrinter(opts, cmd.OutOrStdout()).result("Token revoked", RevokeReport{
					ID:      claims.ID,
					Subject: claims.Subject,
					Until:   claims.ExpiresAt.Time,
				}, nil)
			})
		},
	}
}
