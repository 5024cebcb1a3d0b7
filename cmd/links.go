package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"shortlink/internal/auth"
	"shortlink/internal/shortener"
)

var createFlags struct {
	url    string
	custom string
	days   int
	owner  string
}

var CreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Shorten a URL directly against the store",
	Example: `  shortlink create --url="https://go.dev/doc/effective_go"
  shortlink create --url=https://example.com --custom=docs --days=30 --owner=user-1`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, Cfg, log)
		if err != nil {
			return err
		}
		defer a.shutdown(context.Background(), log)

		req := shortener.CreateRequest{
			OriginalURL: createFlags.url,
			CustomCode:  createFlags.custom,
			OwnerID:     createFlags.owner,
		}
		if cmd.Flags().Changed("days") {
			days := createFlags.days
			req.ExpiresInDays = &days
		}
		res, err := a.svc.Create(ctx, req)
		if err != nil {
			return err
		}
		return printJSON(cmd, res)
	},
}

var statsCode string

var StatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the click count of a short code",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, Cfg, log)
		if err != nil {
			return err
		}
		defer a.shutdown(context.Background(), log)

		stats, err := a.svc.Analytics(ctx, statsCode)
		if err != nil {
			return err
		}
		return printJSON(cmd, stats)
	},
}

var tokenFlags struct {
	user string
	ttl  time.Duration
}

var TokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token signed with auth.jwt_secret, for local testing",
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := auth.NewVerifier(Cfg.Auth.JWTSecret).Issue(tokenFlags.user, tokenFlags.ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	CreateCmd.Flags().StringVar(&createFlags.url, "url", "", "URL to shorten")
	CreateCmd.Flags().StringVar(&createFlags.custom, "custom", "", "custom short code (3-20 alphanumeric characters)")
	CreateCmd.Flags().IntVar(&createFlags.days, "days", 0, "expire the link after this many days")
	CreateCmd.Flags().StringVar(&createFlags.owner, "owner", "", "owner user id")
	_ = CreateCmd.MarkFlagRequired("url")

	StatsCmd.Flags().StringVar(&statsCode, "code", "", "short code")
	_ = StatsCmd.MarkFlagRequired("code")

	TokenCmd.Flags().StringVar(&tokenFlags.user, "user", "", "user id to put in the subject claim")
	TokenCmd.Flags().DurationVar(&tokenFlags.ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = TokenCmd.MarkFlagRequired("user")

	RootCmd.AddCommand(CreateCmd, StatsCmd, TokenCmd)
}
