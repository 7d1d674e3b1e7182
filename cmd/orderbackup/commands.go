package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"orderbackup/internal/auth"
	"orderbackup/internal/config"
	"orderbackup/internal/service"
)

func newSyncCommand(opts *rootOptions) *cobra.Command {
	var (
		tokenID  string
		userID   string
		from     string
		to       string
		fullSync bool
	)
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one sync for a token in the foreground",
		Long: `Run one sync for a token and print the run summary.

Without --from the incremental event feed is used. With --from the bulk
date-range listing is paginated instead.

Example:
  orderbackup sync --token shop-1
  orderbackup sync --token shop-1 --from 2026-01-01 --to 2026-02-01`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			syncOpts := service.SyncOptions{TokenID: tokenID, UserID: userID, FullSync: fullSync}
			var err error
			if syncOpts.FromDate, err = parseDateFlag("from", from); err != nil {
				return err
			}
			if syncOpts.ToDate, err = parseDateFlag("to", to); err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.close()

			// A paused or failed run still has a summary worth printing.
			res, runErr := a.sync.Sync(cmd.Context(), syncOpts)
			if res != nil {
				if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
					return err
				}
			}
			return runErr
		},
	}
	cmd.Flags().StringVar(&tokenID, "token", "", "source token id (required)")
	cmd.Flags().StringVar(&userID, "user", "", "owner user id passed to the credential provider")
	cmd.Flags().StringVar(&from, "from", "", "bulk sync start date (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "bulk sync end date (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().BoolVar(&fullSync, "full", false, "bulk sync over the configured full sync window")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func newRetryFailedCommand(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "retry-failed",
		Short: "Retry failed orders whose next attempt is due",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.close()
			if limit <= 0 {
				limit = a.cfg.FailedOrders.BatchLimit
			}
			stats, err := a.failed.ProcessFailedOrders(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), stats)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "max rows to process (default failed_orders.batch_limit)")
	return cmd
}

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update tables and default feature switches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// newApp migrates the schema and seeds missing switches.
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.close()
			switches, err := a.settings.List(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{"migrated": true, "switches": switches})
		},
	}
}

func newReportCommand(opts *rootOptions) *cobra.Command {
	var (
		tokenID  string
		days     int
		snapshot bool
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the data quality report and current health of a token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if days < 1 || days > 90 {
				return fmt.Errorf("--days must be between 1 and 90")
			}
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.close()
			ctx := cmd.Context()
			report, err := a.monitoring.QualityReport(ctx, tokenID, days)
			if err != nil {
				return err
			}
			health, err := a.monitoring.CheckDataHealth(ctx, tokenID, a.cfg.Monitoring.WindowHours)
			if err != nil {
				return err
			}
			pause, reasons, err := a.monitoring.ShouldPauseSync(ctx, tokenID)
			if err != nil {
				return err
			}
			out := map[string]any{
				"report":  report,
				"health":  health,
				"pause":   pause,
				"reasons": reasons,
			}
			if snapshot {
				ev, err := a.monitoring.CreateSnapshot(ctx, tokenID)
				if err != nil {
					return err
				}
				out["snapshot_event_id"] = ev.EventID
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&tokenID, "token", "", "source token id (required)")
	cmd.Flags().IntVar(&days, "days", 7, "report window in days")
	cmd.Flags().BoolVar(&snapshot, "snapshot", false, "also store a quality snapshot event")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func newTokenCommand(opts *rootOptions) *cobra.Command {
	var (
		role     string
		tokenIDs []string
		subject  string
		ttl      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign an API bearer token",
		Long: `Sign an API bearer token with the configured secret.

Operators are limited to the listed source tokens; admins may act on all.

Example:
  orderbackup token --role operator --tokens shop-1,shop-2 --ttl 720h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if role != auth.RoleAdmin && role != auth.RoleOperator {
				return fmt.Errorf("invalid role %q: must be %s or %s", role, auth.RoleAdmin, auth.RoleOperator)
			}
			if role == auth.RoleOperator && len(tokenIDs) == 0 {
				return errors.New("operator tokens need at least one --tokens entry")
			}
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return errors.New("auth.jwt_secret is not set")
			}
			if ttl <= 0 {
				ttl = cfg.Auth.TokenTTL
			}
			j := auth.JWT{Secret: []byte(cfg.Auth.JWTSecret), TokenTTL: ttl, Issuer: cfg.Auth.Issuer}
			claims := auth.Claims{Role: role, TokenIDs: cleanList(tokenIDs)}
			claims.Subject = subject
			token, exp, err := j.Sign(claims)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{"token": token, "expires_at": exp})
		},
	}
	cmd.Flags().StringVar(&role, "role", auth.RoleOperator, "admin or operator")
	cmd.Flags().StringSliceVar(&tokenIDs, "tokens", nil, "source token ids the bearer may use")
	cmd.Flags().StringVar(&subject, "subject", "cli", "subject recorded in audit logs")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default auth.token_ttl)")
	return cmd
}

func loadConfig(opts *rootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.configPath, opts.envOnly)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func parseDateFlag(name, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid --%s %q: want RFC3339 or YYYY-MM-DD", name, raw)
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
