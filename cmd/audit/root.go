package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/yourusername/secret-board/internal/config"
	"github.com/yourusername/secret-board/internal/jobs"
)

// auditConfig はコマンドのフラグを保持します。
type auditConfig struct {
	limit      int
	jsonOutput bool
	redisURL   string
	timeout    time.Duration
}

// NewRootCmd は監査イベントを新しい順に表示するコマンドを作成します。
func NewRootCmd() *cobra.Command {
	cfg := &auditConfig{}

	cmd := &cobra.Command{
		Use:   "secret-board-audit",
		Short: "Show recent authentication events",
		Long: `Show the most recent authentication events (registrations, logins,
logouts and secret submissions) recorded by the audit worker.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAudit(cmd.Context(), cmd.OutOrStdout(), cfg)
		},
	}

	cmd.Flags().IntVarP(&cfg.limit, "limit", "n", 20, "number of events to show")
	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output events as JSON lines")
	cmd.Flags().StringVar(&cfg.redisURL, "redis-url", "", "queue redis url (default: QUEUE_REDIS_URL)")
	cmd.Flags().DurationVar(&cfg.timeout, "timeout", 5*time.Second, "redis timeout")

	return cmd
}

func runAudit(ctx context.Context, out io.Writer, cfg *auditConfig) error {
	if cfg.limit <= 0 {
		return fmt.Errorf("--limit must be positive")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisURL := cfg.redisURL
	maxEvents := 0
	if redisURL == "" {
		appCfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		redisURL = appCfg.QueueRedisURL
		maxEvents = appCfg.AuditMaxEvents
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return fmt.Errorf("failed to parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	defer rdb.Close()

	ctx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	events, err := jobs.NewStore(rdb, maxEvents).Recent(ctx, cfg.limit)
	if err != nil {
		return fmt.Errorf("failed to read audit events: %w", err)
	}

	if cfg.jsonOutput {
		enc := json.NewEncoder(out)
		for _, event := range events {
			if err := enc.Encode(event); err != nil {
				return err
			}
		}
		return nil
	}
	return writeTable(out, events)
}

func writeTable(out io.Writer, events []jobs.Event) error {
	if len(events) == 0 {
		_, err := fmt.Fprintln(out, "no audit events")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tTYPE\tUSERNAME\tUSER ID")
	for _, e := range events {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.OccurredAt.Format(time.RFC3339), e.Type, e.Username, e.UserID)
	}
	return w.Flush()
}
