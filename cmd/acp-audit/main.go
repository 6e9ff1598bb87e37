// Command acp-audit is a read-only operator CLI over the seller runtime's
// audit trail: which jobs had which accept/deliver attempts recorded, and
// when. It never writes to the protocol backend or the stage ledger —
// the buyer-facing ACP CLI is out of scope for this repo.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourorg/acp-seller/internal/audit"
	"github.com/yourorg/acp-seller/internal/config"
	"github.com/yourorg/acp-seller/internal/db"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "acp-audit",
		Short: "Inspect the seller runtime's stage-attempt audit trail",
	}
	cmd.AddCommand(newHistoryCommand())
	cmd.AddCommand(newTailCommand())
	return cmd
}

func openStore() (*audit.Store, func(), error) {
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	if cfg.DatabaseURL == "" {
		return nil, func() {}, fmt.Errorf("ACP_DATABASE_URL is not set; the audit trail is disabled")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, func() {}, fmt.Errorf("connect to audit database: %w", err)
	}
	return audit.New(pool, logger), pool.Close, nil
}

func newHistoryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "history <jobId>",
		Short: "Show every recorded stage attempt for one job, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid job id %q: %w", args[0], err)
			}

			store, closeFn, err := openStore()
			if err != nil {
				return err
			}
			defer closeFn()

			rows, err := store.History(cmd.Context(), jobID)
			if err != nil {
				return fmt.Errorf("load history: %w", err)
			}
			if len(rows) == 0 {
				fmt.Println("no recorded attempts for this job")
				return nil
			}
			for _, r := range rows {
				printAttempt(r)
			}
			return nil
		},
	}
}

func newTailCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Show the most recent stage attempts across all jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeFn, err := openStore()
			if err != nil {
				return err
			}
			defer closeFn()

			rows, err := store.Tail(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("load tail: %w", err)
			}
			for _, r := range rows {
				printAttempt(r)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of attempts to show")
	return cmd
}

func printAttempt(r audit.AttemptRow) {
	fmt.Printf("%s  job=%d  stage=%s  outcome=%s  exec=%s  %s\n", r.OccurredAt, r.JobID, r.Stage, r.Outcome, r.ExecutionID, r.Detail)
}
