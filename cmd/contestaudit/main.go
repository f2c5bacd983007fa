package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vncsmyrnk/contestvote/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/contestvote/internal/config"
	"github.com/vncsmyrnk/contestvote/internal/core/services"
	"github.com/vncsmyrnk/contestvote/internal/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		timeout    time.Duration
		failOnDiff bool
	)

	cmd := &cobra.Command{
		Use:   "contestaudit",
		Short: "Checks that every contest's tally matches its participant ledger",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			zlog, err := logger.New(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			defer zlog.Sync()

			db, err := sql.Open("postgres", cfg.Postgres.ConnString())
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Ping(); err != nil {
				return err
			}

			tallySvc := services.NewTallyService(postgres.NewContestRepository(db), zlog)

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			zlog.Info("starting tally audit")
			reports, err := tallySvc.Audit(ctx)
			if err != nil {
				return fmt.Errorf("audit failed: %w", err)
			}

			inconsistent := 0
			for _, r := range reports {
				if !r.Consistent() {
					inconsistent++
					fmt.Fprintf(cmd.OutOrStdout(), "%s\ttally=%d\tvoted=%d\n", r.ContestID, r.TotalVotes, r.Voted)
				}
			}
			zlog.Info("tally audit completed", zap.Int("contests", len(reports)), zap.Int("inconsistent", inconsistent))

			if failOnDiff && inconsistent > 0 {
				return fmt.Errorf("%d contests have inconsistent tallies", inconsistent)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "maximum duration of the audit")
	cmd.Flags().BoolVar(&failOnDiff, "fail-on-diff", true, "exit non-zero when any contest is inconsistent")
	return cmd
}
