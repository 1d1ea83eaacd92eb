package main

import (
	"context"
	"database/sql"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/metalagman/playlint/internal/config"
	"github.com/metalagman/playlint/internal/db"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Manage recorded lint runs",
	}
	cmd.AddCommand(historyListCmd())
	cmd.AddCommand(historyPruneCmd())
	return cmd
}

func openHistory(ctx context.Context) (*sql.DB, config.Config, func(), error) {
	repoRoot, err := os.Getwd()
	if err != nil {
		return nil, config.Config{}, func() {}, err
	}
	cfg, err := loadConfig(repoRoot)
	if err != nil {
		return nil, config.Config{}, func() {}, err
	}
	storeDB, err := db.Open(ctx, cfg.History.Path)
	if err != nil {
		return nil, config.Config{}, func() {}, err
	}
	return storeDB, cfg, func() { _ = storeDB.Close() }, nil
}

func historyListCmd() *cobra.Command {
	var limit int
	var withRules bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			storeDB, _, closeFn, err := openHistory(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			store := db.NewStore(storeDB)
			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tCREATED\tFILES\tMATCHES\tERRORS\tPATHS")
			for _, r := range runs {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%s\n", r.ID, r.CreatedAt.Local().Format(time.DateTime),
					r.Files, r.Matches, r.Errors, strings.Join(r.Paths, " "))
				if !withRules {
					continue
				}
				counts, err := store.RuleCounts(cmd.Context(), r.ID)
				if err != nil {
					return err
				}
				for _, id := range slices.Sorted(maps.Keys(counts)) {
					fmt.Fprintf(tw, "\t  %s\t\t%d\t\t\n", id, counts[id])
				}
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to show (0 = all)")
	cmd.Flags().BoolVar(&withRules, "rules", false, "show match counts per rule")
	return cmd
}

func historyPruneCmd() *cobra.Command {
	var keepLast int
	var keepDays int
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Prune old runs from the history database",
		RunE: func(cmd *cobra.Command, args []string) error {
			storeDB, cfg, closeFn, err := openHistory(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			policy := db.RetentionPolicy{KeepLast: keepLast, KeepDays: keepDays}
			if policy.KeepLast <= 0 && policy.KeepDays <= 0 {
				policy = db.RetentionPolicy{
					KeepLast: cfg.History.KeepLast,
					KeepDays: cfg.History.KeepDays,
				}
			}
			if policy.KeepLast <= 0 && policy.KeepDays <= 0 {
				return fmt.Errorf("set --keep-last or --keep-days (or configure history in %s)", config.DefaultPath)
			}

			lock, err := db.AcquireLock(cfg.History.Path)
			if err != nil {
				return err
			}
			defer func() { _ = lock.Release() }()

			res, err := db.NewStore(storeDB).PruneRuns(cmd.Context(), policy, dryRun)
			if err != nil {
				return err
			}
			mode := "deleted"
			if dryRun {
				mode = "would delete"
			}
			log.Info().Msgf("%s %d runs (kept %d of %d)", mode, res.Deleted, res.Kept, res.Considered)
			return nil
		},
	}
	cmd.Flags().IntVar(&keepLast, "keep-last", 0, "keep the newest N runs")
	cmd.Flags().IntVar(&keepDays, "keep-days", 0, "keep runs newer than N days")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be pruned without deleting")
	return cmd
}
