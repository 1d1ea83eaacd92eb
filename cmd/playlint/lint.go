package main

import (
	"fmt"
	"os"

	"github.com/metalagman/playlint/internal/config"
	"github.com/metalagman/playlint/internal/db"
	"github.com/metalagman/playlint/internal/lint"
	"github.com/metalagman/playlint/internal/report"
	"github.com/metalagman/playlint/internal/rules"
	"github.com/metalagman/playlint/internal/task"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type lintFlags struct {
	tags        []string
	skip        []string
	exclude     []string
	extraVars   []string
	format      string
	parallelism int
	record      bool
}

func lintCmd() *cobra.Command {
	var flags lintFlags
	cmd := &cobra.Command{
		Use:   "lint <playbook>...",
		Short: "Lint playbooks and the files they include",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repoRoot, err := os.Getwd()
			if err != nil {
				return err
			}
			cfg, err := loadConfig(repoRoot)
			if err != nil {
				return err
			}
			opts, format, err := lintOptions(cfg, cmd, flags)
			if err != nil {
				return err
			}

			res, err := lint.NewRunner(opts).Run(cmd.Context(), args)
			if err != nil {
				return err
			}
			w := report.NewWriter(cmd.OutOrStdout(), format, report.ColorEnabled(os.Stdout))
			if err := w.Write(res); err != nil {
				return err
			}
			if flags.record {
				if err := recordRun(cmd, cfg, args, res); err != nil {
					return err
				}
			}
			if res.Failed() {
				return errLintFailed
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&flags.tags, "tags", "t", nil, "only check rules whose id or tags match")
	cmd.Flags().StringSliceVarP(&flags.skip, "skip", "x", nil, "skip rules whose id or tags match")
	cmd.Flags().StringSliceVar(&flags.exclude, "exclude", nil, "skip paths or patterns")
	cmd.Flags().StringArrayVarP(&flags.extraVars, "extra-vars", "e", nil, "set key=value variables for rendering")
	cmd.Flags().StringVarP(&flags.format, "format", "f", "", "output format: default, parseable or json")
	cmd.Flags().IntVar(&flags.parallelism, "parallelism", 0, "files linted concurrently (0 = GOMAXPROCS)")
	cmd.Flags().BoolVar(&flags.record, "record", false, "record the run in the history database")
	return cmd
}

// lintOptions merges the config file with command line flags. Flags
// replace config values; extra vars are merged key by key.
func lintOptions(cfg config.Config, cmd *cobra.Command, flags lintFlags) (lint.Options, report.Format, error) {
	tags, skip, exclude := cfg.Tags, cfg.SkipList, cfg.ExcludePaths
	if cmd.Flags().Changed("tags") {
		tags = flags.tags
	}
	if cmd.Flags().Changed("skip") {
		skip = append(append([]string{}, skip...), flags.skip...)
	}
	if cmd.Flags().Changed("exclude") {
		exclude = append(append([]string{}, exclude...), flags.exclude...)
	}
	formatName := cfg.Format
	if flags.format != "" {
		formatName = flags.format
	}
	format, err := report.ParseFormat(formatName)
	if err != nil {
		return lint.Options{}, "", err
	}
	parallelism := cfg.Parallelism
	if cmd.Flags().Changed("parallelism") {
		parallelism = flags.parallelism
	}

	extra := make(map[string]any, len(cfg.ExtraVars)+len(flags.extraVars))
	for k, v := range cfg.ExtraVars {
		extra[k] = v
	}
	for _, raw := range flags.extraVars {
		positional, kwargs := task.ParseArguments(raw)
		if len(positional) > 0 || len(kwargs) == 0 {
			return lint.Options{}, "", fmt.Errorf("invalid extra var %q: want key=value", raw)
		}
		for k, v := range kwargs {
			extra[k] = v
		}
	}

	return lint.Options{
		Rules:       rules.Default().Select(tags, skip),
		Exclude:     exclude,
		Parallelism: parallelism,
		ExtraVars:   extra,
	}, format, nil
}

func recordRun(cmd *cobra.Command, cfg config.Config, paths []string, res *lint.Result) error {
	lock, err := db.AcquireLock(cfg.History.Path)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	storeDB, err := db.Open(cmd.Context(), cfg.History.Path)
	if err != nil {
		return err
	}
	defer func() { _ = storeDB.Close() }()

	runID, err := db.NewStore(storeDB).RecordRun(cmd.Context(), paths, res)
	if err != nil {
		return err
	}
	log.Info().Int64("run_id", runID).Int("matches", len(res.Matches)).Msg("recorded lint run")
	return nil
}
