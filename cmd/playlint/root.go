package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/metalagman/playlint/internal/config"
	"github.com/metalagman/playlint/internal/logging"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var errLintFailed = errors.New("lint failed")

var (
	cfgFile string
	debug   bool
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "playlint",
		Short:         "playlint checks playbooks for practices and behaviour that could be improved",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file path")
	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		logging.Init(debug)
	}
	cmd.AddCommand(lintCmd())
	cmd.AddCommand(rulesCmd())
	cmd.AddCommand(historyCmd())
	return cmd
}

// Execute runs the root command.
func Execute() error {
	cobra.OnInitialize(initConfig)
	rootCmd := newRootCmd()
	if err := viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config")); err != nil {
		return fmt.Errorf("bind config flag: %w", err)
	}
	return rootCmd.Execute()
}

func initConfig() {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			log.Warn().Err(err).Msg("load .env")
		}
	}
	viper.SetEnvPrefix("PLAYLINT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
}
