// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the starrydata CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/starrydata/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// logger is built from the log.* settings before any subcommand runs.
var logger = slog.New(slog.DiscardHandler)

// rootCmd is the base command for the starrydata CLI.
var rootCmd = &cobra.Command{
	Use:   "starrydata",
	Short: "Fetch and read Starrydata dataset snapshots from Figshare",
	Long: `starrydata resolves a version of the Starrydata thermoelectric dataset on
Figshare (the latest, or the one published on a given date), downloads its
archive, and reads the samples, papers, and curves tables inside it.

Tables can be printed, saved with their metadata, or imported into a local
SQLite database.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(loadConfig().Log, os.Stderr)
		if err != nil {
			return err
		}
		logger = l
		if f := viper.ConfigFileUsed(); f != "" {
			logger.Debug("using config file", "path", f)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default: ./starrydata.yaml or ~/.config/starrydata/starrydata.yaml)")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.Bool("log-json", false, "write logs as JSON")
	flags.String("api-url", "", "Figshare API base URL (default "+types.DefaultAPIURL+")")
	flags.Int("project-id", 0, "Figshare project id (default 155129)")
	flags.Duration("timeout", 0, "HTTP request timeout (default 60s)")
	flags.Bool("no-insecure-fallback", false, "fail instead of retrying without TLS verification")

	for key, flag := range map[string]string{
		"log.level":                      "log-level",
		"log.json":                       "log-json",
		"catalog.api_url":                "api-url",
		"catalog.project_id":             "project-id",
		"http.timeout":                   "timeout",
		"http.disable_insecure_fallback": "no-insecure-fallback",
	} {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("starrydata")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "starrydata"))
		}
	}

	setDefaults()
	viper.SetEnvPrefix("STARRYDATA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintln(os.Stderr, "Reading config file:", err)
		}
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
