// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the argmap CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/argmap/internal/logging"
	"github.com/pdiddy/argmap/internal/secrets"
	"github.com/pdiddy/argmap/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the argmap CLI.
var rootCmd = &cobra.Command{
	Use:   "argmap",
	Short: "Extract validated argument graphs from source text",
	Long: `argmap segments documents into overlapping paragraph windows, asks a
text-generation backend for an argument graph per window (locutions,
propositions, illocutions, support/conflict/rephrase relations), validates
every returned fragment, and retries or rejects failed windows under a
per-kind retry policy.

Accepted windows, soft warnings and failure records are kept in a local
SQLite graph store for auditing and export.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./argmap.yaml or ~/.config/argmap/argmap.yaml)")
	rootCmd.PersistentFlags().String("store-dir", "", "graph store directory (default from config: graph)")
	rootCmd.PersistentFlags().String("log-mode", "", "logger mode: dev or prod")

	_ = viper.BindPFlag("store.dir", rootCmd.PersistentFlags().Lookup("store-dir"))
	_ = viper.BindPFlag("log.mode", rootCmd.PersistentFlags().Lookup("log-mode"))

	setDefaults(viper.GetViper(), types.DefaultConfig())
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("argmap")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "argmap"))
		}
	}

	viper.SetEnvPrefix("ARGMAP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setDefaults registers every configuration key with its built-in value so
// that environment variables such as ARGMAP_AI_MODEL resolve.
func setDefaults(v *viper.Viper, d types.PipelineConfig) {
	v.SetDefault("window.min_paragraphs", d.Window.MinParagraphs)
	v.SetDefault("window.max_paragraphs", d.Window.MaxParagraphs)
	v.SetDefault("window.overlap", d.Window.Overlap)

	v.SetDefault("retry.max_retries", d.Retry.MaxRetries)
	v.SetDefault("retry.base_backoff", d.Retry.BaseBackoff)
	v.SetDefault("retry.max_backoff", d.Retry.MaxBackoff)

	v.SetDefault("ai.provider", d.AI.Provider)
	v.SetDefault("ai.model", d.AI.Model)
	v.SetDefault("ai.api_key", d.AI.APIKey)
	v.SetDefault("ai.base_url", d.AI.BaseURL)
	v.SetDefault("ai.max_tokens", d.AI.MaxTokens)
	v.SetDefault("ai.timeout", d.AI.Timeout)
	v.SetDefault("ai.rate_limit_retries", d.AI.RateLimitRetries)

	v.SetDefault("extraction.concurrency", d.Extraction.Concurrency)
	v.SetDefault("extraction.requests_per_second", d.Extraction.RequestsPerSecond)
	v.SetDefault("extraction.burst", d.Extraction.Burst)
	v.SetDefault("extraction.cache_ttl", d.Extraction.CacheTTL)
	v.SetDefault("extraction.cycle_threshold", d.Extraction.CycleThreshold)
	v.SetDefault("extraction.strict_overgeneration", d.Extraction.StrictOvergeneration)

	v.SetDefault("store.dir", d.Store.Dir)
	v.SetDefault("log.mode", d.Log.Mode)
}

// loadConfig decodes the effective configuration from v.
func loadConfig(v *viper.Viper) (types.PipelineConfig, error) {
	var cfg types.PipelineConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the logger selected by cfg.Log.Mode.
func newLogger(cfg types.PipelineConfig) (*logging.Logger, error) {
	log, err := logging.New(cfg.Log.Mode)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	return log, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
