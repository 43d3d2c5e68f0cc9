// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/argmap/internal/extract"
	"github.com/pdiddy/argmap/internal/graphstore"
	"github.com/pdiddy/argmap/internal/secrets"
	"github.com/pdiddy/argmap/internal/window"
)

var extractCmd = &cobra.Command{
	Use:   "extract <documents-file>",
	Short: "Extract argument graphs from documents",
	Long: `Extract segments every document into windows, asks the configured
generation backend (claude or openai) for a graph fragment per window,
validates it, and retries failed windows under the retry policy with the
previous attempt's errors as feedback. Accepted windows and soft warnings
are stored in the graph store; rejected windows leave failure records for
"argmap audit".

Documents with fewer paragraphs than one window are skipped. The API key
comes from .secrets/anthropic-api-key, .secrets/openai-api-key, ai.api_key
in config, or ARGMAP_AI_API_KEY.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().String("retrieved", "", "YAML or JSON file with retrieved context shared by all windows")
	extractCmd.Flags().String("provider", "", "generation backend: claude or openai")
	extractCmd.Flags().String("model", "", "model identifier")
	extractCmd.Flags().Int("concurrency", 0, "windows processed at once per document")

	_ = viper.BindPFlag("ai.provider", extractCmd.Flags().Lookup("provider"))
	_ = viper.BindPFlag("ai.model", extractCmd.Flags().Lookup("model"))
	_ = viper.BindPFlag("extraction.concurrency", extractCmd.Flags().Lookup("concurrency"))

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	docs, err := readDocuments(args[0])
	if err != nil {
		return err
	}
	retrievedPath, _ := cmd.Flags().GetString("retrieved")
	retrieved, err := readRetrieved(retrievedPath)
	if err != nil {
		return err
	}

	builder, err := window.New(cfg.Window)
	if err != nil {
		return err
	}
	opts, err := extract.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}

	cfg.AI.APIKey = secrets.APIKey(cfg.AI.Provider, cfg.AI.APIKey, loadedSecrets)
	backend, err := extract.NewBackend(cfg.AI, nil)
	if err != nil {
		return err
	}

	store, err := graphstore.NewStore(cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	log.Info("starting extraction",
		"documents", len(docs),
		"provider", backend.Name(),
		"model", cfg.AI.Model,
		"store", store.Dir())

	extractor := extract.New(backend, builder, store, opts, log)
	summary, err := extractor.ExtractAll(cmd.Context(), docs, retrieved, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nextracted: %d, skipped: %d, failed: %d\n",
		summary.Extracted, summary.Skipped, summary.Failed)
	if summary.HasFailures() {
		return fmt.Errorf("%d document(s) had rejected windows; see argmap audit", summary.Failed)
	}
	return nil
}
