// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/argmap/internal/window"
	"github.com/pdiddy/argmap/pkg/types"
)

var windowsCmd = &cobra.Command{
	Use:   "windows <documents-file>",
	Short: "Show the extraction windows built for documents",
	Long: `Windows segments each document in a YAML or JSON file into extraction
windows using the window settings from config (min/max paragraphs,
overlap) and prints a summary per window. --format yaml or json prints the
full window inputs, including texts, detected transitions and retrieved
context.`,
	Args: cobra.ExactArgs(1),
	RunE: runWindows,
}

func init() {
	windowsCmd.Flags().String("retrieved", "", "YAML or JSON file with retrieved context")
	windowsCmd.Flags().String("format", "table", "output format: table, yaml or json")
	windowsCmd.Flags().Int("min-paragraphs", 0, "override window.min_paragraphs")
	windowsCmd.Flags().Int("max-paragraphs", 0, "override window.max_paragraphs")
	windowsCmd.Flags().Int("overlap", -1, "override window.overlap")

	rootCmd.AddCommand(windowsCmd)
}

func runWindows(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	wcfg := windowConfigFromFlags(cmd, cfg.Window)

	builder, err := window.New(wcfg)
	if err != nil {
		return err
	}
	docs, err := readDocuments(args[0])
	if err != nil {
		return err
	}
	retrievedPath, _ := cmd.Flags().GetString("retrieved")
	retrieved, err := readRetrieved(retrievedPath)
	if err != nil {
		return err
	}

	var all []types.ExtractionWindowInput
	for _, doc := range docs {
		all = append(all, builder.Build(doc, retrieved)...)
	}

	out := cmd.OutOrStdout()
	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(out)
		defer enc.Close()
		return enc.Encode(all)
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(all)
	case "table", "":
	default:
		return fmt.Errorf("unsupported format %q: use table, yaml or json", format)
	}

	fmt.Fprintf(out, "%-20s  %-6s  %-30s  %-7s  %-8s  %s\n",
		"Document", "Window", "Paragraphs", "Overlap", "Markers", "ID")
	fmt.Fprintln(out, strings.Repeat("-", 120))
	for _, w := range all {
		doc := w.DocID
		if len(doc) > 20 {
			doc = doc[:17] + "..."
		}
		paras := w.ParagraphIDs[0] + ".." + w.ParagraphIDs[len(w.ParagraphIDs)-1]
		if len(paras) > 30 {
			paras = paras[:27] + "..."
		}
		fmt.Fprintf(out, "%-20s  %-6s  %-30s  %-7s  %-8d  %s\n",
			doc, fmt.Sprintf("%d/%d", w.WindowIndex+1, w.TotalWindows), paras,
			overlapFlags(w), len(w.Transitions), w.WindowID)
	}
	fmt.Fprintf(out, "\n%d windows from %d documents\n", len(all), len(docs))
	return nil
}

func windowConfigFromFlags(cmd *cobra.Command, wcfg types.WindowConfig) types.WindowConfig {
	if v, _ := cmd.Flags().GetInt("min-paragraphs"); v > 0 {
		wcfg.MinParagraphs = v
	}
	if v, _ := cmd.Flags().GetInt("max-paragraphs"); v > 0 {
		wcfg.MaxParagraphs = v
	}
	if v, _ := cmd.Flags().GetInt("overlap"); v >= 0 {
		wcfg.Overlap = v
	}
	return wcfg
}

func overlapFlags(w types.ExtractionWindowInput) string {
	switch {
	case w.HasOverlapStart && w.HasOverlapEnd:
		return "both"
	case w.HasOverlapStart:
		return "start"
	case w.HasOverlapEnd:
		return "end"
	}
	return "-"
}
