package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/argmap/internal/graphstore"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the stored graph to YAML or JSON",
	Long: `Export writes every stored window, grouped by document, to
export.yaml or export.json in the store directory. --doc restricts the
export to one document.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	exportCmd.Flags().String("doc", "", "export only this document")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	docID, _ := cmd.Flags().GetString("doc")

	store, err := graphstore.NewStore(cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	var path string
	switch format {
	case "yaml", "":
		path, err = store.ExportYAML(cmd.Context(), docID)
	case "json":
		path, err = store.ExportJSON(cmd.Context(), docID)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", path)
	return nil
}
