package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/argmap/internal/discourse"
	"github.com/pdiddy/argmap/pkg/types"
)

var markersCmd = &cobra.Command{
	Use:   "markers [text...]",
	Short: "Detect discourse markers in text",
	Long: `Markers scans text for discourse markers (however, therefore, although,
furthermore, ...) and prints each occurrence with its transition hint and
byte offset. Text comes from the arguments, --file, or stdin when neither
is given. Use --list to print the marker tables.`,
	RunE: runMarkers,
}

func init() {
	markersCmd.Flags().String("file", "", "read text from a file")
	markersCmd.Flags().Bool("list", false, "print the marker tables and exit")

	rootCmd.AddCommand(markersCmd)
}

func runMarkers(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if list, _ := cmd.Flags().GetBool("list"); list {
		tables := discourse.Markers()
		for _, hint := range types.TransitionHints {
			fmt.Fprintf(out, "%-12s  %s\n", hint, strings.Join(tables[hint], ", "))
		}
		return nil
	}

	text, err := markerInput(cmd, args)
	if err != nil {
		return err
	}

	found := discourse.Detect(text)
	if len(found) == 0 {
		fmt.Fprintln(out, "No markers found.")
		return nil
	}
	fmt.Fprintf(out, "%-8s  %-24s  %s\n", "Position", "Marker", "Hint")
	fmt.Fprintln(out, strings.Repeat("-", 50))
	for _, t := range found {
		fmt.Fprintf(out, "%-8d  %-24s  %s\n", t.Position, t.Marker, t.Hint)
	}
	fmt.Fprintf(out, "\n%d markers\n", len(found))
	return nil
}

func markerInput(cmd *cobra.Command, args []string) (string, error) {
	if path, _ := cmd.Flags().GetString("file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading text: %w", err)
		}
		return string(data), nil
	}
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return string(data), nil
}
