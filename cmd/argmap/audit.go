// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/argmap/internal/failure"
	"github.com/pdiddy/argmap/internal/graphstore"
	"github.com/pdiddy/argmap/pkg/types"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "List stored soft warnings and failure records",
	Long: `Audit prints the soft warnings attached to accepted windows and the
failure records of rejected windows from the graph store, verbatim.
Filter by document, window, error kind or check name. --warnings or
--failures restricts the listing to one of the two.`,
	RunE: runAudit,
}

func init() {
	auditCmd.Flags().String("doc", "", "filter by document ID")
	auditCmd.Flags().String("window", "", "filter by window ID")
	auditCmd.Flags().String("kind", "", "filter failures by error kind, e.g. GROUNDING_FAILURE")
	auditCmd.Flags().String("check", "", "filter warnings by check name, e.g. cycles")
	auditCmd.Flags().Bool("warnings", false, "list only soft warnings")
	auditCmd.Flags().Bool("failures", false, "list only failure records")
	auditCmd.Flags().Bool("json", false, "output records as JSON")

	rootCmd.AddCommand(auditCmd)
}

func runAudit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}

	q := graphstore.AuditQuery{}
	q.DocID, _ = cmd.Flags().GetString("doc")
	q.WindowID, _ = cmd.Flags().GetString("window")
	kind, _ := cmd.Flags().GetString("kind")
	check, _ := cmd.Flags().GetString("check")
	if kind != "" {
		q.Kind = failure.Kind(strings.ToUpper(kind))
		if !q.Kind.Valid() {
			return fmt.Errorf("unknown error kind %q", kind)
		}
	}
	q.Check = types.CheckName(check)

	onlyWarnings, _ := cmd.Flags().GetBool("warnings")
	onlyFailures, _ := cmd.Flags().GetBool("failures")
	showWarnings := !onlyFailures
	showFailures := !onlyWarnings

	store, err := graphstore.NewStore(cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	var (
		warnings []graphstore.WarningRecord
		failures []graphstore.FailureRecord
	)
	if showWarnings {
		if warnings, err = store.ListWarnings(cmd.Context(), q); err != nil {
			return err
		}
	}
	if showFailures {
		if failures, err = store.ListFailures(cmd.Context(), q); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Warnings []graphstore.WarningRecord `json:"warnings,omitempty"`
			Failures []graphstore.FailureRecord `json:"failures,omitempty"`
		}{warnings, failures})
	}

	if showWarnings {
		printWarnings(out, warnings)
	}
	if showFailures {
		if showWarnings {
			fmt.Fprintln(out)
		}
		printFailures(out, failures)
	}
	return nil
}

func printWarnings(w io.Writer, records []graphstore.WarningRecord) {
	fmt.Fprintf(w, "soft warnings (%d):\n", len(records))
	for _, r := range records {
		fmt.Fprintf(w, "  %s %s  %s\n", r.DocID, shortID(r.WindowID), r.Issue)
	}
}

func printFailures(w io.Writer, records []graphstore.FailureRecord) {
	fmt.Fprintf(w, "failure records (%d):\n", len(records))
	for _, r := range records {
		fmt.Fprintf(w, "  %s  %s (retries %d)\n", r.RecordedAt.Format("2006-01-02 15:04:05"), r.Error(), r.RetryCount)
		if r.SuggestedRecovery != "" {
			fmt.Fprintf(w, "    recovery: %s\n", r.SuggestedRecovery)
		}
	}
}

// shortID abbreviates a window UUID for table output.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
