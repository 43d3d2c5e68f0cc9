package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/argmap/internal/graphstore"
)

var propsCmd = &cobra.Command{
	Use:   "props [query]",
	Short: "Search stored propositions",
	Long: `Props searches the text summaries of stored propositions with SQLite
FTS5 full-text matching, ranked by relevance. Without a query it lists
propositions in document and window order.`,
	RunE: runProps,
}

func init() {
	propsCmd.Flags().String("doc", "", "filter by document ID")
	propsCmd.Flags().Int("limit", 20, "maximum number of results")
	propsCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(propsCmd)
}

func runProps(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	store, err := graphstore.NewStore(cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	q := graphstore.PropositionQuery{Query: strings.Join(args, " ")}
	q.DocID, _ = cmd.Flags().GetString("doc")
	q.Limit, _ = cmd.Flags().GetInt("limit")

	hits, err := store.SearchPropositions(cmd.Context(), q)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(hits)
	}

	if len(hits) == 0 {
		fmt.Fprintln(out, "No results found.")
		return nil
	}
	fmt.Fprintf(out, "%-4s  %-20s  %-6s  %-8s  %-60s  %s\n", "Rank", "Document", "Window", "Prop", "Summary", "Conf")
	fmt.Fprintln(out, strings.Repeat("-", 116))
	for i, h := range hits {
		doc := h.DocID
		if len(doc) > 20 {
			doc = doc[:17] + "..."
		}
		summary := h.TextSummary
		if len(summary) > 60 {
			summary = summary[:57] + "..."
		}
		fmt.Fprintf(out, "%-4d  %-20s  %-6d  %-8s  %-60s  %.2f\n",
			i+1, doc, h.WindowIndex+1, h.PropID, summary, h.Confidence)
	}
	fmt.Fprintf(out, "\n%d results\n", len(hits))
	return nil
}
