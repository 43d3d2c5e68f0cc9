// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/argmap/internal/failure"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Print the effective retry policy",
	Long: `Policy prints the retry budget and suggested recovery of every error
kind, followed by the advisory backoff schedule, after applying the retry
section of the config.`,
	RunE: runPolicy,
}

func init() {
	policyCmd.Flags().Int("attempts", 6, "number of backoff steps to show")

	rootCmd.AddCommand(policyCmd)
}

func runPolicy(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	policy, err := failure.PolicyFromConfig(cfg.Retry)
	if err != nil {
		return err
	}
	steps, _ := cmd.Flags().GetInt("attempts")

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-26s  %-11s  %s\n", "Kind", "Max retries", "Recovery")
	fmt.Fprintln(out, strings.Repeat("-", 100))
	for _, k := range failure.Kinds {
		fmt.Fprintf(out, "%-26s  %-11d  %s\n", k, policy.MaxRetries[k], k.SuggestedRecovery())
	}

	fmt.Fprintf(out, "\nbackoff (base %s, max %s):", policy.BaseBackoff, policy.MaxBackoff)
	for i := range steps {
		fmt.Fprintf(out, " %s", policy.Backoff(i))
	}
	fmt.Fprintln(out)
	return nil
}
