// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/argmap/internal/failure"
	"github.com/pdiddy/argmap/internal/validate"
	"github.com/pdiddy/argmap/pkg/types"
)

var validateCmd = &cobra.Command{
	Use:   "validate <fragment.json>",
	Short: "Validate a graph fragment and classify its failures",
	Long: `Validate runs every structural check on a graph fragment (schema,
grounding, evidence, AIF validity, overgeneration, support cycles,
unrelated conflicts) and prints each hard error and soft warning verbatim.
Hard errors are then classified into error kinds with their recovery hint
and retry budget.

Pass --retrieved with the context the window was given to flag retrieved
proposition ids used as locutions. Exits non-zero when the fragment is
invalid.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().String("retrieved", "", "YAML or JSON file with the retrieved context of the window")
	validateCmd.Flags().Bool("strict", false, "treat overgeneration warnings as failures")
	validateCmd.Flags().Bool("json", false, "print the validation result as JSON")

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	policy, err := failure.PolicyFromConfig(cfg.Retry)
	if err != nil {
		return err
	}

	frag, err := readFragment(args[0])
	if err != nil {
		return err
	}
	retrievedPath, _ := cmd.Flags().GetString("retrieved")
	retrieved, err := readRetrieved(retrievedPath)
	if err != nil {
		return err
	}

	strict, _ := cmd.Flags().GetBool("strict")
	opts := failure.ClassifyOptions{StrictOvergeneration: strict || cfg.Extraction.StrictOvergeneration}

	res := validate.Validate(frag)
	errs := failure.Classify(res, types.ExtractionWindowInput{RetrievedContext: retrieved}, opts)

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(struct {
			Result types.ValidationResult     `json:"result"`
			Errors []*failure.ExtractionError `json:"errors"`
		}{res, errs}); err != nil {
			return err
		}
	} else {
		printValidation(out, res, errs, policy)
	}

	if len(errs) > 0 {
		return fmt.Errorf("fragment rejected: %d error kind(s)", len(errs))
	}
	return nil
}

func printValidation(w io.Writer, res types.ValidationResult, errs []*failure.ExtractionError, policy failure.RetryPolicy) {
	if res.IsValid {
		fmt.Fprintln(w, "valid")
	} else {
		fmt.Fprintln(w, "invalid")
	}

	if len(res.HardErrors) > 0 {
		fmt.Fprintf(w, "\nhard errors (%d):\n", len(res.HardErrors))
		for _, issue := range res.HardErrors {
			fmt.Fprintf(w, "  %s\n", issue)
		}
	}
	if len(res.SoftWarnings) > 0 {
		fmt.Fprintf(w, "\nsoft warnings (%d):\n", len(res.SoftWarnings))
		for _, issue := range res.SoftWarnings {
			fmt.Fprintf(w, "  %s\n", issue)
		}
	}
	if len(errs) > 0 {
		fmt.Fprintln(w, "\nclassification:")
		for _, xe := range errs {
			fmt.Fprintf(w, "  %s (max retries %d): %s\n", xe.Kind, policy.MaxRetries[xe.Kind], xe.Message)
			fmt.Fprintf(w, "    recovery: %s\n", xe.SuggestedRecovery)
		}
	}
}
