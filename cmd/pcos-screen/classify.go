package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pcos-screening-server/internal/domain"
	"github.com/pcos-screening-server/internal/service"
	"github.com/pcos-screening-server/internal/store"
)

func newClassifyCmd(opts *cliOptions) *cobra.Command {
	var (
		userID    string
		narrative bool
		save      bool
	)

	cmd := &cobra.Command{
		Use:   "classify [file|-]",
		Short: "Screen a symptom record read from a JSON or YAML file",
		Long: "Screen a symptom record. The record is a JSON or YAML mapping of field names such as " +
			"cycle_gap_days, acne or bmi to values; unknown fields are ignored and missing fields count as unknown. " +
			"With no argument or \"-\" the record is read from stdin.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("opening symptom record: %w", err)
				}
				defer f.Close()
				in = f
			}

			symptoms, err := readSymptoms(in)
			if err != nil {
				return err
			}

			logger, err := opts.logger()
			if err != nil {
				return err
			}

			var st store.Store
			if save {
				sqlite, err := opts.openStore()
				if err != nil {
					return err
				}
				defer sqlite.Close()
				st = sqlite
			}

			rec, err := opts.newClassifier(st, logger).Screen(cmd.Context(), service.ScreenRequest{
				Symptoms:         symptoms,
				UserID:           userID,
				IncludeNarrative: narrative,
			})
			if err != nil {
				return err
			}
			return writeScreening(cmd.OutOrStdout(), opts.output, rec, save)
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "User the screening belongs to")
	cmd.Flags().BoolVar(&narrative, "narrative", false, "Add a plain-language explanation")
	cmd.Flags().BoolVar(&save, "save", true, "Store the screening in the SQLite store")
	return cmd
}

// readSymptoms decodes one symptom record. JSON input is accepted as YAML.
func readSymptoms(r io.Reader) (map[string]any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading symptom record: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, fmt.Errorf("symptom record is empty: %w", domain.ErrInvalidInput)
	}

	var symptoms map[string]any
	if err := yaml.Unmarshal(data, &symptoms); err != nil {
		return nil, fmt.Errorf("parsing symptom record: %w", err)
	}
	if symptoms == nil {
		return nil, fmt.Errorf("symptom record must be a mapping: %w", domain.ErrInvalidInput)
	}
	return symptoms, nil
}

func writeScreening(w io.Writer, format string, rec *domain.ScreeningRecord, saved bool) error {
	if format == "json" {
		return writeJSON(w, rec)
	}

	r := rec.Result
	fmt.Fprintf(w, "Phenotype:      %s\n", r.Phenotype)
	fmt.Fprintf(w, "Confidence:     %.1f\n", r.Confidence)
	fmt.Fprintf(w, "Data quality:   %d%%\n", r.DataQualityScore)
	if r.HasDifferential() {
		fmt.Fprintf(w, "Differential:   %s\n", r.DifferentialDiagnosis)
	}
	fmt.Fprintf(w, "Rule version:   %s\n", r.RuleVersion)
	if saved {
		fmt.Fprintf(w, "Screening ID:   %s\n", rec.ID)
	}
	fmt.Fprintln(w, "Reasons:")
	for _, reason := range r.Reasons {
		fmt.Fprintf(w, "  - %s\n", reason)
	}
	if rec.Narrative != "" {
		fmt.Fprintf(w, "\n%s\n", rec.Narrative)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newRulesCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "Describe the frozen rule set",
		RunE: func(cmd *cobra.Command, args []string) error {
			desc := service.DescribeRuleSet()
			w := cmd.OutOrStdout()
			if opts.output == "json" {
				return writeJSON(w, desc)
			}

			fmt.Fprintf(w, "Rule version %s\n\nBranches (first match wins):\n", desc.RuleVersion)
			for _, b := range desc.Branches {
				fmt.Fprintf(w, "  %d. %-20s %s (confidence %s)\n", b.Order, b.Branch, b.Condition, b.Confidence)
			}
			fmt.Fprintln(w, "\nThresholds:")
			for _, t := range desc.Thresholds {
				fmt.Fprintf(w, "  %-48s %s %s %g\n", t.Name, t.Field, t.Comparator, t.Value)
			}
			fmt.Fprintf(w, "\nRed flags: %s\n", strings.Join(desc.RedFlags, ", "))
			fmt.Fprintf(w, "Differential flags: %s\n", strings.Join(desc.DifferentialFlags, ", "))
			fmt.Fprintf(w, "\n%s\n", desc.Disclaimer)
			return nil
		},
	}
}
