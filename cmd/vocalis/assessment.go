package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/koscakluka/vocalis/core/assessment"
	"github.com/koscakluka/vocalis/core/scoring"
)

func newScoreCommand() *cobra.Command {
	var (
		reference string
		observed  string
		stability float64
		movement  float64
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score one vision reading test",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := scoring.ValidateComponent("stability", stability); err != nil {
				return err
			}
			if err := scoring.ValidateComponent("movement", movement); err != nil {
				return err
			}

			accuracy := scoring.ReadingAccuracy(reference, observed)
			return writeJSON(cmd.OutOrStdout(), scoring.Score(accuracy, stability, movement))
		},
	}
	cmd.Flags().StringVar(&reference, "reference", "", "text the user was asked to read")
	cmd.Flags().StringVar(&observed, "observed", "", "text the user actually read")
	cmd.Flags().Float64Var(&stability, "stability", 0, "behavioral stability score (0-100)")
	cmd.Flags().Float64Var(&movement, "movement", 0, "movement score (0-100)")
	_ = cmd.MarkFlagRequired("reference")
	return cmd
}

func newReportCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Print the assessment report for the configured dataset",
		RunE: func(cmd *cobra.Command, _ []string) error {
			dataset, err := loadDataset(root)
			if err != nil {
				return err
			}
			report, err := assessment.GenerateReport(dataset)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}
}

func newDecideCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "decide",
		Short: "Decide which assistant the configured dataset calls for",
		RunE: func(cmd *cobra.Command, _ []string) error {
			dataset, err := loadDataset(root)
			if err != nil {
				return err
			}
			decision, err := assessment.Decide(dataset)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, domain := range assessment.Domains {
				score := decision.DomainScores[domain]
				paint := color.GreenString
				if score < assessment.NeedThreshold {
					paint = color.YellowString
				}
				fmt.Fprintf(out, "  %-10s %s\n", domain, paint("%6.2f", score))
			}
			fmt.Fprintf(out, "\n  %s %s\n", color.HiBlackString("assistant:"), color.New(color.FgCyan, color.Bold).Sprint(decision.Assistant))
			return nil
		},
	}
}

func loadDataset(root *rootOptions) (assessment.Dataset, error) {
	cfg, err := loadConfig(root)
	if err != nil {
		return nil, err
	}
	if cfg.Assessment.DatasetPath == "" {
		return assessment.DefaultDataset(), nil
	}
	return assessment.LoadDataset(cfg.Assessment.DatasetPath)
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
