package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ocrmate/ocrmate/internal/annotate"
	"github.com/ocrmate/ocrmate/internal/export"
)

var (
	exportOutput     string
	exportReviewOnly bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored verifications to an XLSX workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("export"); err != nil {
			return err
		}

		out := exportOutput
		if out == "" {
			out = cfg.Export.OutputPath
		}

		store, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		verifications, err := store.ListVerifications(cmd.Context(), annotate.VerificationFilter{
			NeedsReviewOnly: exportReviewOnly,
		})
		if err != nil {
			return err
		}

		if err := export.WriteXLSX(out, verifications); err != nil {
			return err
		}

		zap.L().Info("exported verifications",
			zap.Int("count", len(verifications)),
			zap.String("path", out),
		)
		fmt.Printf("Wrote %d verifications to %s\n", len(verifications), out)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOutput, "output", "", "output file path (overrides config)")
	exportCmd.Flags().BoolVar(&exportReviewOnly, "review-only", false, "export only documents flagged for human review")
	rootCmd.AddCommand(exportCmd)
}
