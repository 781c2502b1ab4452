package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ocrmate/ocrmate/internal/extract"
	"github.com/ocrmate/ocrmate/internal/ocr"
	"github.com/ocrmate/ocrmate/internal/schema"
	"github.com/ocrmate/ocrmate/internal/verify"
	"github.com/ocrmate/ocrmate/pkg/anthropic"
)

var (
	verifySchemaPath string
	verifyStrategy   string
	verifyThreshold  float64
	verifyJSON       bool
	verifySave       bool
)

var verifyCmd = &cobra.Command{
	Use:   "verify <document>",
	Short: "Extract and cross-check fields from a single document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("verify"); err != nil {
			return err
		}

		s, err := schema.Load(verifySchemaPath)
		if err != nil {
			return err
		}

		verifier, err := buildVerifier()
		if err != nil {
			return err
		}

		dv, err := verifier.VerifyDocument(cmd.Context(), args[0], s)
		if err != nil {
			return err
		}

		if verifySave {
			store, err := initStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.SaveVerification(cmd.Context(), dv); err != nil {
				return err
			}
		}

		return printVerification(dv, verifyJSON)
	},
}

func init() {
	verifyCmd.Flags().StringVar(&verifySchemaPath, "schema", "schema.yaml", "path to the field schema")
	verifyCmd.Flags().StringVar(&verifyStrategy, "strategy", "", "conflict resolution strategy (overrides config)")
	verifyCmd.Flags().Float64Var(&verifyThreshold, "threshold", -1, "human review confidence threshold (overrides config)")
	verifyCmd.Flags().BoolVar(&verifyJSON, "json", false, "print the full verification as JSON")
	verifyCmd.Flags().BoolVar(&verifySave, "save", false, "persist the verification to the store")
	rootCmd.AddCommand(verifyCmd)
}

// buildVerifier wires the OCR and LLM extractors from config, applying any
// strategy or threshold flag overrides.
func buildVerifier() (*verify.Verifier, error) {
	ocrClient, err := ocr.NewClient(cfg.OCR)
	if err != nil {
		return nil, err
	}

	strategyName := cfg.Verify.Strategy
	if verifyStrategy != "" {
		strategyName = verifyStrategy
	}
	strategy, err := verify.ParseStrategy(strategyName)
	if err != nil {
		return nil, err
	}

	threshold := cfg.Verify.HumanReviewThreshold
	if verifyThreshold >= 0 {
		threshold = verifyThreshold
	}

	llmClient := anthropic.NewClient(cfg.Anthropic.Key)
	ocrExtractor := extract.NewKeywordExtractor(ocrClient)
	llmExtractor := extract.NewLLMExtractor(llmClient, cfg.Anthropic.Model).WithOCRGrounding(ocrClient)

	return verify.NewVerifier(ocrExtractor, llmExtractor, strategy, threshold)
}

func printVerification(dv *verify.DocumentVerification, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(dv); err != nil {
			return eris.Wrap(err, "encode verification")
		}
		return nil
	}

	fmt.Printf("Document: %s\n", dv.DocumentPath)
	fmt.Printf("Overall confidence: %.2f  Match rate: %.2f\n", dv.OverallConfidence, dv.MatchRate)
	for _, fv := range dv.Fields {
		marker := " "
		if fv.Status == verify.StatusMismatch {
			marker = "!"
		}
		fmt.Printf("  %s %-24s %-12s %v (%.2f)\n", marker, fv.FieldName, fv.Status, fv.FinalValue, fv.ConfidenceScore)
	}
	if dv.NeedsHumanReview {
		fmt.Println("NEEDS HUMAN REVIEW")
		zap.L().Warn("document flagged for human review",
			zap.String("document", dv.DocumentPath),
			zap.Float64("confidence", dv.OverallConfidence),
			zap.Float64("match_rate", dv.MatchRate),
		)
	}
	return nil
}
