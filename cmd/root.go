package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ocrmate/ocrmate/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "ocrmate",
	Short: "Dual-source document field extraction and verification",
	Long:  "Extracts structured fields from documents via OCR and Claude vision, reconciles the two sources field by field, and flags documents for human review.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
