package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ocrmate/ocrmate/internal/ocr"
	"github.com/ocrmate/ocrmate/internal/schema"
	"github.com/ocrmate/ocrmate/internal/train"
)

var (
	datasetSchemaPath    string
	datasetTrainFraction float64
	datasetGrounding     bool
)

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Build a training dataset from completed annotations",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := schema.Load(datasetSchemaPath)
		if err != nil {
			return err
		}

		store, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		builder := train.NewDatasetBuilder(store, s)
		if datasetGrounding {
			if err := cfg.Validate("ocr"); err != nil {
				return err
			}
			ocrClient, err := ocr.NewClient(cfg.OCR)
			if err != nil {
				return err
			}
			builder = builder.WithOCRGrounding(ocrClient)
		}

		examples, err := builder.Build(cmd.Context())
		if err != nil {
			return err
		}

		trainSet, valSet := train.SplitTrainVal(examples, datasetTrainFraction)
		fmt.Printf("Built %d examples: %d train, %d validation\n", len(examples), len(trainSet), len(valSet))
		return nil
	},
}

func init() {
	datasetCmd.Flags().StringVar(&datasetSchemaPath, "schema", "schema.yaml", "path to the field schema")
	datasetCmd.Flags().Float64Var(&datasetTrainFraction, "train-fraction", 0.8, "fraction of examples assigned to the training split")
	datasetCmd.Flags().BoolVar(&datasetGrounding, "ocr-grounding", false, "attach OCR markdown to each example")
	rootCmd.AddCommand(datasetCmd)
}
