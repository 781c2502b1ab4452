package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ocrmate/ocrmate/internal/annotate"
	"github.com/ocrmate/ocrmate/internal/ocr"
	"github.com/ocrmate/ocrmate/internal/schema"
)

var annotateSchemaPath string

var annotateCmd = &cobra.Command{
	Use:   "annotate",
	Short: "Build and manage ground-truth annotations",
}

var annotateCreateCmd = &cobra.Command{
	Use:   "create <document>",
	Short: "Create an annotation prefilled from OCR",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("ocr"); err != nil {
			return err
		}

		s, err := schema.Load(annotateSchemaPath)
		if err != nil {
			return err
		}

		ocrClient, err := ocr.NewClient(cfg.OCR)
		if err != nil {
			return err
		}

		doc, err := annotate.NewAssistant(ocrClient).CreateAnnotation(cmd.Context(), args[0], s)
		if err != nil {
			return err
		}

		store, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Save(cmd.Context(), doc); err != nil {
			return err
		}

		fmt.Printf("Created annotation for %s with %d prefilled fields\n", args[0], len(doc.Annotations))
		return nil
	},
}

var annotateSetCmd = &cobra.Command{
	Use:   "set <document> <field> <value>",
	Short: "Set a field value on an annotation",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		docPath, fieldName, value := args[0], args[1], args[2]

		s, err := schema.Load(annotateSchemaPath)
		if err != nil {
			return err
		}
		field := s.ByName(fieldName)
		if field == nil {
			return fmt.Errorf("unknown field %q (schema has: %s)", fieldName, strings.Join(fieldNames(s), ", "))
		}

		store, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		doc, err := store.Get(cmd.Context(), docPath)
		if err != nil {
			doc = &annotate.DocumentAnnotation{
				DocumentPath:  docPath,
				SchemaVersion: s.Version,
			}
		}

		source := annotate.SourceUserManual
		if doc.Value(fieldName) != nil {
			source = annotate.SourceUserEdited
		}
		doc.SetFieldValue(fieldName, value, source, nil)
		doc.IsComplete = doc.Status(s).IsComplete

		if err := store.Save(cmd.Context(), doc); err != nil {
			return err
		}

		zap.L().Info("field annotated",
			zap.String("document", docPath),
			zap.String("field", fieldName),
			zap.String("source", string(source)),
		)
		return nil
	},
}

var annotateConfirmCmd = &cobra.Command{
	Use:   "confirm <document> <field>",
	Short: "Mark an OCR-prefilled field as verified",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		docPath, fieldName := args[0], args[1]

		s, err := schema.Load(annotateSchemaPath)
		if err != nil {
			return err
		}

		store, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		doc, err := store.Get(cmd.Context(), docPath)
		if err != nil {
			return err
		}

		doc.MarkFieldVerified(fieldName)
		doc.IsComplete = doc.Status(s).IsComplete

		return store.Save(cmd.Context(), doc)
	},
}

var annotateStatusCmd = &cobra.Command{
	Use:   "status <document>",
	Short: "Show annotation completion status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := schema.Load(annotateSchemaPath)
		if err != nil {
			return err
		}

		store, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		doc, err := store.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		status := doc.Status(s)
		fmt.Printf("Document: %s\n", doc.DocumentPath)
		fmt.Printf("Annotated: %d/%d  Verified: %d\n", status.AnnotatedFields, status.TotalFields, status.VerifiedFields)
		if len(status.MissingRequired) > 0 {
			fmt.Printf("Missing required: %s\n", strings.Join(status.MissingRequired, ", "))
		}
		if len(status.UnverifiedRequired) > 0 {
			fmt.Printf("Unverified required: %s\n", strings.Join(status.UnverifiedRequired, ", "))
		}
		if status.IsComplete {
			fmt.Println("Complete: yes")
		} else {
			fmt.Println("Complete: no")
		}
		return nil
	},
}

func fieldNames(s *schema.Schema) []string {
	names := make([]string, len(s.Fields))
	for i := range s.Fields {
		names[i] = s.Fields[i].Name
	}
	return names
}

func init() {
	annotateCmd.PersistentFlags().StringVar(&annotateSchemaPath, "schema", "schema.yaml", "path to the field schema")
	annotateCmd.AddCommand(annotateCreateCmd, annotateSetCmd, annotateConfirmCmd, annotateStatusCmd)
	rootCmd.AddCommand(annotateCmd)
}
