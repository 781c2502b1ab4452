package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ocrmate/ocrmate/internal/schema"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Inspect field schema files",
}

var schemaValidateCmd = &cobra.Command{
	Use:   "validate <schema.yaml>",
	Short: "Check a schema file for errors",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := schema.Load(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Schema version %d OK: %d fields, %d required\n", s.Version, len(s.Fields), len(s.Required()))
		return nil
	},
}

var schemaShowCmd = &cobra.Command{
	Use:   "show <schema.yaml>",
	Short: "Print the extraction prompt description of a schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := schema.Load(args[0])
		if err != nil {
			return err
		}
		fmt.Println(s.PromptDescription())
		return nil
	},
}

func init() {
	schemaCmd.AddCommand(schemaValidateCmd, schemaShowCmd)
	rootCmd.AddCommand(schemaCmd)
}
