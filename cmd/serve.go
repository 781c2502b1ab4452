package main

import (
	"github.com/spf13/cobra"

	"github.com/ocrmate/ocrmate/internal/schema"
	"github.com/ocrmate/ocrmate/internal/server"
)

var (
	serveSchemaPath string
	servePort       int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the annotation review API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		s, err := schema.Load(serveSchemaPath)
		if err != nil {
			return err
		}

		store, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		srvCfg := cfg.Server
		if servePort != 0 {
			srvCfg.Port = servePort
		}

		return server.New(srvCfg, store, s).Start()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveSchemaPath, "schema", "schema.yaml", "path to the field schema")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
