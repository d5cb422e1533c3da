package cli

import (
	"github.com/spf13/cobra"

	"github.com/evcraddock/collective-threads/internal/web"
)

func newServeCmd() *cobra.Command {
	var (
		port   int
		apiKey string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the dev API server",
		Long:  "Start a local GraphQL server backed by the SQLite database. With --api-key, posting comments requires that bearer key.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port, apiKey)
		},
	}

	cmd.Flags().IntVar(&port, "port", 8080, "port to listen on")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "bearer key required for mutations (default: none)")

	return cmd
}

func runServe(port int, apiKey string) error {
	database, err := openDB()
	if err != nil {
		return err
	}
	defer closeDB(database)

	return web.NewServer(database, apiKey).ListenAndServe(port)
}
