package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var envFiles []string

// rootCmd runs the gateway when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "jobboard-gateway",
	Short: "Backend-for-frontend of the job board",
	Long: `jobboard-gateway sits between the job board front end and the backend API.

It proxies /api routes, keeps the per-visitor session (encrypted cookie or
server-side store) and guards the page routes by role.

Run without arguments to start the HTTP server.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load (default .env)")
	rootCmd.AddCommand(serveCmd, storageCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
