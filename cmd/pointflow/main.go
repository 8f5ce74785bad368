/*
main.go - Application entry point

PURPOSE:
  Starts the PointFlow wallet server and hosts a few offline helpers.

COMMANDS:
  serve     Run the HTTP API (default when no command is given)
  scan      Decide a QR payload against a balance without a server
  encode    Print the canonical pointflow:// URI for a payment or redemption
  catalog   Print the rewards catalog
  ledgers   List or reset the wallet ledgers in a SQLite database

CONFIGURATION:
  --config points at a TOML file (see config/config.go). POINTFLOW_*
  environment variables override the file; --port and --db override both.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the reaper and close the database

EXAMPLES:
  pointflow serve --db ./data/pointflow.db
  pointflow scan --balance 1250 '{"merchant":"Coffee Shop","amount":50}'
  pointflow encode --mode redeem --label vipUpgrade --amount 2000

SEE ALSO:
  - api/server.go: Router configuration
  - session/manager.go: Session lifecycle
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pointflow",
	Short: "PointFlow loyalty points wallet",
	Long: `PointFlow holds a loyalty points balance per connected wallet and lets
it pay merchants, redeem rewards, transfer and swap points.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
