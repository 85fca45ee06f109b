package commands

import (
	"github.com/spf13/cobra"
)

var (
	// cachePath is the path to the local cache database.
	cachePath string

	// apiURL is the base URL of the medgenied materials API.
	apiURL string

	// apiToken is the bearer token for the materials API. Empty
	// means the remote tier is skipped entirely.
	apiToken string

	// ownerID scopes remote records to one account.
	ownerID string

	// outputFormat controls output format (text, json).
	outputFormat string

	// verbose enables debug logging.
	verbose bool
)

// rootCmd is the base command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "medgenie",
	Short: "MedGenie study material CLI",
	Long: `MedGenie generates and caches AI study materials per
(institution, subject, year) selection.

Lookups walk the tiers cheapest-first: the device-local cache, the
shared materials store (when credentials are configured), and finally
generation via the Gemini backend.`,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags.
	rootCmd.PersistentFlags().StringVar(
		&cachePath, "cache", "",
		"Path to local cache database (default: ~/.medgenie/cache.db)",
	)
	rootCmd.PersistentFlags().StringVar(
		&apiURL, "api", "",
		"Base URL of the medgenied materials API (from $MEDGENIE_API)",
	)
	rootCmd.PersistentFlags().StringVar(
		&apiToken, "token", "",
		"Bearer token for the materials API (from $MEDGENIE_TOKEN)",
	)
	rootCmd.PersistentFlags().StringVar(
		&ownerID, "owner", "",
		"Owner ID for remote records (from $MEDGENIE_OWNER)",
	)
	rootCmd.PersistentFlags().StringVar(
		&outputFormat, "format", "text",
		"Output format: text, json",
	)
	rootCmd.PersistentFlags().BoolVar(
		&verbose, "verbose", false,
		"Enable debug logging",
	)

	// Add subcommands.
	rootCmd.AddCommand(studyCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(rateCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)
}
