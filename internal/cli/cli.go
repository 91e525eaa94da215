package cli

import (
	"fmt"
	"os"

	"github.com/momo0222/momail-backend/internal/api/middleware"
	"github.com/momo0222/momail-backend/internal/config"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	db            *gorm.DB
	cfg           *config.Config
	apiKeyManager *middleware.APIKeyManager
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "momail",
	Short: "Momail email triage assistant backend",
	Long: `Momail is the backend service of an email triage assistant. It
watches a mailbox, classifies incoming mail and proposes actions that
the user approves or rejects before anything is sent.

This command line tool provides:
  - key management: show and reset the API key
  - agent operations: run a one-shot triage pass
  - configuration: inspect agent settings, store the mailbox password

Examples:
  momail key show          # print the current API key
  momail key reset         # rotate the API key
  momail agent triage      # run one triage pass and exit
  momail config show       # print the stored agent configuration
  momail mail set-password # store the mailbox password`,
}

// Execute runs the CLI with the provided database and config
func Execute(database *gorm.DB, config *config.Config) {
	db = database
	cfg = config

	// Initialize API key manager
	var err error
	apiKeyManager, err = middleware.NewAPIKeyManager(cfg.DataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize API key manager: %v\n", err)
		os.Exit(1)
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Add subcommands
	rootCmd.AddCommand(keyCmd)
	rootCmd.AddCommand(agentCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(mailCmd)
}
