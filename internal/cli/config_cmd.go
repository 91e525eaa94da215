package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/momo0222/momail-backend/internal/services"
	"github.com/spf13/cobra"
)

// configCmd represents the config command group
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Agent configuration",
	Long:  `Inspect the stored agent configuration.`,
}

// configShowCmd prints the stored agent configuration
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the agent configuration",
	Run: func(cmd *cobra.Command, args []string) {
		logService := services.NewLogServiceWithLevel(db, cfg.LogLevel)
		configService := services.NewConfigService(db, logService)

		agentConfig, err := configService.GetConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to load configuration: %v\n", err)
			os.Exit(1)
		}

		fmt.Println("Agent configuration:")
		fmt.Printf("  check interval:  %d seconds\n", agentConfig.CheckInterval)
		fmt.Printf("  dry-run mode:    %t\n", agentConfig.DryRunMode)
		fmt.Printf("  auto-reply:      %t\n", agentConfig.EnableAutoReply)
		fmt.Printf("  spam filter:     %t\n", agentConfig.EnableSpamFilter)
		fmt.Printf("  whitelist:       %s\n", orNone(strings.Join(agentConfig.GetWhitelist(), ", ")))
		fmt.Printf("  blacklist:       %s\n", orNone(strings.Join(agentConfig.GetBlacklist(), ", ")))
		fmt.Println()
		fmt.Println("Server:")
		fmt.Printf("  mailbox:         %s\n", orNone(cfg.Mail.Address))
		fmt.Printf("  demo mode:       %t\n", cfg.DemoMode)
		fmt.Printf("  database:        %s\n", cfg.DatabasePath)
		fmt.Printf("  data directory:  %s\n", cfg.DataDir)
	},
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func init() {
	configCmd.AddCommand(configShowCmd)
}
