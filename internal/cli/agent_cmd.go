package cli

import (
	"fmt"
	"os"

	"github.com/momo0222/momail-backend/internal/ai"
	"github.com/momo0222/momail-backend/internal/database/models"
	"github.com/momo0222/momail-backend/internal/functions"
	"github.com/momo0222/momail-backend/internal/mail"
	"github.com/momo0222/momail-backend/internal/services"
	"github.com/spf13/cobra"
)

// agentCmd represents the agent command group
var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Triage agent operations",
	Long:  `Run the triage agent from the command line.`,
}

// agentTriageCmd runs a single triage pass and exits
var agentTriageCmd = &cobra.Command{
	Use:   "triage",
	Short: "Run one triage pass",
	Long: `Poll the mailbox once, classify unread messages and record pending
actions, then exit. Useful from cron or for testing a configuration.`,
	Run: func(cmd *cobra.Command, args []string) {
		var provider mail.Provider
		if cfg.DemoMode {
			provider = mail.NewDemoProvider(cfg.Mail.Address)
		} else {
			provider = mail.NewIMAPProvider(cfg.Mail)
		}

		aiClient := ai.NewClient()
		aiClient.ConfigureWithBaseURL(cfg.AI.Provider, cfg.AI.APIKey, cfg.AI.Model, cfg.AI.BaseURL)
		if !aiClient.IsConfigured() {
			fmt.Println("Note: no AI key configured, classifying with local heuristics")
		}
		classifier := functions.NewClassifier(aiClient)

		logService := services.NewLogServiceWithLevel(db, cfg.LogLevel)
		configService := services.NewConfigService(db, logService)
		actionService := services.NewActionService(db, logService)
		agentService := services.NewAgentService(db, provider, classifier, aiClient, actionService, configService, logService)

		proposed, err := agentService.RunCycle()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: triage pass failed: %v\n", err)
			os.Exit(1)
		}
		logService.LogInfo(models.LogModuleCLI, "triage", "Manual triage pass completed", map[string]interface{}{
			"proposed": proposed,
		})

		fmt.Printf("Triage pass completed: %d new proposals\n", proposed)

		pending, err := actionService.ListPending()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to list pending actions: %v\n", err)
			os.Exit(1)
		}
		if len(pending) == 0 {
			fmt.Println("No actions awaiting review.")
			return
		}

		fmt.Printf("%d actions awaiting review:\n", len(pending))
		for _, action := range pending {
			fmt.Printf("  #%d  %-8s  email %s  %s\n", action.ID, action.Kind, action.EmailID, action.Reason)
		}
	},
}

func init() {
	agentCmd.AddCommand(agentTriageCmd)
}
