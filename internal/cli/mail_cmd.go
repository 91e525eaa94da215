package cli

import (
	"fmt"
	"os"
	"syscall"

	"github.com/momo0222/momail-backend/internal/config"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// mailCmd represents the mail command group
var mailCmd = &cobra.Command{
	Use:   "mail",
	Short: "Mailbox account management",
	Long:  `Manage the watched mailbox account.`,
}

// mailSetPasswordCmd stores the mailbox password in the config file
var mailSetPasswordCmd = &cobra.Command{
	Use:   "set-password",
	Short: "Store the mailbox password",
	Long: `Prompt for the IMAP/SMTP password of the watched mailbox and store
it in config.json. Input is hidden.`,
	Run: func(cmd *cobra.Command, args []string) {
		if cfg.Mail.Address == "" {
			fmt.Fprintln(os.Stderr, "Error: no mailbox address configured, set mail.address in config.json first")
			os.Exit(1)
		}

		// Get password (hidden input)
		fmt.Printf("Password for %s: ", cfg.Mail.Address)
		passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			fmt.Fprintf(os.Stderr, "\nError: failed to read password: %v\n", err)
			os.Exit(1)
		}
		fmt.Println()
		password := string(passwordBytes)
		if password == "" {
			fmt.Fprintln(os.Stderr, "Error: password must not be empty")
			os.Exit(1)
		}

		// Confirm password
		fmt.Print("Confirm password: ")
		confirmBytes, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			fmt.Fprintf(os.Stderr, "\nError: failed to read password: %v\n", err)
			os.Exit(1)
		}
		fmt.Println()
		if password != string(confirmBytes) {
			fmt.Fprintln(os.Stderr, "Error: passwords do not match")
			os.Exit(1)
		}

		cfg.Mail.Password = password
		if err := cfg.Save(config.ConfigFileName); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to save configuration: %v\n", err)
			os.Exit(1)
		}

		fmt.Println("Password saved.")
	},
}

func init() {
	mailCmd.AddCommand(mailSetPasswordCmd)
}
