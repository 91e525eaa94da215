// Command test_imap checks IMAP connectivity for the configured mailbox
// and prints the unread messages the triage loop would see. Run it from
// the directory holding config.json.
package main

import (
	"log"

	"github.com/momo0222/momail-backend/internal/config"
	"github.com/momo0222/momail-backend/internal/mail"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Mail.Address == "" {
		log.Fatal("No mailbox configured, set mail.address in config.json")
	}

	log.Printf("Connecting to %s as %s...", cfg.Mail.IMAPHost, cfg.Mail.Username)
	provider := mail.NewIMAPProvider(cfg.Mail)

	ids, err := provider.ListNew(20)
	if err != nil {
		log.Fatalf("Failed to list unread messages: %v", err)
	}
	log.Printf("Connected. %d unread messages", len(ids))

	for _, id := range ids {
		raw, err := provider.Fetch(id)
		if err != nil {
			log.Printf("  %s: fetch failed: %v", id, err)
			continue
		}
		msg, err := provider.Normalize(raw)
		if err != nil {
			log.Printf("  %s: parse failed: %v", id, err)
			continue
		}
		log.Printf("  %s  from=%s  subject=%q", id, msg.From, msg.Subject)
	}
}
