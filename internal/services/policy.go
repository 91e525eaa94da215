package services

import (
	"fmt"
	"strings"

	"github.com/momo0222/momail-backend/internal/database/models"
	"github.com/momo0222/momail-backend/internal/mail"
)

// Classifier labels a normalized message. Satisfied by *ai.Client; tests
// inject stubs.
type Classifier interface {
	Classify(msg mail.NormalizedMessage) (string, error)
}

// Responder drafts reply text for a normalized message. Satisfied by
// *ai.Client.
type Responder interface {
	DraftReply(msg mail.NormalizedMessage, tone, instructions string) (string, error)
}

// DefaultTone is the tone requested for agent-drafted replies.
const DefaultTone = "professional"

// Decision is the outcome of the triage policy for one message. For
// Kind == reply the caller drafts the suggested content afterwards; a
// drafting failure degrades the decision via DegradeToNotify.
type Decision struct {
	Kind   models.ActionKind
	Reason string
}

// Decide maps a sender and classification to a proposed action. Pure
// function; order matters and the first match wins:
//
//  1. blacklisted senders are always surfaced to the user, even when the
//     mail is urgent or the sender is also whitelisted
//  2. whitelisted senders get an auto-reply for non-urgent mail; urgent
//     mail still notifies instead of replying
//  3. everyone else branches purely on the classification, with unknown
//     labels surfaced rather than dropped
//
// The whitelist and blacklist entries are matched as substrings of the
// normalized sender address, so one entry can cover a whole domain.
func Decide(sender, classification string, whitelist, blacklist []string) Decision {
	sender = strings.ToLower(sender)

	if containsAny(sender, blacklist) {
		return Decision{
			Kind:   models.ActionNotify,
			Reason: fmt.Sprintf("Blacklisted sender: %s", sender),
		}
	}

	if containsAny(sender, whitelist) {
		switch classification {
		case models.ClassificationRoutine, models.ClassificationSpam, models.ClassificationPersonal:
			// Trusted sender, auto-reply even to spam/personal
			return Decision{
				Kind:   models.ActionReply,
				Reason: "Whitelisted sender - auto-reply",
			}
		default:
			return Decision{
				Kind:   models.ActionNotify,
				Reason: "Urgent email from whitelisted sender",
			}
		}
	}

	switch classification {
	case models.ClassificationUrgent:
		return Decision{Kind: models.ActionNotify, Reason: "Urgent email requiring immediate attention"}
	case models.ClassificationRoutine:
		return Decision{Kind: models.ActionNotify, Reason: "Routine email from non-whitelisted sender"}
	case models.ClassificationSpam:
		return Decision{Kind: models.ActionArchive, Reason: "Classified as spam"}
	case models.ClassificationPersonal:
		return Decision{Kind: models.ActionNotify, Reason: "Personal email"}
	default:
		return Decision{
			Kind:   models.ActionNotify,
			Reason: fmt.Sprintf("Unknown classification: %s", classification),
		}
	}
}

// DegradeToNotify converts a reply decision whose draft could not be
// generated into a notify decision. The policy never proposes a reply
// without content.
func (d Decision) DegradeToNotify(err error) Decision {
	return Decision{
		Kind:   models.ActionNotify,
		Reason: fmt.Sprintf("%s (%v)", d.Reason, err),
	}
}

// containsAny reports whether any entry occurs as a substring of sender.
func containsAny(sender string, entries []string) bool {
	for _, entry := range entries {
		if entry != "" && strings.Contains(sender, entry) {
			return true
		}
	}
	return false
}
