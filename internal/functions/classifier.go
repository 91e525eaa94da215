// Package functions combines language-model and local keyword
// classification of incoming mail.
package functions

import (
	"log"

	"github.com/momo0222/momail-backend/internal/ai"
	"github.com/momo0222/momail-backend/internal/functions/local"
	"github.com/momo0222/momail-backend/internal/mail"
)

// Classifier labels incoming mail. It prefers the language model and
// falls back to local keyword heuristics when no model is configured or
// a model call fails, so triage never stops on an AI outage.
type Classifier struct {
	ai *ai.Client
}

// NewClassifier creates a Classifier backed by the given AI client. The
// client may be unconfigured; classification then runs purely on local
// heuristics.
func NewClassifier(aiClient *ai.Client) *Classifier {
	return &Classifier{ai: aiClient}
}

// Classify returns one of the classification labels for the message.
// The error return satisfies the classifier interface of the triage
// loop; the local fallback cannot fail, so the error is always nil.
func (c *Classifier) Classify(msg mail.NormalizedMessage) (string, error) {
	if c.ai != nil && c.ai.IsConfigured() {
		label, err := c.ai.Classify(msg)
		if err == nil {
			return label, nil
		}
		log.Printf("[Classifier] Model call failed, using local heuristics: %v", err)
	}

	return local.Classify(msg.From, msg.Subject, msg.Body), nil
}
