package local

// Classification labels shared with the stored email model.
const (
	LabelUrgent   = "urgent"
	LabelRoutine  = "routine"
	LabelSpam     = "spam"
	LabelPersonal = "personal"
)

// Classify labels an email with keyword heuristics alone. Used when no
// language model is configured and as the fallback when a model call
// fails, so the triage loop keeps working offline.
//
// Order matters: spam first, then urgency, then the automated-sender
// check separating routine notifications from personal mail.
func Classify(from, subject, body string) string {
	if DetectSpam(subject, body) {
		return LabelSpam
	}

	score := CalculateUrgencyScore(subject, body, from)
	if score.Total >= 0.6 || IsUrgent(subject, body) {
		return LabelUrgent
	}

	if IsFromAutomatedSender(from) || HasUnsubscribeLink(body) {
		return LabelRoutine
	}

	return LabelPersonal
}
