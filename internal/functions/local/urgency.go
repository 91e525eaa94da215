package local

import (
	"regexp"
	"strings"
)

// Urgency keywords by level
var (
	// Critical urgency keywords
	criticalKeywords = []string{
		// Chinese critical terms
		"紧急", "立即", "马上", "尽快", "重要通知", "重要提醒",
		"账户异常", "安全警告", "密码重置", "账号被盗", "风险提示",
		"支付失败", "订单问题", "退款", "法律", "诉讼", "传票",
		// English critical terms
		"urgent", "immediate", "asap", "critical", "emergency",
		"security alert", "password reset", "account compromised",
		"payment failed", "legal notice", "action required",
		"final notice", "deadline",
	}

	// Elevated urgency keywords
	elevatedKeywords = []string{
		// Chinese terms
		"重要", "请注意", "提醒", "通知", "确认", "审批",
		"面试", "offer", "录用", "入职", "合同", "协议",
		"账单", "发票", "付款", "转账", "银行",
		// English terms
		"important", "attention", "reminder", "notice", "confirm",
		"interview", "job offer", "contract", "agreement",
		"invoice", "payment", "bank", "financial",
		"meeting", "appointment", "schedule",
	}

	// Low urgency keywords (typically automated/marketing)
	calmKeywords = []string{
		// Chinese terms
		"订阅", "推荐", "精选", "热门", "活动", "促销",
		"优惠", "折扣", "新闻", "周报", "月报", "简报",
		// English terms
		"newsletter", "digest", "weekly", "monthly", "update",
		"subscription", "recommended", "trending", "popular",
		"marketing", "promotional", "advertisement",
	}

	// Sender domains that raise urgency
	importantDomains = []string{
		"gov", "edu", "bank", "finance",
	}

	// Patterns indicating automated/bulk senders
	automatedPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)no-?reply`),
		regexp.MustCompile(`(?i)do-?not-?reply`),
		regexp.MustCompile(`(?i)automated`),
		regexp.MustCompile(`(?i)notification@`),
		regexp.MustCompile(`(?i)noreply@`),
		regexp.MustCompile(`(?i)mailer-daemon`),
	}
)

// UrgencyScore represents the urgency score breakdown
type UrgencyScore struct {
	Total         float64
	CriticalScore float64
	ElevatedScore float64
	CalmScore     float64
	SenderScore   float64
	SpamPenalty   float64
}

// CalculateUrgencyScore calculates a detailed urgency score in [0, 1]
func CalculateUrgencyScore(subject, content, from string) UrgencyScore {
	score := UrgencyScore{}

	// Normalize inputs
	subject = strings.ToLower(subject)
	content = strings.ToLower(normalizeText(content))
	from = strings.ToLower(from)
	combined := subject + " " + content

	// Check critical keywords (weight: 0.4)
	criticalCount := countKeywordMatches(combined, criticalKeywords)
	if criticalCount > 0 {
		score.CriticalScore = minFloat(float64(criticalCount)*0.2, 0.4)
	}

	// Check elevated keywords (weight: 0.3)
	elevatedCount := countKeywordMatches(combined, elevatedKeywords)
	score.ElevatedScore = minFloat(float64(elevatedCount)*0.1, 0.3)

	// Check calm keywords (negative weight: -0.2)
	calmCount := countKeywordMatches(combined, calmKeywords)
	score.CalmScore = -minFloat(float64(calmCount)*0.1, 0.2)

	// Check sender (weight: 0.2)
	score.SenderScore = calculateSenderScore(from)

	// Spam lowers urgency
	if DetectSpam(subject, content) {
		score.SpamPenalty = -0.3
	}

	// Total score, base 0.5
	score.Total = 0.5 + score.CriticalScore + score.ElevatedScore +
		score.CalmScore + score.SenderScore + score.SpamPenalty

	// Clamp to [0, 1]
	if score.Total < 0 {
		score.Total = 0
	}
	if score.Total > 1 {
		score.Total = 1
	}

	return score
}

// calculateSenderScore adjusts urgency based on the sender address
func calculateSenderScore(from string) float64 {
	// Automated/bulk senders lower urgency
	for _, pattern := range automatedPatterns {
		if pattern.MatchString(from) {
			return -0.1
		}
	}

	// Institutional domains raise urgency
	for _, domain := range importantDomains {
		if strings.Contains(from, "."+domain) || strings.Contains(from, "@"+domain) {
			return 0.15
		}
	}

	return 0
}

// IsUrgent checks if the email appears to be urgent
func IsUrgent(subject, content string) bool {
	combined := strings.ToLower(subject + " " + content)
	urgentTerms := []string{"urgent", "紧急", "立即", "马上", "asap", "emergency"}
	for _, term := range urgentTerms {
		if strings.Contains(combined, term) {
			return true
		}
	}
	return false
}

// IsFromAutomatedSender checks if the email is from an automated sender
func IsFromAutomatedSender(from string) bool {
	from = strings.ToLower(from)
	for _, pattern := range automatedPatterns {
		if pattern.MatchString(from) {
			return true
		}
	}
	return false
}
