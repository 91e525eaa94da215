package local

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		name    string
		from    string
		subject string
		body    string
		want    string
	}{
		{
			name:    "promotional blast",
			from:    "promo@deals.com",
			subject: "Limited time SALE - discount coupon inside",
			body:    "Click here to save big! Reply unsubscribe to stop receiving.",
			want:    LabelSpam,
		},
		{
			name:    "urgent keyword in subject",
			from:    "boss@company.com",
			subject: "URGENT: production server down",
			body:    "Need immediate action asap.",
			want:    LabelUrgent,
		},
		{
			name:    "chinese urgent keyword",
			from:    "admin@company.com",
			subject: "紧急:服务器故障",
			body:    "请立即处理",
			want:    LabelUrgent,
		},
		{
			name:    "automated notification",
			from:    "noreply@github.com",
			subject: "Build finished",
			body:    "Your build completed successfully.",
			want:    LabelRoutine,
		},
		{
			name:    "newsletter with unsubscribe footer",
			from:    "digest@blog.example.com",
			subject: "This week in Go",
			body:    "Top posts this week. You can opt out at any time.",
			want:    LabelRoutine,
		},
		{
			name:    "personal mail",
			from:    "mom@example.com",
			subject: "Dinner on Sunday",
			body:    "Are you coming home this weekend?",
			want:    LabelPersonal,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Classify(c.from, c.subject, c.body); got != c.want {
				t.Errorf("Classify(%q, %q, ...) = %q, want %q", c.from, c.subject, got, c.want)
			}
		})
	}
}

func TestIsFromAutomatedSender(t *testing.T) {
	cases := []struct {
		from string
		want bool
	}{
		{"noreply@github.com", true},
		{"no-reply@service.com", true},
		{"do-not-reply@bank.com", true},
		{"notification@app.io", true},
		{"MAILER-DAEMON@mx.example.com", true},
		{"alice@example.com", false},
		{"support@company.com", false},
	}
	for _, c := range cases {
		if got := IsFromAutomatedSender(c.from); got != c.want {
			t.Errorf("IsFromAutomatedSender(%q) = %v, want %v", c.from, got, c.want)
		}
	}
}

func TestHasUnsubscribeLink(t *testing.T) {
	if !HasUnsubscribeLink("Click UNSUBSCRIBE to stop") {
		t.Error("should match regardless of case")
	}
	if !HasUnsubscribeLink("点击退订") {
		t.Error("should match the Chinese indicator")
	}
	if HasUnsubscribeLink("plain personal message") {
		t.Error("should not match clean text")
	}
}

func TestNormalizeTextStripsHTML(t *testing.T) {
	in := "<div>Hello&nbsp;<b>world</b></div>\n\n  extra   spaces"
	want := "Hello world extra spaces"
	if got := normalizeText(in); got != want {
		t.Errorf("normalizeText = %q, want %q", got, want)
	}
}
