package llm

import (
	"fmt"
	"regexp"

	"reqnexa-backend/internal/models"
)

// MaxFollowUps caps the suggested replies returned for a turn.
const MaxFollowUps = 3

type followUpTopic struct {
	when        *regexp.Regexp
	suggestions []string
}

// followUpTopics is scanned in order; the first matching topic wins.
var followUpTopics = []followUpTopic{
	{regexp.MustCompile(`(?i)\b(scope|goals?|objectives?|vision)\b`), []string{"Main user problem to solve?", "What is out of scope?"}},
	{regexp.MustCompile(`(?i)\b(users?|personas?|audience)\b`), []string{"Primary persona?", "Accessibility needs (WCAG)?"}},
	{regexp.MustCompile(`(?i)\b(roles?|permissions?|access)\b`), []string{"Admin vs member permissions?", "SSO/MFA required?"}},
	{regexp.MustCompile(`(?i)\b(features?|stor(y|ies)|use cases?)\b`), []string{"List three must-haves", "Any reporting or exports?"}},
	{regexp.MustCompile(`(?i)\b(data|schema|models?|entit(y|ies))\b`), []string{"Sensitive fields needing encryption?", "Retention policy?"}},
	{regexp.MustCompile(`(?i)\b(integrations?|api|third[- ]party|external)\b`), []string{"OAuth, webhooks, polling?", "Rate limits to expect?"}},
	{regexp.MustCompile(`(?i)\b(performance|latency|response|load)\b`), []string{"P95 under 300ms?", "Peak RPS/concurrency?"}},
	{regexp.MustCompile(`(?i)\b(security|auth\w*|encrypt\w*|compliance)\b`), []string{"Compliance (SOC2/GDPR)?", "Audit logging needs?"}},
	{regexp.MustCompile(`(?i)\b(reliab\w*|uptime|availability|backups?|dr)\b`), []string{"Uptime SLA?", "RTO/RPO targets?"}},
	{regexp.MustCompile(`(?i)\b(scalab\w*|concurrency|traffic)\b`), []string{"Horizontal scaling?", "Expected growth per month?"}},
	{regexp.MustCompile(`(?i)\b(usab\w*|ux|ui|accessibility)\b`), []string{"WCAG level?", "Localization needed?"}},
	{regexp.MustCompile(`(?i)\b(budget|timeline|deadlines?|constraints?)\b`), []string{"Budget cap?", "Key milestones?"}},
	{regexp.MustCompile(`(?i)\b(stack|tech|language|frameworks?|cloud)\b`), []string{"Preferred frameworks?", "Cloud region/hosting?"}},
	{regexp.MustCompile(`(?i)\b(tests?|qa|acceptance)\b`), []string{"Acceptance criteria?", "Automation coverage?"}},
	{regexp.MustCompile(`(?i)\b(metrics?|kpis?|success)\b`), []string{"North-star KPI?", "Analytics requirements?"}},
}

// FollowUps returns up to MaxFollowUps clarifying prompts for a requirement
// statement. Text that matches no topic gets generic prompts.
func FollowUps(text string, projectType models.ProjectType) []string {
	for _, topic := range followUpTopics {
		if topic.when.MatchString(text) {
			return limit(topic.suggestions, MaxFollowUps)
		}
	}
	return limit([]string{
		fmt.Sprintf("Any domain constraints specific to %s?", projectType.OrOther()),
		"Must-haves vs nice-to-haves?",
		"Risks or assumptions we should note?",
	}, MaxFollowUps)
}

func limit(items []string, n int) []string {
	if len(items) > n {
		items = items[:n]
	}
	out := make([]string, len(items))
	copy(out, items)
	return out
}
