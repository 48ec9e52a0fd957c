package llm

import (
	"fmt"
	"strings"

	"reqnexa-backend/internal/interview"
	"reqnexa-backend/internal/models"
)

const interviewerDirective = `You are ReqNexa AI, a senior business analyst interviewing a client to elicit software requirements.

Rules:
- Ask exactly ONE question per turn, in 2-3 sentences.
- Never repeat a question that was already asked.
- Do not paraphrase or summarise the client's last message back to them.
- No greetings, apologies, or filler after the first turn.
- When the client uses vague words (fast, secure, easy, many, often), ask for measurable acceptance criteria.
- Stay inside the objective of the current interview stage.`

// projectFocus maps every project type to the areas the interviewer should
// probe. Types with nothing specific map to the empty string.
var projectFocus = map[models.ProjectType]string{
	models.ProjectTypeWeb:     "browser support, responsive layouts, SEO, session handling and web security (XSS, CSRF)",
	models.ProjectTypeMobile:  "target platforms (iOS, Android), offline behaviour, push notifications, device permissions and app store constraints",
	models.ProjectTypeDesktop: "supported operating systems, installation and updates, local file access and hardware requirements",
	models.ProjectTypeAPI:     "consumers of the API, authentication, versioning, rate limits, payload formats and SLAs",
	models.ProjectTypeOther:   "",
}

// FocusAreas returns the interview focus for a project type.
func FocusAreas(t models.ProjectType) string {
	return projectFocus[t.OrOther()]
}

func roleLabel(role models.MessageRole) string {
	switch role {
	case models.RoleUser:
		return "CLIENT"
	case models.RoleAssistant:
		return "REQNEXA AI"
	default:
		return "SYSTEM"
	}
}

// formatHistory renders at most MaxHistoryMessages of the newest messages,
// oldest first.
func formatHistory(history []models.Message) string {
	if len(history) > MaxHistoryMessages {
		history = history[len(history)-MaxHistoryMessages:]
	}
	var b strings.Builder
	for _, m := range history {
		fmt.Fprintf(&b, "%s: %s\n", roleLabel(m.Role), strings.TrimSpace(m.Content))
	}
	return b.String()
}

// lastContent returns the newest message with the given role.
func lastContent(history []models.Message, role models.MessageRole) (string, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == role {
			return history[i].Content, true
		}
	}
	return "", false
}

func buildSystemPrompt(projectType models.ProjectType) string {
	var b strings.Builder
	b.WriteString(interviewerDirective)
	b.WriteString("\n\nProject type: ")
	b.WriteString(string(projectType.OrOther()))
	if focus := FocusAreas(projectType); focus != "" {
		b.WriteString("\nFocus areas for this project type: ")
		b.WriteString(focus)
	}
	return b.String()
}

func buildReplyPrompt(history []models.Message, stage interview.Stage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CURRENT STAGE: %s\nOBJECTIVE: %s\n", stage.Name, stage.Objective)
	b.WriteString("EXAMPLE QUESTIONS FOR THIS STAGE:\n")
	for _, q := range stage.SampleQuestions(3) {
		fmt.Fprintf(&b, "- %s\n", q)
	}

	if last, ok := lastContent(history, models.RoleUser); ok {
		if finding, found := interview.Detect(last); found {
			fmt.Fprintf(&b, "\nADVISORY: the client's last message is ambiguous (%s). Consider asking: %s\n", finding.Category, finding.Clarification)
		}
	}

	if len(history) == 0 {
		b.WriteString("\nThe conversation has not started. Open the interview with a short introduction and your first question.\n")
	} else {
		b.WriteString("\nCONVERSATION SO FAR:\n")
		b.WriteString(formatHistory(history))
	}
	b.WriteString("\nRespond with ONLY the next question (2-3 sentences).")
	return b.String()
}

const classifyPrompt = `Classify the following software requirement statement.

Statement: %q

Return ONLY a JSON object with these keys:
{"type": "functional" or "non_functional",
 "subcategory": for non_functional one of performance, security, usability, reliability, maintainability, scalability, accessibility, portability; otherwise null,
 "confidence": integer 0-100,
 "title": short title of at most 80 characters,
 "description": one sentence restating the requirement}`

func buildClassifyPrompt(text string) string {
	return fmt.Sprintf(classifyPrompt, text)
}

const extractPrompt = `From the requirement interview below, list every distinct software requirement the client stated.

%s
Return ONLY a JSON array. Each element must have:
{"type": "functional" or "non_functional", "category": string or null, "priority": "high", "medium" or "low",
 "title": at most 80 characters, "description": string, "confidence": integer 0-100}
Return [] when no requirement was stated.`

func buildExtractPrompt(history []models.Message) string {
	var b strings.Builder
	for _, m := range history {
		fmt.Fprintf(&b, "%s: %s\n", roleLabel(m.Role), strings.TrimSpace(m.Content))
	}
	return fmt.Sprintf(extractPrompt, b.String())
}
