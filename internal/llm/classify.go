package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"reqnexa-backend/internal/models"
)

const (
	// DefaultConfidence is used when a classifier gives no confidence.
	DefaultConfidence = 60
	// MaxTitleLength is the rune limit for requirement titles.
	MaxTitleLength = 80
)

type qualityAttribute struct {
	name    string
	matcher *regexp.Regexp
}

// qualityAttributes drives the heuristic classifier. The first match names
// the subcategory.
var qualityAttributes = []qualityAttribute{
	{"performance", regexp.MustCompile(`(?i)\b(performance|latency|throughput|response times?|fast|speed)\b`)},
	{"security", regexp.MustCompile(`(?i)\b(security|secure|encrypt\w*|privacy|compliance|gdpr|hipaa)\b`)},
	{"usability", regexp.MustCompile(`(?i)\b(usability|user-friendly|intuitive)\b`)},
	{"reliability", regexp.MustCompile(`(?i)\b(reliab\w*|uptime|availability)\b`)},
	{"maintainability", regexp.MustCompile(`(?i)\bmaintainab\w*\b`)},
	{"scalability", regexp.MustCompile(`(?i)\b(scalab\w*)\b`)},
	{"accessibility", regexp.MustCompile(`(?i)\b(accessib\w*|wcag)\b`)},
	{"portability", regexp.MustCompile(`(?i)\b(portab\w*|cross-platform)\b`)},
}

// HeuristicClassify classifies text without a provider. Statements naming a
// quality attribute are non-functional; everything else is functional.
func HeuristicClassify(text string) *Classification {
	text = strings.TrimSpace(text)
	confidence := DefaultConfidence
	c := &Classification{
		Type:        models.RequirementFunctional,
		Confidence:  &confidence,
		Title:       Truncate(text, MaxTitleLength),
		Description: text,
	}
	for _, attr := range qualityAttributes {
		if attr.matcher.MatchString(text) {
			name := attr.name
			c.Type = models.RequirementNonFunctional
			c.Subcategory = &name
			break
		}
	}
	return c
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n]))
}

// ClampConfidence limits a confidence score to 0-100.
func ClampConfidence(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}

// ParseRequirementType accepts the spellings models tend to produce.
func ParseRequirementType(s string) (models.RequirementType, bool) {
	normalized := strings.NewReplacer("-", "_", " ", "_").Replace(strings.ToLower(strings.TrimSpace(s)))
	switch normalized {
	case "functional", "fr":
		return models.RequirementFunctional, true
	case "non_functional", "nonfunctional", "nfr":
		return models.RequirementNonFunctional, true
	}
	return "", false
}

var errMalformedOutput = errors.New("malformed model output")

type classificationPayload struct {
	Type        string   `json:"type"`
	Subcategory *string  `json:"subcategory"`
	Confidence  *float64 `json:"confidence"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
}

// parseClassification reads a JSON object out of raw model output. Fields the
// model left empty are filled from the statement itself.
func parseClassification(raw, text string) (*Classification, error) {
	body, ok := jsonSpan(raw, '{', '}')
	if !ok {
		return nil, fmt.Errorf("%w: no JSON object in %q", errMalformedOutput, Truncate(raw, 120))
	}
	var payload classificationPayload
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedOutput, err)
	}
	reqType, ok := ParseRequirementType(payload.Type)
	if !ok {
		return nil, fmt.Errorf("%w: unknown requirement type %q", errMalformedOutput, payload.Type)
	}

	text = strings.TrimSpace(text)
	c := &Classification{
		Type:        reqType,
		Title:       Truncate(strings.TrimSpace(payload.Title), MaxTitleLength),
		Description: strings.TrimSpace(payload.Description),
	}
	if reqType == models.RequirementNonFunctional && payload.Subcategory != nil {
		if sub := strings.ToLower(strings.TrimSpace(*payload.Subcategory)); sub != "" && sub != "null" {
			c.Subcategory = &sub
		}
	}
	if payload.Confidence != nil {
		v := ClampConfidence(int(math.Round(*payload.Confidence)))
		c.Confidence = &v
	}
	if c.Title == "" {
		c.Title = Truncate(text, MaxTitleLength)
	}
	if c.Description == "" {
		c.Description = text
	}
	return c, nil
}

type draftPayload struct {
	Type        string   `json:"type"`
	Category    *string  `json:"category"`
	Priority    string   `json:"priority"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Confidence  *float64 `json:"confidence"`
}

// parseDrafts reads a JSON array of requirement drafts. Entries with an
// unknown type or no text are dropped.
func parseDrafts(raw string) ([]models.RequirementDraft, error) {
	body, ok := jsonSpan(raw, '[', ']')
	if !ok {
		return nil, fmt.Errorf("%w: no JSON array in %q", errMalformedOutput, Truncate(raw, 120))
	}
	var payloads []draftPayload
	if err := json.Unmarshal([]byte(body), &payloads); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedOutput, err)
	}

	drafts := make([]models.RequirementDraft, 0, len(payloads))
	for _, p := range payloads {
		reqType, ok := ParseRequirementType(p.Type)
		if !ok {
			continue
		}
		title := Truncate(strings.TrimSpace(p.Title), MaxTitleLength)
		description := strings.TrimSpace(p.Description)
		if title == "" && description == "" {
			continue
		}
		if title == "" {
			title = Truncate(description, MaxTitleLength)
		}
		if description == "" {
			description = title
		}

		draft := models.RequirementDraft{
			Type:        reqType,
			Priority:    parsePriority(p.Priority),
			Title:       title,
			Description: description,
		}
		if p.Category != nil {
			if cat := strings.TrimSpace(*p.Category); cat != "" {
				draft.Category = &cat
			}
		}
		if p.Confidence != nil {
			v := ClampConfidence(int(math.Round(*p.Confidence)))
			draft.Confidence = &v
		}
		drafts = append(drafts, draft)
	}
	return drafts, nil
}

func parsePriority(s string) models.RequirementPriority {
	switch models.RequirementPriority(strings.ToLower(strings.TrimSpace(s))) {
	case models.PriorityHigh:
		return models.PriorityHigh
	case models.PriorityLow:
		return models.PriorityLow
	}
	return models.PriorityMedium
}

// jsonSpan cuts the outermost open..close span out of s, dropping code
// fences or prose around it.
func jsonSpan(s string, open, close byte) (string, bool) {
	start := strings.IndexByte(s, open)
	end := strings.LastIndexByte(s, close)
	if start == -1 || end == -1 || end < start {
		return "", false
	}
	return s[start : end+1], true
}
