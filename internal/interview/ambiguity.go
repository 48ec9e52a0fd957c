package interview

import (
	"regexp"
	"strings"
)

// FindingKind separates vague wording from topics mentioned without detail.
type FindingKind string

const (
	KindVague       FindingKind = "vague"
	KindMissingInfo FindingKind = "missing_info"
)

// Finding is the advisory result of scanning a user utterance.
type Finding struct {
	Category      string      `json:"category"`
	Kind          FindingKind `json:"kind"`
	Term          string      `json:"term"`
	Clarification string      `json:"clarification"`
}

type rule struct {
	category string
	kind     FindingKind
	matchers []*regexp.Regexp
	template string
}

// termRule matches whole words only, so "fastest" or "breakfast" never
// count as "fast".
func termRule(category string, terms []string, template string) rule {
	matchers := make([]*regexp.Regexp, 0, len(terms))
	for _, term := range terms {
		matchers = append(matchers, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(term)+`\b`))
	}
	return rule{category: category, kind: KindVague, matchers: matchers, template: template}
}

func topicRule(category, pattern, template string) rule {
	return rule{category: category, kind: KindMissingInfo, matchers: []*regexp.Regexp{regexp.MustCompile(pattern)}, template: template}
}

// rules is scanned in order; the first match wins.
var rules = []rule{
	termRule("VAGUE_PERFORMANCE",
		[]string{"fast", "quick", "rapid", "speedy", "efficient", "optimized"},
		"You said '{term}'. Could you put numbers on it? For example: pages load in under X seconds, API calls answer within X milliseconds, searches return within X seconds."),
	termRule("VAGUE_SECURITY",
		[]string{"secure", "safe", "protected", "encrypted"},
		"You said '{term}'. Which data must be encrypted (at rest, in transit, or both), how should users authenticate (OAuth, JWT, multi-factor), and which compliance standards apply (GDPR, HIPAA, PCI-DSS, SOC 2)?"),
	termRule("VAGUE_USABILITY",
		[]string{"user-friendly", "intuitive", "easy to use", "simple", "straightforward"},
		"'{term}' means different things to different people. Should a new user finish the main task without training, in how many clicks at most, and is there an accessibility target such as WCAG AA?"),
	termRule("VAGUE_SCALABILITY",
		[]string{"scalable", "handle growth", "support more users"},
		"Let's quantify '{term}': how many users do you expect at launch, after one year and after three years, and what peak concurrency and data growth per month?"),
	termRule("VAGUE_COMPATIBILITY",
		[]string{"compatible", "work on all devices", "cross-platform"},
		"You said '{term}'. Which operating systems and versions, which browsers and minimum versions, and which mobile platforms must be supported?"),
	termRule("VAGUE_RELIABILITY",
		[]string{"reliable", "stable", "always available", "won't crash"},
		"Let's define '{term}': what uptime is required (99%, 99.9%, 99.99%), how much maintenance downtime is acceptable per month, and what recovery time objective applies?"),
	termRule("VAGUE_QUANTITY",
		[]string{"many", "few", "some", "several", "multiple", "lots of"},
		"'{term}' is open to interpretation. What are the expected minimum, typical and maximum numbers?"),
	termRule("VAGUE_FREQUENCY",
		[]string{"frequently", "occasionally", "rarely", "sometimes", "often"},
		"Instead of '{term}', could you say how many times per day, week or month, and when usage peaks?"),

	topicRule("USER_MENTIONED_WITHOUT_ACTIONS", `(?i)\b(user|admin|customer|manager)\b`,
		"You mentioned the {role}. What should the {role} be able to do in the system, and what are their main goals?"),
	topicRule("FEATURE_WITHOUT_DETAILS", `(?i)\b(feature|functionality|capability|module)\b`,
		"Could you describe this {term} in more detail? What is the workflow, and what are its inputs and expected outputs?"),
	topicRule("DATA_WITHOUT_STRUCTURE", `(?i)\b(store|save|data|information|records)\b`,
		"Which fields need to be stored, and how do the different kinds of records relate to each other?"),
	topicRule("INTEGRATION_WITHOUT_DETAILS", `(?i)\b(integrate|connect|link|sync)\b`,
		"For this integration, what data is exchanged, in which format, how often, and how does it authenticate?"),
	topicRule("PAYMENT_WITHOUT_DETAILS", `(?i)\b(payment|pay|checkout|transaction)\b`,
		"For payments: which methods (card, PayPal, Stripe), which currencies, how are refunds handled, and is PCI-DSS compliance required?"),
}

var apostrophes = strings.NewReplacer("\u2019", "'", "\u2018", "'")

// Detect scans text against the rule catalogue and returns the first match.
// Vague-term groups are checked before topic patterns; inside a group, terms
// are tried in their listed order. Typographic apostrophes are folded first.
func Detect(text string) (Finding, bool) {
	if strings.TrimSpace(text) == "" {
		return Finding{}, false
	}
	text = apostrophes.Replace(text)
	for _, r := range rules {
		for _, matcher := range r.matchers {
			match := matcher.FindString(text)
			if match == "" {
				continue
			}
			term := strings.ToLower(match)
			clarification := strings.NewReplacer("{term}", term, "{role}", term).Replace(r.template)
			return Finding{
				Category:      r.category,
				Kind:          r.kind,
				Term:          term,
				Clarification: clarification,
			}, true
		}
	}
	return Finding{}, false
}
