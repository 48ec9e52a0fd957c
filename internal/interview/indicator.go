package interview

import "regexp"

var requirementIndicator = regexp.MustCompile(`(?i)\b(must|should|need to|require|shall)\b`)

// LooksLikeRequirement reports whether a user utterance contains one of the
// modal phrases that mark a requirement statement.
func LooksLikeRequirement(text string) bool {
	return requirementIndicator.MatchString(text)
}
