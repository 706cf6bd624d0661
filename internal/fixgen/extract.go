package fixgen

import (
	"encoding/json"
	"regexp"
)

const explanationLimit = 500

// FallbackRecommendations are returned when the model answer is not JSON.
var FallbackRecommendations = []string{
	"Review the generated fix carefully",
	"Test thoroughly before deployment",
}

// DefaultExplanation is used when the model returns JSON without one.
const DefaultExplanation = "Security fix applied"

var (
	fencedJSON = regexp.MustCompile("(?s)```json\n(.*?)\n```")
	braceSpan  = regexp.MustCompile(`(?s)\{.*\}`)
)

// Suggestion is the structured answer expected from the model.
type Suggestion struct {
	FixedCode       string   `json:"fixedCode"`
	Explanation     string   `json:"explanation"`
	Recommendations []string `json:"recommendations"`
}

// ExtractJSON picks the JSON candidate out of a model answer: a ```json
// fenced block, else the outermost brace span, else the whole text.
func ExtractJSON(text string) string {
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := braceSpan.FindString(text); m != "" {
		return m
	}
	return text
}

// ParseSuggestion turns a model answer into a Suggestion. Answers that do not
// parse fall back to the original code with a truncated explanation; parsed
// answers get defaults for missing fields.
func ParseSuggestion(text, originalCode string) (Suggestion, bool) {
	var s Suggestion
	if err := json.Unmarshal([]byte(ExtractJSON(text)), &s); err != nil {
		return Suggestion{
			FixedCode:       originalCode,
			Explanation:     truncate(text, explanationLimit) + "...",
			Recommendations: append([]string(nil), FallbackRecommendations...),
		}, false
	}

	if s.FixedCode == "" {
		s.FixedCode = originalCode
	}
	if s.Explanation == "" {
		s.Explanation = DefaultExplanation
	}
	if s.Recommendations == nil {
		s.Recommendations = []string{}
	}
	return s, true
}

// truncate cuts s to at most n characters without splitting a rune.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
