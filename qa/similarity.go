package qa

import (
	"strings"

	"github.com/devagent/orchestrator/specdir"
)

// commonPrefixes are stripped during normalization (spec.md §4.5).
var commonPrefixes = []string{"error:", "issue:", "bug:", "fix:"}

// normalizeTitle lowercases title and strips one leading common prefix.
func normalizeTitle(title string) string {
	lower := strings.ToLower(strings.TrimSpace(title))
	for _, prefix := range commonPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(lower, prefix))
		}
	}
	return lower
}

// tokenSet returns the set of whitespace-separated word tokens in
// "{normalized_title} {location} {description}", lowercased.
func tokenSet(title, location, description string) map[string]struct{} {
	joined := normalizeTitle(title) + " " + strings.ToLower(location) + " " + strings.ToLower(description)
	set := make(map[string]struct{})
	for _, word := range strings.Fields(joined) {
		set[word] = struct{}{}
	}
	return set
}

// jaccard returns the Jaccard overlap of two word-token sets: the size of
// their intersection over the size of their union. Two empty sets are
// defined as identical (overlap 1).
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	intersection := 0
	for word := range a {
		if _, ok := b[word]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// similar reports whether two issues are the same recurring issue per
// spec.md §4.5's ISSUE_SIMILARITY_THRESHOLD comparison.
func similar(a, b specdir.QAIssue, threshold float64) bool {
	return jaccard(tokenSet(a.Title, a.Location, a.Description), tokenSet(b.Title, b.Location, b.Description)) >= threshold
}
