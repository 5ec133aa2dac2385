package qa

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/devagent/orchestrator/specdir"
)

func TestNormalizeTitleStripsCommonPrefixesAndLowercases(t *testing.T) {
	assert.Equal(t, "race in pool", normalizeTitle("Error: race in pool"))
	assert.Equal(t, "nil pointer", normalizeTitle("BUG: nil pointer"))
	assert.Equal(t, "plain title", normalizeTitle("Plain Title"))
}

func TestSimilarIssuesWithDifferentPrefixesAndCasingMatch(t *testing.T) {
	a := specdir.QAIssue{Title: "Error: race condition in pool", Location: "db/pool.go:10", Description: "mutex missing"}
	b := specdir.QAIssue{Title: "Bug: race condition in pool", Location: "db/pool.go:10", Description: "mutex missing"}
	assert.True(t, similar(a, b, 0.8))
}

func TestDissimilarIssuesDoNotMatch(t *testing.T) {
	a := specdir.QAIssue{Title: "race condition in pool", Location: "db/pool.go:10"}
	b := specdir.QAIssue{Title: "missing nil check", Location: "api/handler.go:20"}
	assert.False(t, similar(a, b, 0.8))
}

func TestJaccardTwoEmptySetsAreIdentical(t *testing.T) {
	assert.Equal(t, 1.0, jaccard(map[string]struct{}{}, map[string]struct{}{}))
}
