package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_DebuggingIsPrimary(t *testing.T) {
	labels := Classify("why does this throw an error on login")
	require.NotEmpty(t, labels)
	assert.Equal(t, IntentDebugging, Primary(labels))
}

func TestClassify_DefaultsToHowTo(t *testing.T) {
	labels := Classify("xyzzy plugh")
	require.Len(t, labels, 1)
	assert.Equal(t, defaultLabel, labels[0])
}

func TestClassify_SortedDescending(t *testing.T) {
	labels := Classify("what is the difference between express vs fastify")
	require.GreaterOrEqual(t, len(labels), 2)
	for i := 1; i < len(labels); i++ {
		assert.GreaterOrEqual(t, labels[i-1].Confidence, labels[i].Confidence)
	}
}

func TestFileTypeBoost_DocumentationPrimaryHighest(t *testing.T) {
	labels := Classify("what is a widget")
	docBoost := FileTypeBoost(FileDocumentationPrimary, labels)
	configBoost := FileTypeBoost(FileConfig, labels)
	assert.Greater(t, docBoost, configBoost)
}

func TestPathKeywordBoost_RatioOfMatchedTerms(t *testing.T) {
	boost := PathKeywordBoost("jwt token verification", "/src/auth/jwt/verify.ts")
	assert.Greater(t, boost, 1.0)
	assert.LessOrEqual(t, boost, 2.0)

	none := PathKeywordBoost("jwt token verification", "/src/unrelated/math.ts")
	assert.Equal(t, 1.0, none)
}

func TestFrameworkBoost_ExpressVsOther(t *testing.T) {
	assert.Equal(t, 1.5, FrameworkBoost("express middleware", "/src/express/app.ts", "app.get('/', handler)"))
	assert.Equal(t, 0.8, FrameworkBoost("express middleware", "/src/other/app.ts", "plain code"))
	assert.Equal(t, 1.0, FrameworkBoost("general query", "/src/other/app.ts", "plain code"))
}

func TestMatchedTerms_ExcludesShortWords(t *testing.T) {
	terms := MatchedTerms("jwt token verification", "this does jwt token verification here")
	assert.Contains(t, terms, "jwt")
	assert.Contains(t, terms, "token")
	assert.Contains(t, terms, "verification")
}
