package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBaseBoost_OrderingAndClamps(t *testing.T) {
	assert.Greater(t, BaseBoost(FileDocumentationPrimary), BaseBoost(FileDocumentation))
	assert.Less(t, BaseBoost(FileTest), 0.6)
	assert.Equal(t, BaseBoost(FileOther), BaseBoost(FileType("mystery")))

	// config sits at the bottom of the range
	for _, ft := range []FileType{
		FileDocumentationPrimary, FileDocumentation, FileExample,
		FileSource, FileSourceInternal, FileChangelog, FileOther, FileTest,
	} {
		assert.GreaterOrEqual(t, BaseBoost(ft), BaseBoost(FileConfig), "file type %s", ft)
	}
}

func TestFileTypeBoost_ConfidenceWeightedAverage(t *testing.T) {
	labels := []Label{
		{Intent: IntentHowTo, Confidence: 0.8},
		{Intent: IntentDebugging, Confidence: 0.4},
	}
	got := FileTypeBoost(FileDocumentationPrimary, labels)

	want := BaseBoost(FileDocumentationPrimary) *
		(intentMultiplier(IntentHowTo, FileDocumentationPrimary)*0.8 +
			intentMultiplier(IntentDebugging, FileDocumentationPrimary)*0.4) / 1.2
	assert.InDelta(t, want, got, 1e-9)
}

func TestFileTypeBoost_NoLabelsReturnsBase(t *testing.T) {
	assert.Equal(t, BaseBoost(FileSource), FileTypeBoost(FileSource, nil))
}

func TestKeywordRatioBoosts(t *testing.T) {
	// both terms present: 1 + 2/2
	assert.InDelta(t, 2.0, PathKeywordBoost("express middleware", "src/express/middleware.ts"), 1e-9)
	// one of two terms: 1 + 1/2
	assert.InDelta(t, 1.5, PathKeywordBoost("express middleware", "src/express/router.ts"), 1e-9)
	// stopwords never count against the ratio
	assert.InDelta(t, 2.0, URLKeywordBoost("how to use express middleware", "https://x.dev/express/middleware/use"), 1e-9)
	assert.Equal(t, 1.0, PathKeywordBoost("the a of", "src/anything.ts"))
	assert.Equal(t, 1.0, PathKeywordBoost("express", ""))
}

func TestFrameworkBoost(t *testing.T) {
	assert.Equal(t, 1.5, FrameworkBoost("express middleware", "src/express/app.ts", ""))
	assert.Equal(t, 1.5, FrameworkBoost("react state", "component.tsx", "const [x, setX] = useState(0)"))
	assert.Equal(t, 0.8, FrameworkBoost("express middleware", "src/django/views.py", "urlpatterns = []"))
	assert.Equal(t, 1.0, FrameworkBoost("binary search tree", "src/tree.ts", "function insert() {}"))
}

func TestMatchedTerms_SkipsShortAndStopwords(t *testing.T) {
	terms := MatchedTerms("how to fix db auth token", "the auth token is stored in db")
	assert.Contains(t, terms, "auth")
	assert.Contains(t, terms, "token")
	assert.NotContains(t, terms, "db", "terms of length <= 2 are non-trivial filter casualties")
	assert.Equal(t, len(terms), CountMatchedTerms("how to fix db auth token", "the auth token is stored in db"))
}
