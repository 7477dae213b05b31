package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkMarkdown_SplitsOnHeaders(t *testing.T) {
	text := "# Intro\n" + strings.Repeat("a", 290) + "\n" +
		"## Usage\n" + strings.Repeat("b", 290) + "\n" +
		"## FAQ\n" + strings.Repeat("c", 290) + "\n"

	chunks := ChunkMarkdown(text, WebPreset)
	require.Len(t, chunks, 3)

	assert.Equal(t, "Intro", chunks[0].SectionTitle)
	assert.Equal(t, "Usage", chunks[1].SectionTitle)
	assert.Equal(t, "FAQ", chunks[2].SectionTitle)
	for i, c := range chunks {
		assert.Equal(t, i, c.ChunkIndex)
		assert.Equal(t, 3, c.TotalChunks)
	}
}

func TestChunkMarkdown_SectionOffsetsReproduceInput(t *testing.T) {
	text := "# One\nalpha\n## Two\nbeta\n### Three\ngamma"
	chunks := ChunkMarkdown(text, WebPreset)
	require.NotEmpty(t, chunks)

	var rebuilt strings.Builder
	for _, c := range chunks {
		rebuilt.WriteString(text[c.StartOffset:c.EndOffset])
	}
	assert.Equal(t, text, rebuilt.String())
}

func TestChunkMarkdown_PreambleBeforeFirstHeader(t *testing.T) {
	text := "leading paragraph\n\n# Header\nbody"
	chunks := ChunkMarkdown(text, WebPreset)
	require.Len(t, chunks, 2)
	assert.Equal(t, "", chunks[0].SectionTitle)
	assert.Equal(t, "Header", chunks[1].SectionTitle)
}

func TestChunkMarkdown_OversizedSectionCarriesHeader(t *testing.T) {
	text := "# Big\n" + strings.Repeat("x", 3000)
	chunks := ChunkMarkdown(text, WebPreset)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.Equal(t, "Big", c.SectionTitle)
		assert.LessOrEqual(t, len(c.Content), WebPreset.Target)
	}
}

func TestChunkSourceDeclarations_NamesAndBounds(t *testing.T) {
	src := `function login(user) {
  return session(user)
}

class AuthService {
  verify(token) {
    return token !== ""
  }
}

const MAX_RETRIES = 3
`
	chunks := ChunkSourceDeclarations(src, CodePreset)
	require.NotEmpty(t, chunks)

	var names []string
	for _, c := range chunks {
		if c.SymbolName != "" {
			names = append(names, c.SymbolName)
		}
	}
	assert.Contains(t, names, "login")
	assert.Contains(t, names, "AuthService")
	assert.Contains(t, names, "MAX_RETRIES")
}

func TestChunkSourceDeclarations_BraceCounterSkipsStringsAndComments(t *testing.T) {
	src := "function tricky() {\n" +
		"  const s = \"}\"\n" +
		"  // closing } in a comment\n" +
		"  const tpl = `}`\n" +
		"  return s\n" +
		"}\n" +
		"function after() { return 1 }\n"
	chunks := ChunkSourceDeclarations(src, CodePreset)

	var tricky, after bool
	for _, c := range chunks {
		if c.SymbolName == "tricky" {
			tricky = true
			assert.Contains(t, c.Content, "return s")
			assert.NotContains(t, c.Content, "after")
		}
		if c.SymbolName == "after" {
			after = true
		}
	}
	assert.True(t, tricky, "tricky should be its own chunk")
	assert.True(t, after, "after should be its own chunk")
}

func TestChunkSourceDeclarations_TypeAliasEndsAtSemicolon(t *testing.T) {
	src := "type ID = string;\nfunction use(id) { return id }\n"
	chunks := ChunkSourceDeclarations(src, CodePreset)

	var foundAlias bool
	for _, c := range chunks {
		if c.SymbolName == "ID" {
			foundAlias = true
			assert.Contains(t, c.Content, "type ID = string;")
			assert.NotContains(t, c.Content, "function use")
		}
	}
	assert.True(t, foundAlias)
}

func TestChunkSourceDeclarations_AbsorbsLeadingJSDoc(t *testing.T) {
	src := "/**\n * Logs a user in.\n */\nfunction login() { return true }\n"
	chunks := ChunkSourceDeclarations(src, CodePreset)
	require.NotEmpty(t, chunks)

	for _, c := range chunks {
		if c.SymbolName == "login" {
			assert.Contains(t, c.Content, "Logs a user in.")
			return
		}
	}
	t.Fatal("login chunk not found")
}

func TestSlidingWindow_OverlapAndCoverage(t *testing.T) {
	text := strings.Repeat("0123456789", 200) // 2000 chars
	chunks := ChunkSlidingWindow(text, CodePreset)
	require.Greater(t, len(chunks), 1)

	for i, c := range chunks {
		assert.Equal(t, i, c.ChunkIndex)
		assert.Equal(t, len(chunks), c.TotalChunks)
		assert.Equal(t, text[c.StartOffset:c.EndOffset], c.Content)
	}
	// consecutive windows overlap by the preset's overlap size
	for i := 1; i < len(chunks); i++ {
		assert.Equal(t, CodePreset.Target-CodePreset.Overlap,
			chunks[i].StartOffset-chunks[i-1].StartOffset)
	}
	// the final window reaches the end of the input
	assert.Equal(t, len(text), chunks[len(chunks)-1].EndOffset)
}

func TestChunkSlidingWindow_EmptyInput(t *testing.T) {
	assert.Nil(t, ChunkSlidingWindow("", CodePreset))
	assert.Nil(t, ChunkSlidingWindow("   \n  ", CodePreset))
}

func TestFindBlockEnd_NestedBraces(t *testing.T) {
	src := "function outer() { if (x) { y() } return 1 } trailing"
	end := FindBlockEnd(src, 0)
	assert.Equal(t, "function outer() { if (x) { y() } return 1 }", src[:end])
}
