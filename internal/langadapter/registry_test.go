package langadapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chris-bluera/bluera-knowledge/internal/engineerr"
)

type fakeAdapter struct {
	BaseAdapter
	id   string
	exts []string
}

func (f fakeAdapter) LanguageID() string                          { return f.id }
func (f fakeAdapter) Extensions() []string                        { return f.exts }
func (f fakeAdapter) DisplayName() string                         { return f.id }
func (f fakeAdapter) Parse(text, path string) ([]CodeNode, error) { return nil, nil }
func (f fakeAdapter) ExtractImports(text, path string) ([]ImportInfo, error) {
	return nil, nil
}

func TestRegistry_RegisterAndDispatch(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(fakeAdapter{id: "lang-a", exts: []string{".aa", "bb"}}))

	a, ok := reg.ByExtension(".aa")
	require.True(t, ok)
	assert.Equal(t, "lang-a", a.LanguageID())

	// extensions are normalized with a leading dot either way
	a, ok = reg.ByExtension("bb")
	require.True(t, ok)
	assert.Equal(t, "lang-a", a.LanguageID())

	_, ok = reg.ByExtension(".zz")
	assert.False(t, ok)
}

func TestRegistry_ReRegisterSameLanguageIsNoOp(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(fakeAdapter{id: "lang-a", exts: []string{".aa"}}))
	require.NoError(t, reg.Register(fakeAdapter{id: "lang-a", exts: []string{".aa", ".cc"}}))

	// the second registration did not take: .cc is still unowned
	_, ok := reg.ByExtension(".cc")
	assert.False(t, ok)
}

func TestRegistry_ConflictingExtensionFails(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(fakeAdapter{id: "lang-a", exts: []string{".aa"}}))

	err := reg.Register(fakeAdapter{id: "lang-b", exts: []string{".bb", ".aa"}})
	require.Error(t, err)
	assert.True(t, engineerr.Is(err, engineerr.Conflict))

	// all-or-nothing: the conflicting adapter's other extension is not registered
	_, ok := reg.ByExtension(".bb")
	assert.False(t, ok)
}

func TestResetDefault_IsolatesTests(t *testing.T) {
	ResetDefault()
	require.NoError(t, Default().Register(fakeAdapter{id: "lang-x", exts: []string{".xx"}}))
	_, ok := Default().ByExtension(".xx")
	require.True(t, ok)

	ResetDefault()
	_, ok = Default().ByExtension(".xx")
	assert.False(t, ok)
}
