package langadapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rustFixture = `use std::collections::HashMap;

pub struct Session {
    user: String,
}

impl Session {
    pub fn new(user: String) -> Self {
        validate(&user);
        Session { user }
    }
}

pub trait TokenStore {
    fn get(&self, id: &str) -> String;
}

pub enum Outcome {
    Ok,
    Err,
}

pub fn validate(user: &str) -> bool {
    !user.is_empty()
}

const MAX_RETRIES: u32 = 3;
`

func TestRustAdapter_Parse(t *testing.T) {
	a := NewRustAdapter()
	nodes, err := a.Parse(rustFixture, "session.rs")
	require.NoError(t, err)

	byName := make(map[string]CodeNode)
	for _, n := range nodes {
		byName[n.Name] = n
	}

	require.Contains(t, byName, "Session")
	assert.Equal(t, KindClass, byName["Session"].Kind)
	assert.True(t, byName["Session"].Exported)
	methodNames := make([]string, 0)
	for _, m := range byName["Session"].Methods {
		methodNames = append(methodNames, m.Name)
	}
	assert.Contains(t, methodNames, "new", "impl methods attach to the struct node")

	require.Contains(t, byName, "TokenStore")
	assert.Equal(t, KindInterface, byName["TokenStore"].Kind)

	require.Contains(t, byName, "Outcome")
	assert.Equal(t, KindType, byName["Outcome"].Kind)

	require.Contains(t, byName, "validate")
	assert.Equal(t, KindFunction, byName["validate"].Kind)
	assert.True(t, byName["validate"].Exported)

	require.Contains(t, byName, "MAX_RETRIES")
	assert.Equal(t, KindConst, byName["MAX_RETRIES"].Kind)
	assert.False(t, byName["MAX_RETRIES"].Exported)
}

func TestRustAdapter_ExtractImports(t *testing.T) {
	a := NewRustAdapter()
	imports, err := a.ExtractImports(rustFixture, "session.rs")
	require.NoError(t, err)
	require.Len(t, imports, 1)
	assert.Equal(t, "std::collections::HashMap", imports[0].Specifier)
}

func TestRustAdapter_CallAnalysis(t *testing.T) {
	a := NewRustAdapter()
	require.True(t, a.SupportsCallAnalysis())

	edges, err := a.AnalyzeCallRelationships(rustFixture, "session.rs")
	require.NoError(t, err)

	var found bool
	for _, e := range edges {
		if e.FromSymbol == "Session.new" && e.ToSymbol == "validate" {
			found = true
			assert.Greater(t, e.Confidence, 0.0)
		}
	}
	assert.True(t, found, "Session.new -> validate call edge expected")
}
