package langadapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tsFixture = `import { z } from "zod"
import helpers from "./helpers"

export function login(user: string): Session {
  return createSession(user)
}

export class AuthService {
  verifyAccessToken(token: string): boolean {
    return token.length > 0
  }
}

export interface TokenStore {
  get(id: string): string
}

export type Session = { user: string }

const MAX_RETRIES = 3
`

func TestTypeScriptAdapter_Parse(t *testing.T) {
	a := NewTypeScriptAdapter()
	nodes, err := a.Parse(tsFixture, "auth.ts")
	require.NoError(t, err)

	byName := make(map[string]CodeNode)
	for _, n := range nodes {
		byName[n.Name] = n
	}

	require.Contains(t, byName, "login")
	assert.Equal(t, KindFunction, byName["login"].Kind)
	assert.True(t, byName["login"].Exported)

	require.Contains(t, byName, "AuthService")
	assert.Equal(t, KindClass, byName["AuthService"].Kind)
	methodNames := make([]string, 0)
	for _, m := range byName["AuthService"].Methods {
		methodNames = append(methodNames, m.Name)
	}
	assert.Contains(t, methodNames, "verifyAccessToken")

	require.Contains(t, byName, "TokenStore")
	assert.Equal(t, KindInterface, byName["TokenStore"].Kind)

	require.Contains(t, byName, "Session")
	assert.Equal(t, KindType, byName["Session"].Kind)

	require.Contains(t, byName, "MAX_RETRIES")
	assert.Equal(t, KindConst, byName["MAX_RETRIES"].Kind)
}

func TestTypeScriptAdapter_ExtractImports(t *testing.T) {
	a := NewTypeScriptAdapter()
	imports, err := a.ExtractImports(tsFixture, "auth.ts")
	require.NoError(t, err)

	specs := make([]string, 0, len(imports))
	for _, imp := range imports {
		specs = append(specs, imp.Specifier)
	}
	assert.Contains(t, specs, "zod")
	assert.Contains(t, specs, "./helpers")
}

func TestTypeScriptAdapter_CallAnalysis(t *testing.T) {
	a := NewTypeScriptAdapter()
	require.True(t, a.SupportsCallAnalysis())

	edges, err := a.AnalyzeCallRelationships(tsFixture, "auth.ts")
	require.NoError(t, err)

	var found bool
	for _, e := range edges {
		if e.FromSymbol == "login" && e.ToSymbol == "createSession" {
			found = true
			assert.Greater(t, e.Confidence, 0.0)
			assert.LessOrEqual(t, e.Confidence, 1.0)
		}
	}
	assert.True(t, found, "login -> createSession call edge expected")
}
