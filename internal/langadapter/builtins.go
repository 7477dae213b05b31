package langadapter

import "github.com/chris-bluera/bluera-knowledge/internal/capability"

// RegisterBuiltins registers every built-in adapter on reg. pythonParser may
// be nil, in which case Python files contribute no graph nodes but are still
// chunked and indexed.
func RegisterBuiltins(reg *Registry, pythonParser capability.LanguageParse) error {
	adapters := []Adapter{
		NewTypeScriptAdapter(),
		NewGoAdapter(),
		NewRustAdapter(),
		NewPythonAdapter(pythonParser),
		NewSExprAdapter(),
	}
	for _, a := range adapters {
		if err := reg.Register(a); err != nil {
			return err
		}
	}
	return nil
}
