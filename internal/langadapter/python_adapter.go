package langadapter

import (
	"context"

	"github.com/chris-bluera/bluera-knowledge/internal/capability"
	"github.com/chris-bluera/bluera-knowledge/internal/chunk"
	"github.com/chris-bluera/bluera-knowledge/internal/engineerr"
)

// pythonAdapter does not parse Python itself. Scope resolution in Python
// (decorators, nested classes, dynamic imports) is not something a regex
// heuristic reproduces reliably, so symbol extraction is delegated to an
// external LanguageParse capability; this adapter is a thin translation
// layer from capability.ParsedSymbol to CodeNode.
type pythonAdapter struct {
	parser capability.LanguageParse
}

// NewPythonAdapter creates the Python adapter, delegating symbol extraction
// to parser. A nil parser is valid: Parse then returns no nodes rather than
// failing, the same "degrade, don't error" behavior BaseAdapter gives every
// other optional capability.
func NewPythonAdapter(parser capability.LanguageParse) Adapter {
	return &pythonAdapter{parser: parser}
}

func (pythonAdapter) LanguageID() string   { return "python" }
func (pythonAdapter) Extensions() []string { return []string{".py", ".pyi"} }
func (pythonAdapter) DisplayName() string  { return "Python" }

func (a *pythonAdapter) Parse(text, path string) ([]CodeNode, error) {
	if a.parser == nil {
		return nil, nil
	}
	symbols, err := a.parser.ParseSymbols(context.Background(), text, path)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.ParseFailure, "pythonAdapter.Parse", "delegated parse failed for "+path, err)
	}
	nodes := make([]CodeNode, 0, len(symbols))
	for _, s := range symbols {
		nodes = append(nodes, CodeNode{
			Kind:      pythonKind(s.Kind),
			Name:      s.Name,
			Exported:  len(s.Name) == 0 || s.Name[0] != '_',
			StartLine: s.StartLine,
			EndLine:   s.EndLine,
		})
	}
	return nodes, nil
}

func pythonKind(kind string) NodeKind {
	switch kind {
	case "class":
		return KindClass
	case "method":
		return KindMethod
	case "const", "constant":
		return KindConst
	default:
		return KindFunction
	}
}

func (a *pythonAdapter) ExtractImports(text, path string) ([]ImportInfo, error) {
	return nil, nil // delegated parsers are not required to report imports
}

func (a *pythonAdapter) SupportsChunk() bool { return true }

// Chunk falls back to the generic sliding window: the declaration chunker's
// brace-balancing scanner assumes a C-family block syntax, which indentation-
// delimited Python bodies do not have.
func (a *pythonAdapter) Chunk(text, path string) ([]chunk.Chunk, error) {
	return chunk.ChunkSlidingWindow(text, chunk.CodePreset), nil
}

func (a *pythonAdapter) SupportsCallAnalysis() bool { return false }

func (a *pythonAdapter) AnalyzeCallRelationships(text, path string) ([]RawCallEdge, error) {
	return nil, nil
}
