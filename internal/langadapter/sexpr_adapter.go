package langadapter

import (
	"regexp"
	"strings"

	"github.com/chris-bluera/bluera-knowledge/internal/chunk"
)

// sexprAdapter parses Lisp-family sources (Clojure, Scheme, Common Lisp,
// Racket) by matching top-level defining forms. It exists mainly to prove the
// registry dispatches correctly on a third, structurally different language
// (parenthesis balancing instead of brace balancing) rather than to cover any
// single dialect exhaustively.
type sexprAdapter struct {
	BaseAdapter
}

// NewSExprAdapter creates the S-expression-family language adapter.
func NewSExprAdapter() Adapter { return &sexprAdapter{} }

func (sexprAdapter) LanguageID() string { return "lisp" }
func (sexprAdapter) Extensions() []string {
	return []string{".clj", ".cljs", ".cljc", ".scm", ".lisp", ".rkt"}
}
func (sexprAdapter) DisplayName() string { return "Lisp/Clojure/Scheme" }

var sexprDefRE = regexp.MustCompile(`\(\s*(defn-?|defun|define|defmacro|defmethod|defprotocol|defrecord|deftype)\s+(?:\^\S+\s+)?([\w\-!?*/+<>=]+)`)

func (a *sexprAdapter) Parse(text, path string) ([]CodeNode, error) {
	var nodes []CodeNode
	for _, m := range sexprDefRE.FindAllStringSubmatchIndex(text, -1) {
		form := text[m[2]:m[3]]
		name := text[m[4]:m[5]]
		end := matchingParen(text, m[0])
		nodes = append(nodes, CodeNode{
			Kind:      sexprKind(form),
			Name:      name,
			Exported:  !strings.HasSuffix(name, "-") && !strings.HasPrefix(name, "-"),
			StartLine: 1 + strings.Count(text[:m[0]], "\n"),
			EndLine:   1 + strings.Count(text[:end], "\n"),
			Signature: strings.TrimSpace(firstLine(text[m[0]:end])),
		})
	}
	return nodes, nil
}

func sexprKind(form string) NodeKind {
	switch form {
	case "defprotocol":
		return KindInterface
	case "defrecord", "deftype":
		return KindClass
	case "defmacro":
		return KindFunction
	default:
		return KindFunction
	}
}

// matchingParen returns the offset just past the closing paren matching the
// opening one found at or after start.
func matchingParen(text string, start int) int {
	open := strings.IndexByte(text[start:], '(')
	if open < 0 {
		return len(text)
	}
	i := start + open
	depth := 0
	inStr := false
	for i < len(text) {
		c := text[i]
		switch {
		case inStr:
			if c == '\\' {
				i++
			} else if c == '"' {
				inStr = false
			}
		case c == '"':
			inStr = true
		case c == ';':
			if nl := strings.IndexByte(text[i:], '\n'); nl >= 0 {
				i += nl
			} else {
				return len(text)
			}
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
		i++
	}
	return len(text)
}

var sexprRequireRE = regexp.MustCompile(`\((?:require|use|import)\s+['\[]?([\w.\-/]+)`)

func (a *sexprAdapter) ExtractImports(text, path string) ([]ImportInfo, error) {
	var out []ImportInfo
	for _, m := range sexprRequireRE.FindAllStringSubmatchIndex(text, -1) {
		out = append(out, ImportInfo{
			Specifier: text[m[2]:m[3]],
			Line:      1 + strings.Count(text[:m[0]], "\n"),
		})
	}
	return out, nil
}

func (a *sexprAdapter) SupportsChunk() bool { return true }

func (a *sexprAdapter) Chunk(text, path string) ([]chunk.Chunk, error) {
	nodes, _ := a.Parse(text, path)
	if len(nodes) == 0 {
		return chunk.ChunkSlidingWindow(text, chunk.CodePreset), nil
	}
	lines := strings.Split(text, "\n")
	var out []chunk.Chunk
	prevLine := 1
	for _, n := range nodes {
		if n.StartLine > prevLine {
			prevLine = n.StartLine
		}
		body := strings.Join(lines[n.StartLine-1:min(n.EndLine, len(lines))], "\n")
		out = append(out, chunk.Chunk{
			Content:    body,
			SymbolName: n.Name,
		})
		prevLine = n.EndLine + 1
	}
	for i := range out {
		out[i].ChunkIndex = i
		out[i].TotalChunks = len(out)
	}
	return out, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
