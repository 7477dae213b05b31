// Package chunk implements the content-aware chunking pipeline: split on
// structural boundaries first (ATX headers for markdown, top-level
// declarations for source code), fall back to a sliding window by character
// count when a section is still too large, and always report offsets back
// into the original text so chunks can be concatenated to reproduce it.
package chunk

import (
	"regexp"
	"strings"
)

// Preset names a soft-ceiling window shape.
type Preset struct {
	Name    string
	Target  int // soft ceiling in characters
	Overlap int // trailing characters duplicated into the next sliding-window chunk
}

// CodePreset targets source code: tight windows, small overlap.
var CodePreset = Preset{Name: "code", Target: 768, Overlap: 100}

// WebPreset targets documentation and crawled web pages: looser windows.
var WebPreset = Preset{Name: "web", Target: 1200, Overlap: 200}

// Chunk is one emitted unit of chunked content.
type Chunk struct {
	Content      string
	ChunkIndex   int
	TotalChunks  int
	StartOffset  int
	EndOffset    int
	SectionTitle string // set for markdown section-derived chunks
	SymbolName   string // set for source-declaration-derived chunks
}

var atxHeaderRE = regexp.MustCompile(`(?m)^(#{1,4})\s+(.+?)\s*$`)

// ChunkMarkdown splits markdown on ATX headers of depth 1-4. Each section
// becomes one chunk if its body fits the target; otherwise it is
// sliding-window split, and every resulting chunk carries the section header.
func ChunkMarkdown(text string, preset Preset) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	type section struct {
		title string
		start int
		end   int
	}

	matches := atxHeaderRE.FindAllStringSubmatchIndex(text, -1)
	var sections []section
	if len(matches) == 0 || matches[0][0] != 0 {
		// leading preamble with no header of its own
		firstStart := len(text)
		if len(matches) > 0 {
			firstStart = matches[0][0]
		}
		if firstStart > 0 {
			sections = append(sections, section{title: "", start: 0, end: firstStart})
		}
	}
	for i, m := range matches {
		title := text[m[4]:m[5]]
		start := m[0]
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		sections = append(sections, section{title: title, start: start, end: end})
	}
	if len(sections) == 0 {
		sections = append(sections, section{title: "", start: 0, end: len(text)})
	}

	var out []Chunk
	for _, sec := range sections {
		body := text[sec.start:sec.end]
		if len(strings.TrimSpace(body)) == 0 {
			continue
		}
		if len(body) <= preset.Target {
			out = append(out, Chunk{
				Content:      strings.TrimRight(body, "\n"),
				StartOffset:  sec.start,
				EndOffset:    sec.end,
				SectionTitle: sec.title,
			})
			continue
		}
		for _, sw := range slidingWindow(body, preset) {
			sw.StartOffset += sec.start
			sw.EndOffset += sec.start
			sw.SectionTitle = sec.title
			out = append(out, sw)
		}
	}
	return finalizeIndices(out)
}

// declarationRE matches top-level TypeScript/JavaScript declarations with
// an optional preceding JSDoc block.
var declarationRE = regexp.MustCompile(`(?m)^(?:export\s+)?(?:default\s+)?(?:async\s+)?(function\s*\*?\s+(\w+)|class\s+(\w+)|interface\s+(\w+)|type\s+(\w+)|enum\s+(\w+)|(?:const|let|var)\s+(\w+))`)

// ChunkSourceDeclarations splits TypeScript/JavaScript-like source on top-level
// declarations, using brace balancing that skips string/template/comment
// contexts to find the end of block-bodied declarations. Declarations larger
// than the preset target are further split with the sliding window.
func ChunkSourceDeclarations(text string, preset Preset) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	locs := declarationRE.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return finalizeIndices(slidingWindow(text, preset))
	}

	var out []Chunk
	prevEnd := 0
	for i, loc := range locs {
		declStart := loc[0]
		// absorb a leading JSDoc block directly above the declaration
		start := absorbLeadingDoc(text, declStart, prevEnd)

		if start > prevEnd {
			// content between declarations (imports, comments, blank lines)
			between := text[prevEnd:start]
			if strings.TrimSpace(between) != "" {
				out = append(out, splitOversized(between, preset, prevEnd, "")...)
			}
		}

		name := firstNonEmptyGroup(text, loc)
		declEnd := findDeclarationEnd(text, declStart, loc[1])
		// a following declaration cannot start before this one ends; clamp
		if i+1 < len(locs) && locs[i+1][0] < declEnd {
			declEnd = locs[i+1][0]
		}
		if declEnd > len(text) {
			declEnd = len(text)
		}

		body := text[start:declEnd]
		out = append(out, splitOversized(body, preset, start, name)...)
		prevEnd = declEnd
	}
	if prevEnd < len(text) {
		tail := text[prevEnd:]
		if strings.TrimSpace(tail) != "" {
			out = append(out, splitOversized(tail, preset, prevEnd, "")...)
		}
	}
	return finalizeIndices(out)
}

// splitOversized returns body as one chunk if it fits the target, otherwise
// sliding-window splits it, tagging every resulting chunk with symbolName.
func splitOversized(body string, preset Preset, baseOffset int, symbolName string) []Chunk {
	if len(body) <= preset.Target {
		return []Chunk{{
			Content:     strings.TrimRight(body, "\n"),
			StartOffset: baseOffset,
			EndOffset:   baseOffset + len(body),
			SymbolName:  symbolName,
		}}
	}
	chunks := slidingWindow(body, preset)
	for i := range chunks {
		chunks[i].StartOffset += baseOffset
		chunks[i].EndOffset += baseOffset
		chunks[i].SymbolName = symbolName
	}
	return chunks
}

// absorbLeadingDoc walks backward from declStart over a /** ... */ or a run of
// // lines, never crossing prevEnd (the end of the previous declaration).
func absorbLeadingDoc(text string, declStart, prevEnd int) int {
	i := declStart
	for i > prevEnd {
		// i sits at a line start; examine the line above it
		lineEnd := i - 1
		if lineEnd < prevEnd || text[lineEnd] != '\n' {
			break
		}
		lineStart := strings.LastIndex(text[:lineEnd], "\n") + 1
		line := strings.TrimSpace(text[lineStart:lineEnd])
		if line == "" || strings.HasPrefix(line, "//") || strings.HasPrefix(line, "*") ||
			strings.HasPrefix(line, "/**") || strings.HasSuffix(line, "*/") {
			i = lineStart
			continue
		}
		break
	}
	if i < prevEnd {
		i = prevEnd
	}
	return i
}

func firstNonEmptyGroup(text string, loc []int) string {
	// groups 2,3,... correspond to function/class/interface/type/enum/const names
	for g := 2; g*2+1 < len(loc); g++ {
		s, e := loc[g*2], loc[g*2+1]
		if s >= 0 && e >= 0 {
			return text[s:e]
		}
	}
	return ""
}

// findDeclarationEnd locates the end of a block-bodied declaration starting at
// declStart, using a brace counter that skips string, template-literal, and
// comment contexts. If no opening brace is found before a top-level
// semicolon or newline (e.g. a type alias `type X = Y;`), that terminator
// ends the declaration.
func findDeclarationEnd(text string, declStart, afterKeyword int) int {
	i := afterKeyword
	depth := 0
	seenBrace := false
	inStr := byte(0)
	inLineComment := false
	inBlockComment := false
	inTemplate := false

	for i < len(text) {
		c := text[i]
		switch {
		case inLineComment:
			if c == '\n' {
				inLineComment = false
			}
		case inBlockComment:
			if c == '*' && i+1 < len(text) && text[i+1] == '/' {
				inBlockComment = false
				i++
			}
		case inStr != 0:
			if c == '\\' {
				i++
			} else if c == inStr {
				inStr = 0
			}
		case inTemplate:
			if c == '\\' {
				i++
			} else if c == '`' {
				inTemplate = false
			}
		default:
			switch c {
			case '/':
				if i+1 < len(text) && text[i+1] == '/' {
					inLineComment = true
					i++
				} else if i+1 < len(text) && text[i+1] == '*' {
					inBlockComment = true
					i++
				}
			case '"', '\'':
				inStr = c
			case '`':
				inTemplate = true
			case '{':
				depth++
				seenBrace = true
			case '}':
				depth--
				if seenBrace && depth == 0 {
					return i + 1
				}
			case ';':
				if !seenBrace && depth == 0 {
					return i + 1
				}
			case '\n':
				if !seenBrace && depth == 0 {
					// a bare `const x = 1` with no semicolon/brace ends at newline,
					// but only once we've seen an `=` (otherwise keep scanning, e.g.
					// a multi-line type union).
					if strings.Contains(text[afterKeyword:i], "=") || strings.Contains(text[declStart:i], "type ") {
						return i + 1
					}
				}
			}
		}
		i++
	}
	return len(text)
}

// FindBlockEnd exposes the brace/comment/string-aware declaration-end
// scanner for reuse outside the chunker itself: language adapters use it to
// find where a class/function/interface body ends, and search-time code-unit
// extraction reuses the identical scanner.
func FindBlockEnd(text string, declStart int) int {
	return findDeclarationEnd(text, declStart, declStart)
}

// slidingWindow splits text into preset.Target-sized windows with
// preset.Overlap trailing characters duplicated into the next window.
func slidingWindow(text string, preset Preset) []Chunk {
	if len(text) <= preset.Target {
		return []Chunk{{Content: text, StartOffset: 0, EndOffset: len(text)}}
	}

	var out []Chunk
	pos := 0
	for pos < len(text) {
		end := pos + preset.Target
		if end > len(text) {
			end = len(text)
		}
		out = append(out, Chunk{
			Content:     text[pos:end],
			StartOffset: pos,
			EndOffset:   end,
		})
		if end >= len(text) {
			break
		}
		advance := preset.Target - preset.Overlap
		if advance <= 0 {
			advance = preset.Target
		}
		pos += advance
	}
	return out
}

// finalizeIndices fills in ChunkIndex/TotalChunks over the full slice.
func finalizeIndices(chunks []Chunk) []Chunk {
	for i := range chunks {
		chunks[i].ChunkIndex = i
		chunks[i].TotalChunks = len(chunks)
	}
	return chunks
}

// ChunkSlidingWindow is the fallback path for any input that isn't markdown or
// a recognized source-declaration language: plain character-count windows.
func ChunkSlidingWindow(text string, preset Preset) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return finalizeIndices(slidingWindow(text, preset))
}
