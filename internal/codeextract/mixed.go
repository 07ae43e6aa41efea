package codeextract

import (
	"regexp"
	"strings"
)

// Block is one recovered code block from a mixed-content body (markdown,
// extracted PDF text, etc.), ready for ParseFile under a synthetic path.
type Block struct {
	Content  string
	Language string
}

var fencedBlockRe = regexp.MustCompile("(?s)```([\\w+-]*)\\n(.*?)```")

var tagToLanguage = map[string]string{
	"py": "python", "python": "python",
	"js": "javascript", "javascript": "javascript", "jsx": "javascript",
	"ts": "typescript", "typescript": "typescript", "tsx": "typescript",
	"go": "go", "golang": "go",
	"rs": "rust", "rust": "rust",
	"java": "java",
	"c": "c",
	"cpp": "cpp", "c++": "cpp", "cc": "cpp", "h": "c", "hpp": "cpp",
}

const minFencedBlockChars = 10
const minHeuristicBlockChars = 20
const maxHeuristicBlockLines = 200

// ExtractBlocks recovers source-like blocks from a mixed natural-language
// body: first by fenced code blocks, falling back to a brace-balance
// heuristic scan when no fences are present.
func ExtractBlocks(body string) []Block {
	if fenced := extractFencedBlocks(body); len(fenced) > 0 {
		return fenced
	}
	return extractHeuristicBlocks(body)
}

func extractFencedBlocks(body string) []Block {
	var out []Block
	for _, m := range fencedBlockRe.FindAllStringSubmatch(body, -1) {
		tag := strings.ToLower(strings.TrimSpace(m[1]))
		content := m[2]
		if len(content) < minFencedBlockChars {
			continue
		}
		lang := detectLanguage(tag, content)
		if lang == "" {
			continue
		}
		out = append(out, Block{Content: content, Language: lang})
	}
	return out
}

// extractHeuristicBlocks scans line by line: a code-start heuristic opens a
// candidate block, which accumulates lines while tracking brace balance,
// closing once braces return to <=0, capped at 200 lines.
func extractHeuristicBlocks(body string) []Block {
	lines := strings.Split(body, "\n")
	var out []Block
	i := 0
	for i < len(lines) {
		if !looksLikeCodeStart(lines[i]) {
			i++
			continue
		}
		var buf []string
		braceBalance := 0
		openedBrace := false
		j := i
		for ; j < len(lines) && len(buf) < maxHeuristicBlockLines; j++ {
			line := lines[j]
			buf = append(buf, line)
			opens := strings.Count(line, "{")
			closes := strings.Count(line, "}")
			if opens > 0 {
				openedBrace = true
			}
			braceBalance += opens - closes
			if openedBrace && braceBalance <= 0 {
				j++
				break
			}
		}
		content := strings.Join(buf, "\n")
		if openedBrace && len(content) >= minHeuristicBlockChars && strings.Contains(content, "{") {
			if lang := detectLanguage("", content); lang != "" {
				out = append(out, Block{Content: content, Language: lang})
			}
		}
		i = j
	}
	return out
}

var codeStartRe = regexp.MustCompile(`^\s*(func|def|class|function|struct|trait|fn|interface|public|private|protected|#include|import|package|use\s)\b`)

func looksLikeCodeStart(line string) bool {
	return codeStartRe.MatchString(line)
}

// detectLanguage maps a fence tag to a language directly, then by extension
// lookup ".<tag>", then falls back to a content heuristic.
func detectLanguage(tag, content string) string {
	if tag != "" {
		if lang, ok := tagToLanguage[tag]; ok {
			return lang
		}
		if lang, ok := tagToLanguage[strings.TrimPrefix(tag, ".")]; ok {
			return lang
		}
	}
	return detectLanguageByContent(content)
}

func detectLanguageByContent(content string) string {
	switch {
	case strings.Contains(content, "func ") && (strings.Contains(content, "package ") || strings.Contains(content, "fmt.")):
		return "go"
	case strings.Contains(content, "def ") && strings.Contains(content, ":"):
		return "python"
	case strings.Contains(content, "fn ") && strings.Contains(content, "->"):
		return "rust"
	case strings.Contains(content, "#include"):
		if strings.Contains(content, "class ") || strings.Contains(content, "std::") {
			return "cpp"
		}
		return "c"
	case strings.Contains(content, "interface ") && strings.Contains(content, ": "):
		return "typescript"
	case strings.Contains(content, "public class") || strings.Contains(content, "import java"):
		return "java"
	case strings.Contains(content, "function ") || strings.Contains(content, "=>"):
		return "javascript"
	default:
		return ""
	}
}
