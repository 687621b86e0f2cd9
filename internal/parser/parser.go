// Package parser extracts frontmatter, body lines, and tags from note text.
package parser

import (
	"bytes"
	"regexp"
	"slices"
	"strings"

	"github.com/starford/obvault/internal/frontmatter"
)

const delim = "---"

// tagRe matches a hashtag. extractTags drops matches glued to a preceding
// word character, so URL fragments and identifiers like foo#bar are left
// alone. The guard sits outside the pattern: a consumed guard character
// would hide the b of #a/#b.
var tagRe = regexp.MustCompile(`#([A-Za-z0-9_/-]+)`)

var bom = []byte("\uFEFF")

// Result holds the output of parsing one note.
type Result struct {
	// Frontmatter is never nil; it is empty when the note has no block or
	// the block was rejected.
	Frontmatter *frontmatter.Mapping
	// Lines are the body lines without their terminators.
	Lines []string
	// Tags are the distinct hashtags found anywhere in the text, sorted.
	Tags []string
	// FrontmatterErr is set when a closed block existed but could not be
	// decoded into a mapping. The block is then treated as body text.
	FrontmatterErr error
}

// Parse splits raw note bytes into frontmatter, body lines and tags.
// It never fails: malformed frontmatter degrades to an empty mapping.
func Parse(data []byte) Result {
	data = bytes.TrimPrefix(data, bom)
	lines := splitLines(string(data))

	res := Result{
		Frontmatter: frontmatter.NewMapping(),
		Lines:       lines,
		Tags:        extractTags(string(data)),
	}

	block, body, ok := splitFrontmatter(lines)
	if !ok {
		return res
	}
	fm, err := frontmatter.Decode([]byte(strings.Join(block, "\n")))
	if err != nil {
		// Rejected block: keep the whole text as body.
		res.FrontmatterErr = err
		return res
	}
	res.Frontmatter = fm
	res.Lines = body
	return res
}

// splitFrontmatter finds a block fenced by delimiter lines starting on the
// first line. ok is false when there is no opening or no closing fence.
func splitFrontmatter(lines []string) (block, body []string, ok bool) {
	if len(lines) == 0 || !isDelim(lines[0]) {
		return nil, lines, false
	}
	for i := 1; i < len(lines); i++ {
		if isDelim(lines[i]) {
			return lines[1:i], lines[i+1:], true
		}
	}
	return nil, lines, false
}

func isDelim(line string) bool {
	return strings.TrimRight(line, " \t") == delim
}

// splitLines breaks text on \n, \r\n and \r. A trailing terminator does not
// start an extra empty line.
func splitLines(text string) []string {
	out := []string{}
	for len(text) > 0 {
		i := strings.IndexAny(text, "\r\n")
		if i < 0 {
			out = append(out, text)
			break
		}
		out = append(out, text[:i])
		if text[i] == '\r' && i+1 < len(text) && text[i+1] == '\n' {
			i++
		}
		text = text[i+1:]
	}
	return out
}

// extractTags collects the distinct #tags of text, sorted.
func extractTags(text string) []string {
	matches := tagRe.FindAllStringSubmatchIndex(text, -1)
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if m[0] > 0 && isWordByte(text[m[0]-1]) {
			continue
		}
		t := text[m[2]:m[3]]
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

func isWordByte(c byte) bool {
	return c == '_' || '0' <= c && c <= '9' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
}
