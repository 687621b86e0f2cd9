package index

import (
	"database/sql"
	"slices"
	"strings"
	"unicode"
)

const (
	defaultSearchLimit = 20
	excerptWidth       = 160
)

// likePattern turns a user query into a LIKE pattern matching it anywhere,
// with the LIKE wildcards escaped by a backslash.
func likePattern(query string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(query) + "%"
}

// ftsQuery quotes every whitespace-separated term so user input cannot be
// read as FTS5 syntax; each term is matched as a prefix and all must occur.
func ftsQuery(query string) string {
	terms := strings.Fields(query)
	for i, t := range terms {
		terms[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"*`
	}
	return strings.Join(terms, " ")
}

// excerpt returns about width runes of body around the first
// case-insensitive occurrence of query, whitespace collapsed. Without a match
// it returns the start of body.
func excerpt(body, query string, width int) string {
	text := []rune(strings.Join(strings.Fields(body), " "))
	needle := []rune(strings.ToLower(query))
	lowered := make([]rune, len(text))
	for i, r := range text {
		lowered[i] = unicode.ToLower(r)
	}

	at := 0
	if len(needle) > 0 {
		for i := 0; i+len(needle) <= len(lowered); i++ {
			if slices.Equal(lowered[i:i+len(needle)], needle) {
				at = i
				break
			}
		}
	}

	start := max(0, at-width/2)
	end := min(len(text), start+width)
	start = max(0, min(start, end-width))

	out := string(text[start:end])
	if start > 0 {
		out = "..." + out
	}
	if end < len(text) {
		out += "..."
	}
	return out
}

func scanResults(rows *sql.Rows) ([]SearchResult, error) {
	defer rows.Close()
	out := []SearchResult{}
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Path, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
