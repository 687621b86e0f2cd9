package index

import (
	"strings"
	"testing"
)

func TestExcerpt(t *testing.T) {
	long := strings.Repeat("a ", 50) + "Needle" + strings.Repeat(" b", 50)
	tests := []struct {
		name  string
		body  string
		query string
		width int
		want  string
	}{
		{name: "short body kept whole", body: "one\n\ntwo   three", query: "two", width: 40, want: "one two three"},
		{name: "no match takes the start", body: "abcdefghij", query: "zz", width: 4, want: "abcd..."},
		{name: "case-insensitive", body: "xxxxHELLOxxxx", query: "hello", width: 5, want: "...xxHEL..."},
		{name: "match near the end", body: "0123456789", query: "9", width: 4, want: "...6789"},
		{name: "multibyte runes", body: "ééééxéééé", query: "x", width: 3, want: "...éxé..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := excerpt(tt.body, tt.query, tt.width); got != tt.want {
				t.Errorf("excerpt = %q, want %q", got, tt.want)
			}
		})
	}

	got := excerpt(long, "needle", 20)
	if !strings.Contains(got, "Needle") || !strings.HasPrefix(got, "...") || !strings.HasSuffix(got, "...") {
		t.Errorf("excerpt of long body = %q", got)
	}
}

func TestLikePattern(t *testing.T) {
	if got, want := likePattern(`50%_off\`), `%50\%\_off\\%`; got != want {
		t.Errorf("likePattern = %q, want %q", got, want)
	}
}

func TestFTSQuery(t *testing.T) {
	tests := map[string]string{
		"":               "",
		"go":             `"go"*`,
		"  go   tour ":   `"go"* "tour"*`,
		`say "hi" OR (x`: `"say"* """hi"""* "OR"* "(x"*`,
	}
	for in, want := range tests {
		if got := ftsQuery(in); got != want {
			t.Errorf("ftsQuery(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(row("s.md", "1"), "uniqueword appears here")

	results, err := db.Search("uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path != "s.md" {
		t.Errorf("search results = %+v, want 1 hit for s.md", results)
	}
	if !strings.Contains(results[0].Snippet, "uniqueword") {
		t.Errorf("snippet = %q", results[0].Snippet)
	}
}

func TestSearch_SyntaxCharactersAreLiteral(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(row("p.md", "1"), "discount 50% today")

	for _, q := range []string{`"unbalanced`, `a OR (b`, `100%`, `x_y`} {
		results, err := db.Search(q, 10)
		if err != nil {
			t.Errorf("Search(%q): %v", q, err)
		}
		if len(results) != 0 {
			t.Errorf("Search(%q) = %+v, want no hits", q, results)
		}
	}
}

func TestSearch_DefaultLimit(t *testing.T) {
	db := testDB(t)
	for i := range defaultSearchLimit + 5 {
		_ = db.UpsertNote(row(string(rune('a'+i))+".md", "1"), "common word")
	}
	results, err := db.Search("common", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != defaultSearchLimit {
		t.Errorf("got %d results, want %d", len(results), defaultSearchLimit)
	}
}
