package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/obvault/internal/frontmatter"
)

func fmJSON(t *testing.T, r Result) string {
	t.Helper()
	b, err := json.Marshal(r.Frontmatter)
	if err != nil {
		t.Fatalf("marshal frontmatter: %v", err)
	}
	return string(b)
}

func TestParse_FrontmatterAndBody(t *testing.T) {
	r := Parse([]byte("---\nstatus: done\n---\nRemember the #todo item\n"))
	if got := fmJSON(t, r); got != `{"status":"done"}` {
		t.Errorf("frontmatter = %s", got)
	}
	if diff := cmp.Diff([]string{"todo"}, r.Tags); diff != "" {
		t.Errorf("tags (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Remember the #todo item"}, r.Lines); diff != "" {
		t.Errorf("lines (-want +got):\n%s", diff)
	}
	if r.FrontmatterErr != nil {
		t.Errorf("unexpected FrontmatterErr: %v", r.FrontmatterErr)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	r := Parse([]byte("#todo/now check this"))
	if r.Frontmatter == nil || r.Frontmatter.Len() != 0 {
		t.Errorf("expected empty frontmatter, got %s", fmJSON(t, r))
	}
	if diff := cmp.Diff([]string{"todo/now"}, r.Tags); diff != "" {
		t.Errorf("tags (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"#todo/now check this"}, r.Lines); diff != "" {
		t.Errorf("lines (-want +got):\n%s", diff)
	}
}

func TestParse_UnterminatedBlockIsBody(t *testing.T) {
	input := "---\nstatus: done\nno closing fence\n"
	r := Parse([]byte(input))
	if r.Frontmatter.Len() != 0 {
		t.Errorf("expected empty frontmatter, got %s", fmJSON(t, r))
	}
	want := []string{"---", "status: done", "no closing fence"}
	if diff := cmp.Diff(want, r.Lines); diff != "" {
		t.Errorf("lines (-want +got):\n%s", diff)
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	r := Parse([]byte("---\n: invalid: yaml: {{{\n---\nBody\n"))
	if r.Frontmatter.Len() != 0 {
		t.Errorf("expected empty frontmatter on invalid YAML")
	}
	if r.FrontmatterErr == nil {
		t.Error("expected FrontmatterErr to describe the rejected block")
	}
	want := []string{"---", ": invalid: yaml: {{{", "---", "Body"}
	if diff := cmp.Diff(want, r.Lines); diff != "" {
		t.Errorf("lines (-want +got):\n%s", diff)
	}
}

func TestParse_NonMappingBlockFallback(t *testing.T) {
	r := Parse([]byte("---\n- a\n- b\n---\ntext\n"))
	if r.Frontmatter.Len() != 0 || r.FrontmatterErr == nil {
		t.Errorf("sequence block should be rejected, got %s err=%v", fmJSON(t, r), r.FrontmatterErr)
	}
	if len(r.Lines) != 5 {
		t.Errorf("lines = %q, want the whole text", r.Lines)
	}
}

func TestParse_AliasBombFallback(t *testing.T) {
	var block strings.Builder
	block.WriteString("a0: &a0 [x]\n")
	for i := 1; i <= 10; i++ {
		fmt.Fprintf(&block, "a%d: &a%d [%s]\n", i, i, strings.Repeat(fmt.Sprintf("*a%d,", i-1), 8)+fmt.Sprintf("*a%d", i-1))
	}
	r := Parse([]byte("---\n" + block.String() + "---\nstill #indexed\n"))
	if !errors.Is(r.FrontmatterErr, frontmatter.ErrTooLarge) {
		t.Fatalf("FrontmatterErr = %v, want ErrTooLarge", r.FrontmatterErr)
	}
	if r.Frontmatter.Len() != 0 {
		t.Errorf("frontmatter = %s, want {}", fmJSON(t, r))
	}
	if diff := cmp.Diff([]string{"indexed"}, r.Tags); diff != "" {
		t.Errorf("tags (-want +got):\n%s", diff)
	}
}

func TestParse_EmptyBlock(t *testing.T) {
	r := Parse([]byte("---\n---\nbody\n"))
	if r.FrontmatterErr != nil {
		t.Fatalf("empty block should be valid: %v", r.FrontmatterErr)
	}
	if r.Frontmatter.Len() != 0 {
		t.Errorf("frontmatter = %s", fmJSON(t, r))
	}
	if diff := cmp.Diff([]string{"body"}, r.Lines); diff != "" {
		t.Errorf("lines (-want +got):\n%s", diff)
	}
}

func TestParse_BlockMustStartTheFile(t *testing.T) {
	r := Parse([]byte("\n---\nstatus: done\n---\n"))
	if r.Frontmatter.Len() != 0 {
		t.Errorf("block after a blank line is body, got %s", fmJSON(t, r))
	}
}

func TestParse_CRLFAndBOM(t *testing.T) {
	r := Parse([]byte("\uFEFF---\r\ntitle: Hi\r\n---\r\nline one\r\nline two\rline three"))
	if got := fmJSON(t, r); got != `{"title":"Hi"}` {
		t.Errorf("frontmatter = %s", got)
	}
	want := []string{"line one", "line two", "line three"}
	if diff := cmp.Diff(want, r.Lines); diff != "" {
		t.Errorf("lines (-want +got):\n%s", diff)
	}
}

func TestParse_LinesKeepWhitespace(t *testing.T) {
	r := Parse([]byte("  indented\t\n\ntrailing  \n"))
	want := []string{"  indented\t", "", "trailing  "}
	if diff := cmp.Diff(want, r.Lines); diff != "" {
		t.Errorf("lines (-want +got):\n%s", diff)
	}
}

func TestParse_NestedFrontmatter(t *testing.T) {
	r := Parse([]byte("---\ntitle: T\naliases:\n  - one\n  - two\nmeta:\n  rating: 4\n---\n"))
	want := `{"title":"T","aliases":["one","two"],"meta":{"rating":4}}`
	if got := fmJSON(t, r); got != want {
		t.Errorf("frontmatter = %s, want %s", got, want)
	}
	if len(r.Lines) != 0 {
		t.Errorf("lines = %q, want none", r.Lines)
	}
}

func TestParse_FrontmatterRoundTrip(t *testing.T) {
	r := Parse([]byte("---\nstatus: doing\ntags: [a, b, c]\nscore: 7\n---\nbody\n"))
	out, err := frontmatter.Encode(r.Frontmatter)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	again := Parse([]byte("---\n" + string(out) + "---\nbody\n"))
	if !frontmatter.Equal(r.Frontmatter, again.Frontmatter) {
		t.Errorf("round trip changed frontmatter: %s", out)
	}
}

func TestExtractTags_Grammar(t *testing.T) {
	cases := []struct {
		name string
		text string
		want []string
	}{
		{"simple", "a #tag here", []string{"tag"}},
		{"hierarchical", "#learn/anki and #todo/now", []string{"learn/anki", "todo/now"}},
		{"case preserved", "#Project-X", []string{"Project-X"}},
		{"url fragment", "see https://example.com/page#section", []string{}},
		{"identifier", "foo#bar and x_#y", []string{}},
		{"heading", "# Heading\n## Sub", []string{}},
		{"punctuation before", "(#one), [#two]", []string{"one", "two"}},
		{"digits and underscore", "#2024_q1", []string{"2024_q1"}},
		{"in frontmatter", "---\nnote: \"#inbox\"\n---\n", []string{"inbox"}},
		{"duplicates", "#a #a #a", []string{"a"}},
		{"line start", "text\n#next", []string{"next"}},
		{"after slash-terminated tag", "#a/#b", []string{"a/", "b"}},
		{"after dash-terminated tag", "#todo-#now", []string{"now", "todo-"}},
		{"glued after word tag", "#a#b", []string{"a"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, extractTags(tc.text)); diff != "" {
				t.Errorf("tags (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExtractTags_IndependentOfLineOrder(t *testing.T) {
	lines := []string{"first #alpha", "second", "third #beta/gamma", "#delta at start", "plain"}
	want := extractTags(join(lines))

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		shuffled := append([]string(nil), lines...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		if diff := cmp.Diff(want, extractTags(join(shuffled))); diff != "" {
			t.Fatalf("tags changed after shuffling (-want +got):\n%s", diff)
		}
	}

	more := extractTags(join(append(lines, "added #epsilon")))
	if len(more) != len(want)+1 {
		t.Errorf("adding a tag should change the set: %v", more)
	}
}

func TestParse_Deterministic(t *testing.T) {
	input := []byte("---\nb: 2\na: 1\n---\n#x #y\nbody\n")
	first := Parse(input)
	for i := 0; i < 5; i++ {
		again := Parse(input)
		if !frontmatter.Equal(first.Frontmatter, again.Frontmatter) ||
			!cmp.Equal(first.Lines, again.Lines) || !cmp.Equal(first.Tags, again.Tags) {
			t.Fatal("Parse is not deterministic")
		}
	}
}

func join(lines []string) string {
	out := ""
	for _, l := range lines {
		out += l + "\n"
	}
	return out
}
