package schema

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// Issue is a single validation failure.
type Issue struct {
	// InstanceLocation is the JSON pointer of the offending value ("" for
	// the whole mapping).
	InstanceLocation string `json:"instance_location"`
	// KeywordLocation is the JSON pointer of the failing schema keyword.
	KeywordLocation string `json:"keyword_location"`
	Keyword         string `json:"keyword"`
	Message         string `json:"message"`
}

// String renders the issue as "#/location: message".
func (i Issue) String() string {
	loc := "#" + i.InstanceLocation
	if i.Message == "" {
		return loc
	}
	return fmt.Sprintf("%s: %s", loc, i.Message)
}

// Depth is the number of segments in the instance location.
func (i Issue) Depth() int {
	if i.InstanceLocation == "" || i.InstanceLocation == "/" {
		return 0
	}
	return strings.Count(i.InstanceLocation, "/")
}

// weakKeywords mark alternatives: a failed branch of anyOf/oneOf says less
// about what to fix than a direct failure.
var weakKeywords = map[string]bool{
	"anyOf": true,
	"oneOf": true,
}

func (i Issue) weak() bool {
	for _, seg := range strings.Split(i.KeywordLocation, "/") {
		if weakKeywords[seg] {
			return true
		}
	}
	return false
}

// Rank sorts issues most relevant first: deeper instance locations, then
// direct failures before alternative branches, then keyword location and
// message for a stable order.
func Rank(issues []Issue) {
	slices.SortStableFunc(issues, func(a, b Issue) int {
		if c := cmp.Compare(b.Depth(), a.Depth()); c != 0 {
			return c
		}
		if aw, bw := a.weak(), b.weak(); aw != bw {
			if aw {
				return 1
			}
			return -1
		}
		if c := cmp.Compare(a.KeywordLocation, b.KeywordLocation); c != 0 {
			return c
		}
		return cmp.Compare(a.Message, b.Message)
	})
}
