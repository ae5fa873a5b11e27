// Package revset builds jj revset expressions.
//
// User-supplied text only ever reaches an expression through Quote, so the
// escaping rules for embedded string literals live in one place.
package revset

import (
	"fmt"
	"strings"
)

// WorkingCopyRev denotes the current workspace's working-copy revision.
const WorkingCopyRev = "@"

var literalEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// Quote renders s as a revset string literal.
func Quote(s string) string {
	return `"` + literalEscaper.Replace(s) + `"`
}

// Range selects revisions that descend from start and are ancestors of end,
// both inclusive. Operands are grouped, so compound expressions stay intact.
func Range(start, end string) string {
	return "(" + start + ")::(" + end + ")"
}

// Ancestors selects end and all of its ancestors.
func Ancestors(end string) string {
	return "::(" + end + ")"
}

// DiffContains selects revisions whose diff matches pattern, optionally
// restricted to files matching path. The pattern is passed through verbatim
// apart from escaping, so jj's exact:/glob:/regex:/substring: prefixes work.
func DiffContains(pattern, path string) string {
	if path == "" {
		return fmt.Sprintf("diff_contains(%s)", Quote(pattern))
	}
	return fmt.Sprintf("diff_contains(%s, %s)", Quote(pattern), Quote(path))
}

// RemoteBookmark names a remote-tracking bookmark, e.g. main@origin.
func RemoteBookmark(name, remote string) string {
	return name + "@" + remote
}

// WorkingCopy names the working-copy revision of workspace, e.g. w1@.
func WorkingCopy(workspace string) string {
	return workspace + "@"
}

// Intersect selects revisions present in both a and b.
func Intersect(a, b string) string {
	return "(" + a + ") & (" + b + ")"
}
