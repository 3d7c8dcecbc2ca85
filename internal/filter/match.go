package filter

import (
	"context"
	"regexp"
)

// MatchesPod reports whether podName passes the include/exclude
// composition of spec.md §4.5.5: any include (or none) AND no exclude.
func (q *Query) MatchesPod(name string) bool {
	return matches(name, q.PodIncludes, q.PodExcludes)
}

// MatchesContainer is MatchesPod's counterpart for container names.
func (q *Query) MatchesContainer(name string) bool {
	return matches(name, q.ContainerIncludes, q.ContainerExcludes)
}

func matches(s string, includes, excludes []*regexp.Regexp) bool {
	for _, re := range excludes {
		if re.MatchString(s) {
			return false
		}
	}
	if len(includes) == 0 {
		return true
	}
	for _, re := range includes {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// AllowLine applies the log: / !log: composition to one line's text.
func (q *Query) AllowLine(text string) bool {
	return matches(text, q.LogIncludes, q.LogExcludes)
}

// Transform applies the compiled jq: program to one line, when present.
// A line is JSON-decoded, run through the program, and the first
// emitted value re-encoded; a non-JSON line passes through unchanged,
// and a program yielding no output returns "" with a nil error.
func (q *Query) Transform(ctx context.Context, text string) (string, error) {
	if q.JQCode == nil {
		return text, nil
	}
	return runJQ(ctx, q.JQCode, text)
}
