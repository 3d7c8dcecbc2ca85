package filter

import "strings"

// Format reconstructs query syntax from a parsed Query, canonicalizing
// attribute order (pod, container, log, then the mutually exclusive
// labels/kind-name, fields, jq) so that parse(format(q)) always
// reproduces an equivalent Query (spec.md §8's round-trip law). Called
// on a Query as returned by Parse, before Resolve mutates it: Resolve
// folds a <kind>/<name> attribute's effect into PodIncludes/LabelSelector
// while leaving KindName set, so formatting a resolved Query would
// double up that attribute.
func (q *Query) Format() string {
	var parts []string

	for _, re := range q.PodIncludes {
		parts = append(parts, attrToken("pod", re.String(), false))
	}
	for _, re := range q.PodExcludes {
		parts = append(parts, attrToken("pod", re.String(), true))
	}
	for _, re := range q.ContainerIncludes {
		parts = append(parts, attrToken("container", re.String(), false))
	}
	for _, re := range q.ContainerExcludes {
		parts = append(parts, attrToken("container", re.String(), true))
	}
	for _, re := range q.LogIncludes {
		parts = append(parts, attrToken("log", re.String(), false))
	}
	for _, re := range q.LogExcludes {
		parts = append(parts, attrToken("log", re.String(), true))
	}

	switch {
	case q.KindName != nil:
		parts = append(parts, q.KindName.Kind+"/"+q.KindName.Name)
	case q.LabelSelector != "":
		parts = append(parts, attrToken("labels", q.LabelSelector, false))
	}
	if q.FieldSelector != "" {
		parts = append(parts, attrToken("fields", q.FieldSelector, false))
	}
	if q.JQSource != "" {
		parts = append(parts, attrToken("jq", q.JQSource, false))
	}

	return strings.Join(parts, " ")
}

// String satisfies fmt.Stringer so a Query prints as its own query
// syntax in logs and test failures.
func (q *Query) String() string { return q.Format() }

func attrToken(prefix, value string, negate bool) string {
	tok := prefix + ":" + quoteIfNeeded(value)
	if negate {
		tok = "!" + tok
	}
	return tok
}

// quoteIfNeeded wraps value in double quotes, escaping backslash and
// double-quote runes, whenever it contains whitespace or a quote
// character tokenize would otherwise split or misparse on.
func quoteIfNeeded(value string) string {
	if value != "" && !strings.ContainsAny(value, " \t\n\"'\\") {
		return value
	}
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range value {
		if r == '"' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}
