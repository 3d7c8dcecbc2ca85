// Package filter implements the log-pipeline query language of spec.md
// §4.5.5: a single-line, whitespace-separated list of prefixed
// attributes that composes into pod/container/line inclusion rules,
// an owning-resource label selector, and an optional jq transform.
package filter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/itchyny/gojq"
	"github.com/pkg/errors"
)

// KindNameRef is a parsed "<kind>/<name>" attribute, resolved later by
// internal/logpipeline against a live client (resolution needs a kube
// client; this package only parses).
type KindNameRef struct {
	Kind string
	Name string
}

// kindAliases maps the kind aliases spec.md §4.5.5 names to their
// canonical form.
var kindAliases = map[string]string{
	"pod": "pod", "po": "pod",
	"deployment": "deployment", "deploy": "deployment",
	"daemonset": "daemonset", "ds": "daemonset",
	"replicaset": "replicaset", "rs": "replicaset",
	"statefulset": "statefulset", "sts": "statefulset",
	"job":     "job",
	"service": "service", "svc": "service",
}

// Query is the parsed, pre-resolution form of one filter string.
type Query struct {
	PodIncludes       []*regexp.Regexp
	PodExcludes       []*regexp.Regexp
	ContainerIncludes []*regexp.Regexp
	ContainerExcludes []*regexp.Regexp
	LogIncludes       []*regexp.Regexp
	LogExcludes       []*regexp.Regexp

	LabelSelector string
	FieldSelector string
	KindName      *KindNameRef

	JQSource string
	JQCode   *gojq.Code
}

// ParseError carries the categorized reason spec.md §4.5.5 requires
// for jq compile failures, and is also used for syntax errors in the
// query itself.
type ParseError struct {
	Program string
	Reason  string // "IO" | "Lex" | "Parse" | "UndefinedFilter" | "UndefinedVar" | "Syntax"
	Cause   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("filter: %s: %s (%q)", e.Reason, e.Cause, e.Program)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// Parse tokenizes raw and builds a Query. Regexes and the jq program
// compile immediately, so a bad query fails at parse time rather than
// on the first log line.
func Parse(raw string) (*Query, error) {
	tokens, err := tokenize(raw)
	if err != nil {
		return nil, &ParseError{Program: raw, Reason: "Syntax", Cause: err}
	}

	q := &Query{}
	var jqSource string
	haveJQ := false

	for _, tok := range tokens {
		// A token splitAttr rejects leaves prefix empty and falls through
		// to the default branch, which accepts a bare <kind>/<name>.
		prefix, value, negate, _ := splitAttr(tok)

		switch prefix {
		case "pod", "po", "p":
			re, err := compileRegex(value)
			if err != nil {
				return nil, err
			}
			if negate {
				q.PodExcludes = append(q.PodExcludes, re)
			} else {
				q.PodIncludes = append(q.PodIncludes, re)
			}
		case "container", "co", "c":
			re, err := compileRegex(value)
			if err != nil {
				return nil, err
			}
			if negate {
				q.ContainerExcludes = append(q.ContainerExcludes, re)
			} else {
				q.ContainerIncludes = append(q.ContainerIncludes, re)
			}
		case "log", "lo":
			re, err := compileRegex(value)
			if err != nil {
				return nil, err
			}
			if negate {
				q.LogExcludes = append(q.LogExcludes, re)
			} else {
				q.LogIncludes = append(q.LogIncludes, re)
			}
		case "labels", "label", "l":
			if q.KindName != nil {
				return nil, &ParseError{Program: raw, Reason: "Syntax", Cause: errors.New("label selector and <kind>/<name> are mutually exclusive")}
			}
			q.LabelSelector = value
		case "fields", "field", "f":
			q.FieldSelector = value
		case "jq":
			jqSource = value
			haveJQ = true
		default:
			if ref, ok := parseKindName(tok); ok {
				if q.LabelSelector != "" {
					return nil, &ParseError{Program: raw, Reason: "Syntax", Cause: errors.New("label selector and <kind>/<name> are mutually exclusive")}
				}
				q.KindName = ref
				continue
			}
			return nil, &ParseError{Program: tok, Reason: "Syntax", Cause: errors.New("unrecognized attribute")}
		}
	}

	if haveJQ {
		code, err := compileJQ(jqSource)
		if err != nil {
			return nil, err
		}
		q.JQSource = jqSource
		q.JQCode = code
	}

	return q, nil
}

// splitAttr splits one token into its prefix/value/negation, per the
// alias table in spec.md §4.5.5. Returns ok=false when tok isn't a
// recognized "prefix:value" attribute (e.g. a bare <kind>/<name>).
func splitAttr(tok string) (prefix, value string, negate bool, ok bool) {
	if strings.HasPrefix(tok, "!") {
		negate = true
		tok = tok[1:]
	}
	idx := strings.IndexByte(tok, ':')
	if idx < 0 {
		return "", "", false, false
	}
	prefix = tok[:idx]
	switch prefix {
	case "pod", "po", "p", "container", "co", "c", "log", "lo", "labels", "label", "l", "fields", "field", "f", "jq":
		return prefix, tok[idx+1:], negate, true
	default:
		return "", "", false, false
	}
}

// parseKindName recognizes a bare "<kind>/<name>" token.
func parseKindName(tok string) (*KindNameRef, bool) {
	idx := strings.IndexByte(tok, '/')
	if idx < 0 {
		return nil, false
	}
	kind, ok := kindAliases[tok[:idx]]
	if !ok {
		return nil, false
	}
	name := tok[idx+1:]
	if name == "" {
		return nil, false
	}
	return &KindNameRef{Kind: kind, Name: name}, true
}

func compileRegex(src string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(src)
	if err != nil {
		return nil, &ParseError{Program: src, Reason: "Lex", Cause: err}
	}
	return re, nil
}

func compileJQ(src string) (*gojq.Code, error) {
	q, err := gojq.Parse(src)
	if err != nil {
		return nil, &ParseError{Program: src, Reason: "Parse", Cause: err}
	}
	code, err := gojq.Compile(q)
	if err != nil {
		reason := "UndefinedFilter"
		if strings.Contains(err.Error(), "variable") {
			reason = "UndefinedVar"
		}
		return nil, &ParseError{Program: src, Reason: reason, Cause: err}
	}
	return code, nil
}
