package filter

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse_PodAndContainerIncludeExclude(t *testing.T) {
	q, err := Parse(`pod:^web- !co:sidecar`)
	require.NoError(t, err)
	require.True(t, q.MatchesPod("web-abc123"))
	require.False(t, q.MatchesPod("db-abc123"))
	require.False(t, q.MatchesContainer("sidecar"))
	require.True(t, q.MatchesContainer("app"))
}

func TestParse_QuotedValueWithEscapes(t *testing.T) {
	q, err := Parse(`log:"error: \"disk full\""`)
	require.NoError(t, err)
	require.Len(t, q.LogIncludes, 1)
	require.True(t, q.AllowLine(`error: "disk full"`))
}

func TestParse_LabelSelectorAndKindNameMutuallyExclusive(t *testing.T) {
	_, err := Parse(`labels:app=web deploy/web`)
	require.Error(t, err)
}

func TestParse_KindNameAlone(t *testing.T) {
	q, err := Parse(`deploy/web`)
	require.NoError(t, err)
	require.NotNil(t, q.KindName)
	require.Equal(t, "deployment", q.KindName.Kind)
	require.Equal(t, "web", q.KindName.Name)
}

func TestResolve_PodKindAnchorsPodName(t *testing.T) {
	q, err := Parse(`pod/web-abc123`)
	require.NoError(t, err)
	require.NoError(t, q.Resolve(context.Background(), nil))
	require.True(t, q.MatchesPod("web-abc123"))
	require.False(t, q.MatchesPod("web-abc1234"))
}

func TestResolve_NonPodKindFetchesLabels(t *testing.T) {
	q, err := Parse(`svc/web`)
	require.NoError(t, err)
	err = q.Resolve(context.Background(), func(ctx context.Context, kind, name string) (map[string]string, error) {
		require.Equal(t, "service", kind)
		require.Equal(t, "web", name)
		return map[string]string{"app": "web", "tier": "frontend"}, nil
	})
	require.NoError(t, err)
	require.Equal(t, "app=web,tier=frontend", q.LabelSelector)
}

func TestParse_JQLastOneWins(t *testing.T) {
	q, err := Parse(`jq:.a jq:.b`)
	require.NoError(t, err)
	require.Equal(t, ".b", q.JQSource)
}

func TestParse_InvalidRegexIsLexError(t *testing.T) {
	_, err := Parse(`log:(unclosed`)
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "Lex", perr.Reason)
}

func TestParse_InvalidJQIsParseError(t *testing.T) {
	_, err := Parse(`jq:.[`)
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "Parse", perr.Reason)
}

func TestTransform_NonJSONLinePassesThrough(t *testing.T) {
	q, err := Parse(`jq:.msg`)
	require.NoError(t, err)
	out, err := q.Transform(context.Background(), "not json")
	require.NoError(t, err)
	require.Equal(t, "not json", out)
}

func TestTransform_AppliesProgramToJSONLine(t *testing.T) {
	q, err := Parse(`jq:.msg`)
	require.NoError(t, err)
	out, err := q.Transform(context.Background(), `{"msg":"hello","level":"info"}`)
	require.NoError(t, err)
	require.Equal(t, `"hello"`, out)
}

// requireEquivalent asserts two freshly-parsed Querys describe the same
// filter: regex source text, selectors, kind/name, and jq source all
// match (spec.md §8's round-trip law is about structural equivalence,
// not byte-identical query text).
func requireEquivalent(t *testing.T, want, got *Query) {
	t.Helper()
	require.Equal(t, regexStrings(want.PodIncludes), regexStrings(got.PodIncludes))
	require.Equal(t, regexStrings(want.PodExcludes), regexStrings(got.PodExcludes))
	require.Equal(t, regexStrings(want.ContainerIncludes), regexStrings(got.ContainerIncludes))
	require.Equal(t, regexStrings(want.ContainerExcludes), regexStrings(got.ContainerExcludes))
	require.Equal(t, regexStrings(want.LogIncludes), regexStrings(got.LogIncludes))
	require.Equal(t, regexStrings(want.LogExcludes), regexStrings(got.LogExcludes))
	require.Equal(t, want.LabelSelector, got.LabelSelector)
	require.Equal(t, want.FieldSelector, got.FieldSelector)
	require.Equal(t, want.KindName, got.KindName)
	require.Equal(t, want.JQSource, got.JQSource)
}

func regexStrings(res []*regexp.Regexp) []string {
	out := make([]string, len(res))
	for i, re := range res {
		out[i] = re.String()
	}
	return out
}

func TestFormat_RoundTripsIncludeExcludeWithSpecialChars(t *testing.T) {
	q, err := Parse(`pod:^web- !co:sidecar log:"error: \"disk full\"" !log:debug`)
	require.NoError(t, err)

	reparsed, err := Parse(q.Format())
	require.NoError(t, err)
	requireEquivalent(t, q, reparsed)
}

func TestFormat_RoundTripsKindName(t *testing.T) {
	q, err := Parse(`deploy/web`)
	require.NoError(t, err)

	reparsed, err := Parse(q.Format())
	require.NoError(t, err)
	requireEquivalent(t, q, reparsed)
}

func TestFormat_RoundTripsLabelSelectorFieldsAndJQ(t *testing.T) {
	q, err := Parse(`labels:"app=web,tier=frontend" fields:status.phase=Running jq:.msg`)
	require.NoError(t, err)

	reparsed, err := Parse(q.Format())
	require.NoError(t, err)
	requireEquivalent(t, q, reparsed)
}
