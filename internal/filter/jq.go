package filter

import (
	"context"
	"encoding/json"

	"github.com/itchyny/gojq"
	"github.com/pkg/errors"
)

// runJQ decodes text as JSON, runs it through code, and re-encodes the
// first emitted value. Lines that aren't valid JSON are returned
// unchanged, matching the source's "best-effort transform" behavior
// for mixed structured/unstructured log output.
func runJQ(ctx context.Context, code *gojq.Code, text string) (string, error) {
	var input interface{}
	if err := json.Unmarshal([]byte(text), &input); err != nil {
		return text, nil
	}

	iter := code.RunWithContext(ctx, input)
	v, ok := iter.Next()
	if !ok {
		return "", nil
	}
	if err, isErr := v.(error); isErr {
		return "", errors.Wrap(err, "jq transform")
	}

	out, err := json.Marshal(v)
	if err != nil {
		return "", errors.Wrap(err, "jq re-encode")
	}
	return string(out), nil
}
