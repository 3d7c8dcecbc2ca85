package describe

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func obj(name string, labels, selector map[string]string) Object {
	meta := map[string]interface{}{"name": name}
	if labels != nil {
		lm := map[string]interface{}{}
		for k, v := range labels {
			lm[k] = v
		}
		meta["labels"] = lm
	}
	o := Object{"metadata": meta}
	if selector != nil {
		sel := map[string]interface{}{}
		for k, v := range selector {
			sel[k] = v
		}
		o["spec"] = map[string]interface{}{"selector": sel}
	}
	return o
}

func TestFilterByNames(t *testing.T) {
	candidates := []Object{obj("a", nil, nil), obj("b", nil, nil), obj("c", nil, nil)}
	got := FilterByNames(candidates, []string{"a", "c", "missing"})
	require.Equal(t, []string{"a", "c"}, got)
}

func TestFilterByLabelsField_ServiceSelectorAgainstPodLabels(t *testing.T) {
	pods := []Object{
		obj("p1", map[string]string{"app": "web", "ver": "v1"}, nil),
		obj("p2", map[string]string{"app": "db"}, nil),
	}
	selector := map[string]string{"app": "web"}
	got := FilterByLabelsField(pods, selector, labelsOf)
	require.Equal(t, []string{"p1"}, got)
}

func TestFilterBySelectorField_PodLabelsAgainstServiceSelectors(t *testing.T) {
	services := []Object{
		obj("svc1", nil, map[string]string{"app": "web"}),
		obj("svc2", nil, map[string]string{"app": "db"}),
	}
	podLabels := map[string]string{"app": "web", "ver": "v1"}
	got := FilterBySelectorField(services, podLabels, serviceSelector)
	require.Equal(t, []string{"svc1"}, got)
}

func TestContainsAll_EmptySelectorMatchesEverything(t *testing.T) {
	require.True(t, containsAll(nil, map[string]string{"app": "web"}))
	require.True(t, containsAll(map[string]string{}, map[string]string{}))
}

func TestFilterByLabelsField_EmptySelectorMatchesAllPods(t *testing.T) {
	pods := []Object{
		obj("p1", map[string]string{"app": "web"}, nil),
		obj("p2", nil, nil),
	}
	got := FilterByLabelsField(pods, nil, labelsOf)
	require.Equal(t, []string{"p1", "p2"}, got)
}
