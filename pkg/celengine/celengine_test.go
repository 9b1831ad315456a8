package celengine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	attrs := map[string]any{
		"author": "bobby",
		"number": int64(7),
		"labels": []string{"bug", "bounty"},
	}

	env, err := GetOrBuildEnv(attrs)
	require.NoError(t, err)

	cases := []struct {
		expr string
		want bool
	}{
		{"true", true},
		{`"bounty" in labels`, true},
		{`"docs" in labels`, false},
		{`author == "bobby" && number > 5`, true},
		{`size(labels) == 3`, false},
	}
	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			got, err := Evaluate(env, tc.expr, attrs)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestEvaluateNonBool(t *testing.T) {
	attrs := map[string]any{"number": int64(3)}
	env, err := GetOrBuildEnv(attrs)
	require.NoError(t, err)

	_, err = Evaluate(env, "number + 1", attrs)
	require.Error(t, err)

	out, err := EvaluateDynamic(env, "number + 1", attrs)
	require.NoError(t, err)
	require.Equal(t, int64(4), out)
}

func TestGetOrBuildEnvKeyedByShape(t *testing.T) {
	a, err := GetOrBuildEnv(map[string]any{"x": "s"})
	require.NoError(t, err)
	b, err := GetOrBuildEnv(map[string]any{"x": "t"})
	require.NoError(t, err)
	require.Same(t, a, b)

	c, err := GetOrBuildEnv(map[string]any{"x": true})
	require.NoError(t, err)
	require.NotSame(t, a, c)

	require.Error(t, ValidateExpression(c, `x.startsWith("s")`))
	require.NoError(t, ValidateExpression(a, `x.startsWith("s")`))
}

func TestStructToMap(t *testing.T) {
	type issue struct {
		Number int    `json:"number"`
		Author string `json:"author"`
	}
	m := StructToMap(issue{Number: 1, Author: "bobby"})
	require.Equal(t, "bobby", m["author"])
	require.Equal(t, float64(1), m["number"])
	require.Empty(t, StructToMap(nil))
}
