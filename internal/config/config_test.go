package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func setBlob(t *testing.T, blob string) {
	t.Helper()
	Reset()
	t.Setenv(EnvVar, blob)
	t.Cleanup(Reset)
}

func TestLookup(t *testing.T) {
	setBlob(t, `{"coverage": {"go": {"min": 80.5}}, "lint": {"required": true}, "name": "ci"}`)

	t.Run("resolves nested dotted paths", func(t *testing.T) {
		value, ok := Lookup("coverage.go.min")
		require.True(t, ok)
		require.Equal(t, 80.5, value)
	})

	t.Run("missing segment returns not found", func(t *testing.T) {
		_, ok := Lookup("coverage.rust.min")
		require.False(t, ok)
	})

	t.Run("traversing through a leaf returns not found", func(t *testing.T) {
		_, ok := Lookup("name.deeper")
		require.False(t, ok)
	})
}

func TestTypedGetters(t *testing.T) {
	setBlob(t, `{
		"coverage": {"go": {"min": 80}},
		"lint": {"required": true},
		"checks": {"max-attempts": 12, "ignore": ["wait-*", "self"]},
		"frontend": {"dir": "web"}
	}`)

	require.Equal(t, 80.0, GetFloat("coverage.go.min", 0))
	require.Equal(t, 12, GetInt("checks.max-attempts", 30))
	require.True(t, GetBool("lint.required", false))
	require.Equal(t, "web", GetString("frontend.dir", "frontend"))
	require.Equal(t, []string{"wait-*", "self"}, GetStringSlice("checks.ignore", nil))

	t.Run("defaults substitute for missing keys", func(t *testing.T) {
		require.Equal(t, 70.0, GetFloat("coverage.rust.min", 70))
		require.Equal(t, "main", GetString("execution.base-ref", "main"))
		require.False(t, GetBool("test.race", false))
		require.Nil(t, GetStringSlice("nope", nil))
	})

	t.Run("defaults substitute for type mismatches", func(t *testing.T) {
		require.Equal(t, "x", GetString("coverage.go.min", "x"))
		require.Equal(t, 5.0, GetFloat("frontend.dir", 5))
	})
}

func TestEmptyAndMalformedBlobs(t *testing.T) {
	t.Run("unset env behaves as empty config", func(t *testing.T) {
		setBlob(t, "")
		require.NoError(t, Problem())
		require.Equal(t, 10, GetInt("checks.interval-seconds", 10))
	})

	t.Run("malformed JSON reports a problem and yields defaults", func(t *testing.T) {
		setBlob(t, `{"broken`)
		require.Error(t, Problem())
		require.Equal(t, "fallback", GetString("anything", "fallback"))
	})
}

func TestMemoization(t *testing.T) {
	setBlob(t, `{"a": 1}`)
	require.Equal(t, 1, GetInt("a", 0))

	// Changing the env after the first load has no effect until Reset
	t.Setenv(EnvVar, `{"a": 2}`)
	require.Equal(t, 1, GetInt("a", 0))

	Reset()
	require.Equal(t, 2, GetInt("a", 0))
}
