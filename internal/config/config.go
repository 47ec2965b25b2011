// Package config provides access to the pipeline configuration blob.
// The configuration is JSON text held in the CI_CONFIG environment variable,
// parsed once per process and consulted by dotted-path lookups with defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
)

// EnvVar is the environment variable holding the JSON configuration blob
const EnvVar = "CI_CONFIG"

var (
	once     sync.Once
	values   map[string]interface{}
	parseErr error
)

func load() map[string]interface{} {
	once.Do(func() {
		values = map[string]interface{}{}
		raw := os.Getenv(EnvVar)
		if raw == "" {
			return
		}
		if err := json.Unmarshal([]byte(raw), &values); err != nil {
			values = map[string]interface{}{}
			parseErr = fmt.Errorf("failed to parse %s: %w", EnvVar, err)
		}
	})
	return values
}

// Problem returns the parse error from the first load, if any.
// A bad blob behaves as an empty configuration; callers may surface this as a warning.
func Problem() error {
	load()
	return parseErr
}

// Reset clears the memoized configuration so the next lookup re-reads the environment.
// Intended for tests.
func Reset() {
	once = sync.Once{}
	values = nil
	parseErr = nil
}

// Lookup resolves a dotted path ("coverage.go.min") against the configuration.
// The second return is false when any path segment is missing.
func Lookup(path string) (interface{}, bool) {
	current := interface{}(load())
	for _, segment := range strings.Split(path, ".") {
		node, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = node[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// GetString returns the string at path, or def when missing or not a string
func GetString(path, def string) string {
	value, ok := Lookup(path)
	if !ok {
		return def
	}
	s, ok := value.(string)
	if !ok {
		return def
	}
	return s
}

// GetFloat returns the number at path, or def when missing or not numeric
func GetFloat(path string, def float64) float64 {
	value, ok := Lookup(path)
	if !ok {
		return def
	}
	f, ok := value.(float64)
	if !ok {
		return def
	}
	return f
}

// GetInt returns the number at path truncated to int, or def when missing or not numeric
func GetInt(path string, def int) int {
	value, ok := Lookup(path)
	if !ok {
		return def
	}
	f, ok := value.(float64)
	if !ok {
		return def
	}
	return int(f)
}

// GetBool returns the bool at path, or def when missing or not a bool
func GetBool(path string, def bool) bool {
	value, ok := Lookup(path)
	if !ok {
		return def
	}
	b, ok := value.(bool)
	if !ok {
		return def
	}
	return b
}

// GetStringSlice returns the string array at path, or def when missing or malformed
func GetStringSlice(path string, def []string) []string {
	value, ok := Lookup(path)
	if !ok {
		return def
	}
	items, ok := value.([]interface{})
	if !ok {
		return def
	}
	result := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return def
		}
		result = append(result, s)
	}
	return result
}
