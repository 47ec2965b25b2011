// Package testhelpers provides the shared fixtures for handler tests: a
// pipeline scene with the platform's output/env/summary files, fake external
// tools on PATH, and a mock forge API server.
package testhelpers

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cihelper.dev/cihelper/internal/config"
)

// Scene represents a test scene: a temporary repository root plus the
// pipeline files the automation platform would provide.
type Scene struct {
	Dir         string
	OutputPath  string
	EnvPath     string
	SummaryPath string
}

// NewScene creates a scene and points the pipeline environment variables at
// its files. Cleanup is automatic.
func NewScene(t *testing.T) *Scene {
	t.Helper()

	dir := t.TempDir()
	scene := &Scene{
		Dir:         dir,
		OutputPath:  filepath.Join(dir, ".pipeline", "output"),
		EnvPath:     filepath.Join(dir, ".pipeline", "env"),
		SummaryPath: filepath.Join(dir, ".pipeline", "summary.md"),
	}

	if err := os.MkdirAll(filepath.Join(dir, ".pipeline"), 0755); err != nil {
		t.Fatalf("failed to create pipeline dir: %v", err)
	}
	for _, path := range []string{scene.OutputPath, scene.EnvPath, scene.SummaryPath} {
		if err := os.WriteFile(path, nil, 0644); err != nil {
			t.Fatalf("failed to create %s: %v", path, err)
		}
	}

	t.Setenv("GITHUB_OUTPUT", scene.OutputPath)
	t.Setenv("GITHUB_ENV", scene.EnvPath)
	t.Setenv("GITHUB_STEP_SUMMARY", scene.SummaryPath)
	t.Setenv("GITHUB_ACTIONS", "")

	return scene
}

// SetConfig installs a CI_CONFIG blob for the test and resets the memoized
// configuration before and after.
func (s *Scene) SetConfig(t *testing.T, blob string) {
	t.Helper()
	config.Reset()
	t.Setenv(config.EnvVar, blob)
	t.Cleanup(config.Reset)
}

// WriteFile writes a file under the scene's repository root, creating parent
// directories as needed.
func (s *Scene) WriteFile(t *testing.T, relPath, content string) {
	t.Helper()
	path := filepath.Join(s.Dir, relPath)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directories for %s: %v", relPath, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", relPath, err)
	}
}

// Outputs parses the step output file into a map, including heredoc-form
// multiline values.
func (s *Scene) Outputs(t *testing.T) map[string]string {
	t.Helper()
	data, err := os.ReadFile(s.OutputPath)
	if err != nil {
		t.Fatalf("failed to read output file: %v", err)
	}
	return parseKeyValues(t, string(data))
}

// Exports parses the env export file into a map
func (s *Scene) Exports(t *testing.T) map[string]string {
	t.Helper()
	data, err := os.ReadFile(s.EnvPath)
	if err != nil {
		t.Fatalf("failed to read env file: %v", err)
	}
	return parseKeyValues(t, string(data))
}

// Summary returns the accumulated step summary markdown
func (s *Scene) Summary(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(s.SummaryPath)
	if err != nil {
		t.Fatalf("failed to read summary file: %v", err)
	}
	return string(data)
}

func parseKeyValues(t *testing.T, content string) map[string]string {
	t.Helper()
	result := make(map[string]string)
	lines := strings.Split(content, "\n")
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if line == "" {
			continue
		}
		if key, delim, ok := strings.Cut(line, "<<"); ok && delim != "" && !strings.Contains(key, "=") {
			var value []string
			for i++; i < len(lines); i++ {
				if lines[i] == delim {
					break
				}
				value = append(value, lines[i])
			}
			result[key] = strings.Join(value, "\n")
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			t.Fatalf("malformed pipeline file line %q", line)
		}
		result[key] = value
	}
	return result
}
