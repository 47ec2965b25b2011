// Package matrix builds the JSON job matrices consumed by downstream
// workflow jobs. Axes come from an optional YAML config file checked into
// the repository; Rust crate axes are discovered from the Cargo workspace.
package matrix

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is where the matrix axes file is expected, relative to
// the repository root.
const DefaultConfigPath = ".github/ci-matrix.yml"

// Config holds the matrix axes for each toolchain segment
type Config struct {
	Go struct {
		Versions []string `yaml:"versions"`
		OS       []string `yaml:"os"`
	} `yaml:"go"`
	Frontend struct {
		NodeVersions []string `yaml:"node-versions"`
		OS           []string `yaml:"os"`
	} `yaml:"frontend"`
	Rust struct {
		Toolchains []string `yaml:"toolchains"`
		OS         []string `yaml:"os"`
	} `yaml:"rust"`
}

// DefaultConfig returns the axes used when no config file is present
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Go.Versions = []string{"stable"}
	cfg.Go.OS = []string{"ubuntu-latest"}
	cfg.Frontend.NodeVersions = []string{"20"}
	cfg.Frontend.OS = []string{"ubuntu-latest"}
	cfg.Rust.Toolchains = []string{"stable"}
	cfg.Rust.OS = []string{"ubuntu-latest"}
	return cfg
}

// LoadConfig reads the YAML axes file at path. A missing file yields the
// defaults; a malformed file is an error.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read matrix config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse matrix config %s: %w", path, err)
	}
	return cfg, nil
}

// GoMatrix returns the matrix object for Go jobs
func (c *Config) GoMatrix() map[string]interface{} {
	return map[string]interface{}{
		"go-version": c.Go.Versions,
		"os":         c.Go.OS,
	}
}

// FrontendMatrix returns the matrix object for frontend jobs
func (c *Config) FrontendMatrix() map[string]interface{} {
	return map[string]interface{}{
		"node-version": c.Frontend.NodeVersions,
		"os":           c.Frontend.OS,
	}
}

// RustMatrix returns the matrix object for Rust jobs. When the workspace has
// members, each becomes a crate axis entry so clippy and tests fan out.
func (c *Config) RustMatrix(members []string) map[string]interface{} {
	m := map[string]interface{}{
		"toolchain": c.Rust.Toolchains,
		"os":        c.Rust.OS,
	}
	if len(members) > 0 {
		m["crate"] = members
	}
	return m
}

// cargoManifest is the subset of Cargo.toml the helper reads
type cargoManifest struct {
	Package struct {
		Name string `toml:"name"`
	} `toml:"package"`
	Workspace struct {
		Members []string `toml:"members"`
	} `toml:"workspace"`
}

// WorkspaceMembers returns the crate names of a Cargo workspace. Glob
// entries ("crates/*") are expanded against the manifest's directory. A
// manifest without a [workspace] section yields its own package name.
func WorkspaceMembers(manifestPath string) ([]string, error) {
	var manifest cargoManifest
	if _, err := toml.DecodeFile(manifestPath, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", manifestPath, err)
	}

	if len(manifest.Workspace.Members) == 0 {
		if manifest.Package.Name != "" {
			return []string{manifest.Package.Name}, nil
		}
		return nil, nil
	}

	root := filepath.Dir(manifestPath)
	seen := make(map[string]bool)
	var members []string
	for _, entry := range manifest.Workspace.Members {
		matches, err := filepath.Glob(filepath.Join(root, entry))
		if err != nil {
			return nil, fmt.Errorf("bad workspace member pattern %q: %w", entry, err)
		}
		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil || !info.IsDir() {
				continue
			}
			name := memberName(match)
			if name != "" && !seen[name] {
				seen[name] = true
				members = append(members, name)
			}
		}
	}
	sort.Strings(members)
	return members, nil
}

// memberName reads the package name from a member directory's Cargo.toml,
// falling back to the directory name.
func memberName(dir string) string {
	var manifest cargoManifest
	if _, err := toml.DecodeFile(filepath.Join(dir, "Cargo.toml"), &manifest); err == nil {
		if manifest.Package.Name != "" {
			return manifest.Package.Name
		}
	}
	return filepath.Base(dir)
}

// MarshalCompact renders a matrix as the single-line JSON a workflow
// expression can consume via fromJSON().
func MarshalCompact(matrix map[string]interface{}) (string, error) {
	data, err := json.Marshal(matrix)
	if err != nil {
		return "", fmt.Errorf("failed to marshal matrix: %w", err)
	}
	return string(data), nil
}
