// Package detect decides which pipeline segments are affected by a change.
// It diffs the repository against a base ref using go-git and probes for the
// marker files that gate each toolchain.
package detect

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// OpenRepository opens the git repository containing path
func OpenRepository(path string) (*git.Repository, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}
	return repo, nil
}

// ChangedFiles returns the paths that differ between the merge base of HEAD
// and baseRef, and HEAD. baseRef may be any revision git understands
// ("origin/main", a sha, a tag).
func ChangedFiles(repo *git.Repository, baseRef string) ([]string, error) {
	headRef, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	headCommit, err := repo.CommitObject(headRef.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to read HEAD commit: %w", err)
	}

	baseHash, err := repo.ResolveRevision(plumbing.Revision(baseRef))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base ref %q: %w", baseRef, err)
	}
	baseCommit, err := repo.CommitObject(*baseHash)
	if err != nil {
		return nil, fmt.Errorf("failed to read base commit: %w", err)
	}

	// Diff against the merge base so commits already on the base branch do
	// not count as changes.
	mergeBases, err := headCommit.MergeBase(baseCommit)
	if err != nil {
		return nil, fmt.Errorf("failed to compute merge base: %w", err)
	}
	if len(mergeBases) > 0 {
		baseCommit = mergeBases[0]
	}

	baseTree, err := baseCommit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to read base tree: %w", err)
	}
	headTree, err := headCommit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to read HEAD tree: %w", err)
	}

	changes, err := object.DiffTree(baseTree, headTree)
	if err != nil {
		return nil, fmt.Errorf("failed to diff trees: %w", err)
	}

	seen := make(map[string]bool)
	var paths []string
	for _, change := range changes {
		name := change.To.Name
		if name == "" {
			name = change.From.Name
		}
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		paths = append(paths, name)
	}
	return paths, nil
}

// Segments records which pipeline segments a change set touches
type Segments struct {
	Go       bool
	Frontend bool
	Rust     bool
	Docker   bool
	Docs     bool

	// Workflow means CI tooling itself changed; every segment should run
	Workflow bool
}

// All returns a Segments with every toolchain segment enabled
func All() Segments {
	return Segments{Go: true, Frontend: true, Rust: true, Docker: true, Docs: true, Workflow: true}
}

// Classify maps changed paths onto pipeline segments. frontendDir is the
// directory holding the frontend package (relative to the repo root).
func Classify(paths []string, frontendDir string) Segments {
	var segs Segments
	for _, path := range paths {
		switch {
		case isWorkflowPath(path):
			segs.Workflow = true
		case isFrontendPath(path, frontendDir):
			segs.Frontend = true
		case isRustPath(path):
			segs.Rust = true
		case isDockerPath(path):
			segs.Docker = true
		case isDocsPath(path):
			segs.Docs = true
		case isGoPath(path):
			segs.Go = true
		default:
			// Unclassified paths could affect anything
			segs.Workflow = true
		}
	}
	if segs.Workflow {
		return All()
	}
	return segs
}

func isWorkflowPath(path string) bool {
	return strings.HasPrefix(path, ".github/") ||
		path == "Makefile" ||
		path == "ci-matrix.yml"
}

func isFrontendPath(path, frontendDir string) bool {
	if frontendDir != "" && strings.HasPrefix(path, frontendDir+"/") {
		return true
	}
	base := filepath.Base(path)
	return base == "package.json" || base == "pnpm-lock.yaml" ||
		base == "yarn.lock" || base == "package-lock.json"
}

func isRustPath(path string) bool {
	if strings.HasSuffix(path, ".rs") {
		return true
	}
	base := filepath.Base(path)
	return base == "Cargo.toml" || base == "Cargo.lock" || strings.HasPrefix(path, "crates/")
}

func isDockerPath(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, "Dockerfile") ||
		base == ".dockerignore" ||
		strings.HasPrefix(path, "docker/")
}

func isDocsPath(path string) bool {
	return strings.HasSuffix(path, ".md") || strings.HasPrefix(path, "docs/")
}

func isGoPath(path string) bool {
	return strings.HasSuffix(path, ".go") ||
		path == "go.mod" || path == "go.sum" ||
		strings.HasSuffix(path, "/go.mod") || strings.HasSuffix(path, "/go.sum")
}

// Marker file probes. Each gates whether its segment's handlers act at all.

// HasGoModule reports whether dir contains a go.mod
func HasGoModule(dir string) bool {
	return fileExists(filepath.Join(dir, "go.mod"))
}

// HasFrontend reports whether dir contains a package.json
func HasFrontend(dir string) bool {
	return fileExists(filepath.Join(dir, "package.json"))
}

// HasRust reports whether dir contains a Cargo.toml
func HasRust(dir string) bool {
	return fileExists(filepath.Join(dir, "Cargo.toml"))
}

// HasDockerfile reports whether dir contains the named Dockerfile
func HasDockerfile(dir, name string) bool {
	if name == "" {
		name = "Dockerfile"
	}
	return fileExists(filepath.Join(dir, name))
}

// PackageManager returns the frontend package manager implied by the lockfile
// in dir, along with the arguments for a frozen-lockfile install.
func PackageManager(dir string) (name string, installArgs []string, ok bool) {
	switch {
	case fileExists(filepath.Join(dir, "pnpm-lock.yaml")):
		return "pnpm", []string{"install", "--frozen-lockfile"}, true
	case fileExists(filepath.Join(dir, "yarn.lock")):
		return "yarn", []string{"install", "--immutable"}, true
	case fileExists(filepath.Join(dir, "package-lock.json")):
		return "npm", []string{"ci"}, true
	}
	return "", nil, false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
