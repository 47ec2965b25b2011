package detect

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T) (string, *git.Worktree) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	return dir, wt
}

func writeFile(t *testing.T, dir, relPath, content string) {
	t.Helper()
	path := filepath.Join(dir, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func commitAll(t *testing.T, wt *git.Worktree, msg string) plumbing.Hash {
	t.Helper()
	require.NoError(t, wt.AddWithOptions(&git.AddOptions{All: true}))
	hash, err := wt.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{Name: "ci", Email: "ci@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return hash
}

func TestChangedFiles(t *testing.T) {
	dir, wt := initRepo(t)

	writeFile(t, dir, "go.mod", "module example.com/app\n")
	writeFile(t, dir, "main.go", "package main\n")
	writeFile(t, dir, "frontend/app.ts", "export {}\n")
	base := commitAll(t, wt, "base")

	writeFile(t, dir, "frontend/app.ts", "export const x = 1\n")
	writeFile(t, dir, "frontend/new.ts", "export {}\n")
	commitAll(t, wt, "frontend change")

	repo, err := OpenRepository(dir)
	require.NoError(t, err)

	changed, err := ChangedFiles(repo, base.String())
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"frontend/app.ts", "frontend/new.ts"}, changed)

	t.Run("deletions report the old path", func(t *testing.T) {
		require.NoError(t, os.Remove(filepath.Join(dir, "main.go")))
		commitAll(t, wt, "remove main")

		changed, err := ChangedFiles(repo, base.String())
		require.NoError(t, err)
		require.Contains(t, changed, "main.go")
	})

	t.Run("unresolvable base ref is an error", func(t *testing.T) {
		_, err := ChangedFiles(repo, "origin/does-not-exist")
		require.Error(t, err)
	})
}

func TestOpenRepository(t *testing.T) {
	t.Run("finds the repo from a subdirectory", func(t *testing.T) {
		dir, wt := initRepo(t)
		writeFile(t, dir, "pkg/a.go", "package pkg\n")
		commitAll(t, wt, "base")

		_, err := OpenRepository(filepath.Join(dir, "pkg"))
		require.NoError(t, err)
	})

	t.Run("non-repo directory is an error", func(t *testing.T) {
		_, err := OpenRepository(t.TempDir())
		require.Error(t, err)
	})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		paths []string
		want  Segments
	}{
		{
			name:  "go sources",
			paths: []string{"internal/app/server.go", "go.sum"},
			want:  Segments{Go: true},
		},
		{
			name:  "frontend directory",
			paths: []string{"frontend/src/app.ts"},
			want:  Segments{Frontend: true},
		},
		{
			name:  "rust crate",
			paths: []string{"crates/core/src/lib.rs", "Cargo.lock"},
			want:  Segments{Rust: true},
		},
		{
			name:  "docker context",
			paths: []string{"Dockerfile.worker", "docker/entrypoint.sh"},
			want:  Segments{Docker: true},
		},
		{
			name:  "docs only",
			paths: []string{"README.md", "docs/setup.md"},
			want:  Segments{Docs: true},
		},
		{
			name:  "mixed go and frontend",
			paths: []string{"main.go", "frontend/app.ts"},
			want:  Segments{Go: true, Frontend: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Classify(tt.paths, "frontend"))
		})
	}

	t.Run("workflow changes force everything", func(t *testing.T) {
		segs := Classify([]string{".github/workflows/ci.yml"}, "frontend")
		require.Equal(t, All(), segs)
	})

	t.Run("unclassified paths force everything", func(t *testing.T) {
		segs := Classify([]string{"scripts/mystery.sh"}, "frontend")
		require.Equal(t, All(), segs)
	})
}

func TestMarkerProbes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "go.mod", "module x\n")
	writeFile(t, dir, "Cargo.toml", "[package]\nname = \"x\"\n")

	require.True(t, HasGoModule(dir))
	require.True(t, HasRust(dir))
	require.False(t, HasFrontend(dir))
	require.False(t, HasDockerfile(dir, ""))

	writeFile(t, dir, "Dockerfile", "FROM scratch\n")
	require.True(t, HasDockerfile(dir, ""))
	require.True(t, HasDockerfile(dir, "Dockerfile"))
	require.False(t, HasDockerfile(dir, "Dockerfile.worker"))
}

func TestPackageManager(t *testing.T) {
	t.Run("pnpm lockfile wins", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "pnpm-lock.yaml", "")
		writeFile(t, dir, "package-lock.json", "{}")

		name, args, ok := PackageManager(dir)
		require.True(t, ok)
		require.Equal(t, "pnpm", name)
		require.Equal(t, []string{"install", "--frozen-lockfile"}, args)
	})

	t.Run("npm lockfile maps to npm ci", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "package-lock.json", "{}")

		name, args, ok := PackageManager(dir)
		require.True(t, ok)
		require.Equal(t, "npm", name)
		require.Equal(t, []string{"ci"}, args)
	})

	t.Run("no lockfile", func(t *testing.T) {
		_, _, ok := PackageManager(t.TempDir())
		require.False(t, ok)
	})
}
