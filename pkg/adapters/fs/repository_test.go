package fs_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/nbform/pkg/adapters/fs"
	"github.com/aretw0/nbform/pkg/core"
	"github.com/aretw0/nbform/pkg/transcode"
)

// setupRepo creates a repository rooted in a fresh temp directory.
func setupRepo(t *testing.T, opts ...func(*fs.Config)) (*fs.Repository, string) {
	t.Helper()

	root := filepath.Join(t.TempDir(), "notebooks")
	cfg := fs.Config{Path: root}
	for _, opt := range opts {
		opt(&cfg)
	}
	return fs.NewRepository(cfg), root
}

func initRepo(t *testing.T, opts ...func(*fs.Config)) (*fs.Repository, string) {
	t.Helper()
	repo, root := setupRepo(t, opts...)
	require.NoError(t, repo.Initialize(context.Background()))
	return repo, root
}

func TestInitialize(t *testing.T) {
	t.Run("Creates Directory if Missing", func(t *testing.T) {
		repo, path := setupRepo(t)

		require.NoError(t, repo.Initialize(context.Background()))
		_, err := os.Stat(path)
		assert.NoError(t, err)
	})

	t.Run("Fails if MustExist and Missing", func(t *testing.T) {
		repo, _ := setupRepo(t, func(c *fs.Config) { c.MustExist = true })
		assert.Error(t, repo.Initialize(context.Background()))
	})

	t.Run("ReadOnly Never Creates", func(t *testing.T) {
		repo, path := setupRepo(t, func(c *fs.Config) { c.ReadOnly = true })
		assert.Error(t, repo.Initialize(context.Background()))
		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("Rejects Invalid Pattern", func(t *testing.T) {
		repo, _ := setupRepo(t, func(c *fs.Config) { c.Pattern = "[" })
		assert.Error(t, repo.Initialize(context.Background()))
	})
}

func TestSave(t *testing.T) {
	ctx := context.Background()

	t.Run("Writes File Form", func(t *testing.T) {
		repo, root := initRepo(t)

		nb := core.NewNotebook()
		nb.Cells[0].Source = core.Text("x = 1\nprint(x)")
		require.NoError(t, repo.Save(ctx, "analysis", nb))

		raw, err := os.ReadFile(filepath.Join(root, "analysis.ipynb"))
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"cells": [{"cell_type": "code", "language": "python", "metadata": {}, "outputs": [], "source": ["x = 1\n", "print(x)"]}],
			"metadata": {}, "nbformat": 4, "nbformat_minor": 0
		}`, string(raw))
		assert.True(t, strings.HasSuffix(string(raw), "}\n"))
		assert.True(t, strings.HasPrefix(string(raw), "{\n \"cells\""), "expected one-space indent and sorted keys")

		// The caller's notebook stays in model form.
		assert.Equal(t, core.KindText, nb.Cells[0].Source.Kind)
	})

	t.Run("Creates Nested Directories", func(t *testing.T) {
		repo, root := initRepo(t)

		require.NoError(t, repo.Save(ctx, "reports/2026/q1", core.NewNotebook()))
		_, err := os.Stat(filepath.Join(root, "reports", "2026", "q1.ipynb"))
		assert.NoError(t, err)
	})

	t.Run("Keeps Registered Extensions", func(t *testing.T) {
		repo, root := initRepo(t)

		require.NoError(t, repo.Save(ctx, "plain.json", core.NewNotebook()))
		_, err := os.Stat(filepath.Join(root, "plain.json"))
		assert.NoError(t, err)
	})

	t.Run("Rejects Invalid IDs", func(t *testing.T) {
		repo, _ := initRepo(t)

		for _, id := range []string{"", "  ", "../escape", "/etc/passwd", "a/../../b", ".nbform/index"} {
			err := repo.Save(ctx, id, core.NewNotebook())
			assert.ErrorIs(t, err, core.ErrInvalidID, "id %q", id)
		}
	})

	t.Run("ReadOnly", func(t *testing.T) {
		_, root := initRepo(t)
		ro := fs.NewRepository(fs.Config{Path: root, ReadOnly: true})
		require.NoError(t, ro.Initialize(ctx))

		assert.ErrorIs(t, ro.Save(ctx, "x", core.NewNotebook()), core.ErrReadOnly)
		assert.ErrorIs(t, ro.Delete(ctx, "x"), core.ErrReadOnly)
	})
}

func TestGet(t *testing.T) {
	ctx := context.Background()
	repo, root := initRepo(t)

	fileForm := `{"cells": [{"cell_type": "markdown", "metadata": {}, "source": ["# Title\n", "body"]}], "metadata": {}, "nbformat": 4, "nbformat_minor": 5}`
	require.NoError(t, os.WriteFile(filepath.Join(root, "readable.ipynb"), []byte(fileForm), 0644))

	t.Run("Returns Model Form", func(t *testing.T) {
		nb, err := repo.Get(ctx, "readable")
		require.NoError(t, err)
		assert.Equal(t, core.Text("# Title\nbody"), nb.Cells[0].Source)
		assert.Equal(t, 5, nb.NBFormatMinor)
	})

	t.Run("Accepts Explicit Extension", func(t *testing.T) {
		nb, err := repo.Get(ctx, "readable.ipynb")
		require.NoError(t, err)
		assert.Equal(t, "# Title\nbody", nb.Cells[0].Source.String())
	})

	t.Run("Missing Notebook", func(t *testing.T) {
		_, err := repo.Get(ctx, "ghost")
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("Invalid JSON", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(root, "broken.ipynb"), []byte(`{"cells": [`), 0644))
		_, err := repo.Get(ctx, "broken")
		assert.ErrorIs(t, err, core.ErrParse)
	})

	t.Run("Strict Mode", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(root, "odd.ipynb"), []byte(`{"cells": [{"source": 7}]}`), 0644))

		_, err := repo.Get(ctx, "odd")
		assert.NoError(t, err)

		strict := fs.NewRepository(fs.Config{Path: root, Strict: true})
		_, err = strict.Get(ctx, "odd")
		assert.ErrorIs(t, err, core.ErrShape)
	})
}

func TestList(t *testing.T) {
	ctx := context.Background()
	repo, root := initRepo(t)

	t.Run("Lists Empty Repo", func(t *testing.T) {
		ids, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("Lists Matching Notebooks", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, "b", core.NewNotebook()))
		require.NoError(t, repo.Save(ctx, "a", core.NewNotebook()))
		require.NoError(t, repo.Save(ctx, "reports/q1", core.NewNotebook()))

		// Ignored: checkpoints, temp files, other formats.
		require.NoError(t, os.MkdirAll(filepath.Join(root, ".ipynb_checkpoints"), 0755))
		require.NoError(t, os.WriteFile(filepath.Join(root, ".ipynb_checkpoints", "a-checkpoint.ipynb"), []byte("{}"), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(root, fs.TempFilePrefix+"42"), []byte("{}"), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(root, "notes.md"), []byte("# hi"), 0644))

		ids, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "reports/q1"}, ids)
	})

	t.Run("Honors Pattern", func(t *testing.T) {
		scoped := fs.NewRepository(fs.Config{Path: root, Pattern: "reports/**/*.ipynb"})
		ids, err := scoped.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"reports/q1"}, ids)
	})

	t.Run("Stops On Cancelled Context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := repo.List(cancelled)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	repo, root := initRepo(t)
	require.NoError(t, repo.Save(ctx, "del-me", core.NewNotebook()))

	require.NoError(t, repo.Delete(ctx, "del-me"))
	_, err := os.Stat(filepath.Join(root, "del-me.ipynb"))
	assert.True(t, os.IsNotExist(err))

	assert.ErrorIs(t, repo.Delete(ctx, "del-me"), core.ErrNotFound)
}

func TestSummaries(t *testing.T) {
	ctx := context.Background()
	repo, root := initRepo(t)

	julia := core.NewNotebook()
	julia.Metadata["kernelspec"] = map[string]any{"name": "julia-1.10", "language": "julia"}
	julia.Cells = append(julia.Cells, core.Cell{CellType: core.CellTypeMarkdown, Source: core.Text("notes")})
	require.NoError(t, repo.Save(ctx, "julia", julia))
	require.NoError(t, repo.Save(ctx, "py", core.NewNotebook()))
	require.NoError(t, os.WriteFile(filepath.Join(root, "broken.ipynb"), []byte("nope"), 0644))

	first, err := repo.Summaries(ctx)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "julia", first[0].ID)
	assert.Equal(t, 2, first[0].Cells)
	assert.Equal(t, "julia", first[0].Language)
	assert.Equal(t, "py", first[1].ID)
	assert.Equal(t, "python", first[1].Language)
	assert.False(t, first[1].LastModified.IsZero())

	_, err = os.Stat(filepath.Join(root, fs.DefaultSystemDir, "index.json"))
	assert.NoError(t, err)

	// Served from the index the second time.
	second, err := repo.Summaries(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	state := repo.State().(fs.RepositoryState)
	assert.Equal(t, 2, state.CacheSize)
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	repo, _ := initRepo(t)

	nb := core.NewNotebook()
	nb.Cells[0].Source = core.Text("x = 1\nprint(x)")
	require.NoError(t, repo.Save(ctx, "analysis", nb))

	t.Run("YAML", func(t *testing.T) {
		out, err := repo.Export(ctx, "analysis", "yaml")
		require.NoError(t, err)
		assert.Contains(t, string(out), "cell_type: code")

		back, err := fs.NewYAMLSerializer(transcode.New()).Parse(strings.NewReader(string(out)))
		require.NoError(t, err)
		stored, err := repo.Get(ctx, "analysis")
		require.NoError(t, err)
		assert.Equal(t, stored, back)
	})

	t.Run("Unsupported", func(t *testing.T) {
		_, err := repo.Export(ctx, "analysis", ".docx")
		assert.ErrorIs(t, err, core.ErrUnsupportedFormat)
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := repo.Export(ctx, "ghost", ".json")
		assert.ErrorIs(t, err, core.ErrNotFound)
	})
}

func TestFormat(t *testing.T) {
	ctx := context.Background()
	repo, root := initRepo(t)

	path := filepath.Join(root, "loose.ipynb")
	modelForm := `{"nbformat": 4, "nbformat_minor": 0, "metadata": {}, "cells": [{"cell_type": "code", "source": "a\nb", "outputs": [], "metadata": {}}]}`
	require.NoError(t, os.WriteFile(path, []byte(modelForm), 0644))

	changed, err := repo.Format(ctx, "loose")
	require.NoError(t, err)
	assert.True(t, changed)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"a\n",`)

	changed, err = repo.Format(ctx, "loose")
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = repo.Format(ctx, "ghost")
	assert.True(t, errors.Is(err, core.ErrNotFound))
}

func TestState(t *testing.T) {
	repo, root := setupRepo(t, func(c *fs.Config) { c.Strict = true })

	state, ok := repo.State().(fs.RepositoryState)
	require.True(t, ok)
	assert.Equal(t, root, state.Path)
	assert.Equal(t, fs.DefaultPattern, state.Pattern)
	assert.True(t, state.Strict)
	assert.Equal(t, []string{".ipynb", ".json", ".yaml", ".yml"}, state.Serializers)
	assert.False(t, state.WatcherActive)
	assert.Equal(t, "repository", repo.ComponentType())
}
