package platform_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/nbform/internal/platform"
	"github.com/aretw0/nbform/pkg/adapters/fs"
	"github.com/aretw0/nbform/pkg/core"
)

func TestInit(t *testing.T) {
	t.Run("Creates Directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "notebooks")

		repo, err := platform.Init(path)
		require.NoError(t, err)

		fsRepo, ok := repo.(*fs.Repository)
		require.True(t, ok, "expected fs repository")
		assert.Equal(t, path, fsRepo.Path)

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("MustExist Fails if Directory Missing", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing")
		_, err := platform.Init(path, platform.WithMustExist(true))
		assert.Error(t, err)
	})

	t.Run("Unknown Adapter", func(t *testing.T) {
		_, err := platform.Init(t.TempDir(), platform.WithAdapter("s3"))
		assert.EqualError(t, err, "unknown adapter: s3")
	})

	t.Run("Injected Repository Is Used As Is", func(t *testing.T) {
		injected := fs.NewRepository(fs.Config{Path: t.TempDir()})
		repo, err := platform.Init("ignored", platform.WithRepository(injected))
		require.NoError(t, err)
		assert.Same(t, injected, repo)
	})

	t.Run("Rejects Foreign Serializer", func(t *testing.T) {
		_, err := platform.Init(t.TempDir(), platform.WithSerializer(".txt", "not a serializer"))
		assert.Error(t, err)
	})

	t.Run("Passes Options To Repository", func(t *testing.T) {
		repo, err := platform.Init(t.TempDir(),
			platform.WithStrict(true),
			platform.WithPattern("reports/*.ipynb"),
			platform.WithSystemDir(".state"),
		)
		require.NoError(t, err)

		state := repo.(*fs.Repository).State().(fs.RepositoryState)
		assert.True(t, state.Strict)
		assert.Equal(t, "reports/*.ipynb", state.Pattern)
		assert.Equal(t, ".state", state.SystemDir)
	})
}

func TestNew(t *testing.T) {
	ctx := context.Background()
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	svc, err := platform.New(t.TempDir(), platform.WithLogger(logger), platform.WithEventBuffer(7))
	require.NoError(t, err)

	_, err = svc.CreateNotebook(ctx, "fresh")
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "notebook created")

	state := svc.State().(core.ServiceState)
	assert.Equal(t, 7, state.EventBufferSize)
	assert.Equal(t, "repository", state.RepositoryType)
	assert.ElementsMatch(t, []string{"watch", "transactions", "summaries"}, state.Capabilities)
	repoState, ok := state.Repository.(fs.RepositoryState)
	require.True(t, ok)
	assert.Equal(t, fs.DefaultPattern, repoState.Pattern)
}

func TestReadOnly(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	writable, err := platform.New(dir)
	require.NoError(t, err)
	require.NoError(t, writable.SaveNotebook(ctx, "a", core.NewNotebook()))

	ro, err := platform.New(dir, platform.WithReadOnly(true), platform.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)

	_, err = ro.GetNotebook(ctx, "a")
	assert.NoError(t, err)
	err = ro.SaveNotebook(ctx, "b", core.NewNotebook())
	assert.True(t, errors.Is(err, core.ErrReadOnly))

	_, err = platform.New(filepath.Join(dir, "missing"), platform.WithReadOnly(true))
	assert.Error(t, err)
}

func TestNewTranscoder(t *testing.T) {
	assert.True(t, platform.NewTranscoder(platform.WithStrict(true)).Strict())
	assert.False(t, platform.NewTranscoder().Strict())
}
