package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sajjad-MoBe/kvdiff/internal/memdict"
	"github.com/sajjad-MoBe/kvdiff/pkg/kvdict"
)

func TestLoadBuiltin(t *testing.T) {
	loaded, err := Load("builtin:memdict", "base")
	require.NoError(t, err)
	assert.Equal(t, "base", loaded.LogicalName)
	assert.Equal(t, "builtin:memdict", loaded.Path)

	store, err := loaded.New("", "ns")
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Set(context.Background(), "k", "v"))
}

func TestLoadUnknownBuiltin(t *testing.T) {
	_, err := Load("builtin:nothere", "base")
	require.Error(t, err)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "builtin:nothere", loadErr.Path)
}

func TestLoadMissingExecutableFails(t *testing.T) {
	_, err := Load("/nonexistent/base-revision", "new")
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
}

func TestLoadRejectsDirectory(t *testing.T) {
	_, err := Load(t.TempDir(), "base")
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Contains(t, loadErr.Error(), "directory")
}

func TestLoadRejectsNonExecutableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "revision")
	require.NoError(t, os.WriteFile(path, []byte("not a binary"), 0o644))

	_, err := Load(path, "base")
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Contains(t, loadErr.Error(), "not executable")
}

func TestLoadAcceptsExecutableWithoutStarting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "revision")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/true\n"), 0o755))

	loaded, err := Load(path, "new")
	require.NoError(t, err)
	assert.Equal(t, path, loaded.Path)
	assert.NotNil(t, loaded.New, "the child process starts on construction, not on load")
}

func TestLoadedRevisionsDoNotShareState(t *testing.T) {
	base, err := Load("builtin:memdict", "base")
	require.NoError(t, err)
	other, err := Load("builtin:memdict", "new")
	require.NoError(t, err)

	ctx := context.Background()
	baseStore, err := base.New("", "ns_base")
	require.NoError(t, err)
	defer baseStore.Close()
	newStore, err := other.New("", "ns_new")
	require.NoError(t, err)
	defer newStore.Close()

	require.NoError(t, baseStore.Set(ctx, "k", "v"))
	_, err = newStore.Get(ctx, "k")
	assert.Equal(t, kvdict.KindNotFound, kvdict.KindOf(err))
}

func TestRegisterOverridesBuiltin(t *testing.T) {
	Register("custom", memdict.NewStore)
	t.Cleanup(func() {
		builtinMu.Lock()
		delete(builtins, "custom")
		builtinMu.Unlock()
	})

	loaded, err := Load("builtin:custom", "base")
	require.NoError(t, err)
	store, err := loaded.New("", "ns")
	require.NoError(t, err)
	defer store.Close()
}
