package models

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/imagelab/internal/errors"
	"github.com/tphakala/imagelab/internal/layout"
	"github.com/tphakala/imagelab/internal/logger"
	"github.com/tphakala/imagelab/internal/mlbackend/mltest"
	"github.com/tphakala/imagelab/internal/observability/metrics"
	"github.com/tphakala/imagelab/internal/prefs"
)

type fixture struct {
	mgr      *Manager
	layout   *layout.Layout
	sel      *Selection
	compiler *mltest.Compiler
	metrics  *metrics.ModelMetrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mm, err := metrics.NewModelMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	f := &fixture{
		layout:   layout.New(filepath.Join(t.TempDir(), "models")),
		sel:      NewSelection(prefs.NewMemoryStore()),
		compiler: &mltest.Compiler{},
		metrics:  mm,
	}
	f.mgr = NewManager(f.layout, f.sel,
		WithCompiler(f.compiler),
		WithLogger(logger.NewNopLogger()),
		WithMetrics(mm))
	return f
}

// writePending writes a fake uncompiled trainer output for name.
func (f *fixture) writePending(t *testing.T, name string) string {
	t.Helper()
	p := f.layout.PendingArtifactPath(name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte("weights"), 0o644))
	return p
}

func (f *fixture) train(t *testing.T, name string) {
	t.Helper()
	require.NoError(t, f.mgr.SaveTrained(t.Context(), f.writePending(t, name), name))
}

func names(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name)
	}
	return out
}

func TestCreateEmptyThenList(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := t.Context()

	require.NoError(t, f.mgr.CreateEmpty(ctx, "flowers"))

	entries, err := f.mgr.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"flowers"}, names(entries))
	assert.Equal(t, StatusPlaceholder, entries[0].Status)
	assert.False(t, entries[0].Loadable())
	assert.Equal(t, f.layout.CompiledArtifactPath("flowers"), entries[0].ArtifactPath)
	assert.Positive(t, entries[0].Size)

	assert.DirExists(t, f.layout.ImageRoot("flowers"))
	assert.FileExists(t, f.layout.PlaceholderPath("flowers"))
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.ModelsTotal.WithLabelValues("placeholder")), 0)
}

func TestCreateEmptyExistingLeavesDirectoryUntouched(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := t.Context()

	require.NoError(t, f.mgr.CreateEmpty(ctx, "birds"))
	marker := filepath.Join(f.layout.ModelDir("birds"), "keep.txt")
	require.NoError(t, os.WriteFile(marker, []byte("x"), 0o644))
	before, err := os.ReadFile(f.layout.PlaceholderPath("birds"))
	require.NoError(t, err)

	err = f.mgr.CreateEmpty(ctx, "birds")
	require.Error(t, err)
	assert.True(t, errors.IsAlreadyExists(err))

	assert.FileExists(t, marker)
	after, err := os.ReadFile(f.layout.PlaceholderPath("birds"))
	require.NoError(t, err)
	assert.Equal(t, before, after)

	entries, err := f.mgr.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"birds"}, names(entries))
}

func TestCreateEmptyRejectsBadNames(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	for _, name := range []string{"", "..", "a/b", ".hidden"} {
		err := f.mgr.CreateEmpty(t.Context(), name)
		require.Error(t, err, name)
		assert.True(t, errors.IsValidation(err), name)
	}
}

func TestCreateEmptyRejectsNamesWithoutRoomForArtifacts(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := t.Context()
	limit := f.layout.MaxModelNameBytes()

	err := f.mgr.CreateEmpty(ctx, strings.Repeat("m", limit+1))
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.NoDirExists(t, f.layout.ModelDir(strings.Repeat("m", limit+1)))

	name := strings.Repeat("m", limit)
	require.NoError(t, f.mgr.CreateEmpty(ctx, name))
	assert.FileExists(t, f.layout.PlaceholderPath(name))

	err = f.mgr.SaveFromExternal(ctx, f.writePending(t, "src"), strings.Repeat("m", limit+1))
	assert.True(t, errors.IsValidation(err))
}

func TestCreateEmptyFailureRemovesPartialDirectory(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := t.Context()
	f.mgr.writePlaceholder = func(string, string) error { return os.ErrPermission }

	err := f.mgr.CreateEmpty(ctx, "flowers")
	require.Error(t, err)
	assert.False(t, errors.IsAlreadyExists(err))
	assert.NoDirExists(t, f.layout.ModelDir("flowers"))

	f.mgr.writePlaceholder = writePlaceholder
	require.NoError(t, f.mgr.CreateEmpty(ctx, "flowers"))
	assert.FileExists(t, f.layout.PlaceholderPath("flowers"))
}

func TestSaveTrainedCompilesAndSelects(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := t.Context()

	require.NoError(t, f.mgr.CreateEmpty(ctx, "pets"))
	pending := f.writePending(t, "pets")

	require.NoError(t, f.mgr.SaveTrained(ctx, pending, "pets"))
	assert.Equal(t, int32(1), f.compiler.Calls.Load())

	cur, err := f.mgr.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "pets", cur.Name)
	assert.Equal(t, StatusTrained, cur.Status)
	assert.True(t, cur.Selected)
	assert.DirExists(t, cur.ArtifactPath)
	assert.FileExists(t, filepath.Join(cur.ArtifactPath, "model.bin"))

	assert.NoFileExists(t, f.layout.PlaceholderPath("pets"))
	assert.NoFileExists(t, pending)

	// no staging leftovers next to the artifact
	dirents, err := os.ReadDir(f.layout.ModelDir("pets"))
	require.NoError(t, err)
	var got []string
	for _, d := range dirents {
		got = append(got, d.Name())
	}
	assert.ElementsMatch(t, []string{"Images", "pets.mlmodelc"}, got)

	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.Installs.WithLabelValues("trained")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.Compilations.WithLabelValues("success")), 0)
}

func TestSaveTrainedReplacesPreviousArtifact(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := t.Context()

	f.train(t, "pets")
	stale := filepath.Join(f.layout.CompiledArtifactPath("pets"), "stale.bin")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))

	f.train(t, "pets")
	assert.NoFileExists(t, stale)
	assert.FileExists(t, filepath.Join(f.layout.CompiledArtifactPath("pets"), "model.bin"))
	assert.Equal(t, int32(2), f.compiler.Calls.Load())

	cur, err := f.mgr.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "pets", cur.Name)
}

func TestSaveTrainedCompiledSourceSkipsCompiler(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	src := filepath.Join(t.TempDir(), "ready.mlmodelc")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "weights"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "weights", "w.bin"), []byte("w"), 0o644))

	require.NoError(t, f.mgr.SaveTrained(t.Context(), src, "ready"))
	assert.Zero(t, f.compiler.Calls.Load())
	assert.FileExists(t, filepath.Join(f.layout.CompiledArtifactPath("ready"), "weights", "w.bin"))
}

func TestSaveTrainedErrors(t *testing.T) {
	t.Parallel()

	t.Run("missing source", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		err := f.mgr.SaveTrained(t.Context(), filepath.Join(t.TempDir(), "nope.mlmodel"), "m")
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("compiler failure", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.compiler.Err = errors.NewStd("compiler crashed")
		err := f.mgr.SaveTrained(t.Context(), f.writePending(t, "m"), "m")
		require.Error(t, err)
		assert.True(t, errors.IsExternal(err))
		assert.NoDirExists(t, f.layout.CompiledArtifactPath("m"))

		_, ok, err := f.sel.Get(t.Context())
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("no compiler", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		mgr := NewManager(f.layout, f.sel, WithLogger(logger.NewNopLogger()))
		err := mgr.SaveTrained(t.Context(), f.writePending(t, "m"), "m")
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
	})
}

func TestSaveFromExternalKeepsSource(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := t.Context()

	src := filepath.Join(t.TempDir(), "imported.mlmodelc")
	require.NoError(t, os.WriteFile(src, []byte("compiled"), 0o644))

	require.NoError(t, f.mgr.SaveFromExternal(ctx, src, "imported"))
	assert.FileExists(t, src)
	assert.FileExists(t, f.layout.CompiledArtifactPath("imported"))

	cur, err := f.mgr.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "imported", cur.Name)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.Installs.WithLabelValues("external")), 0)
}

func TestSaveFromExternalCompilesUncompiledSource(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	src := filepath.Join(t.TempDir(), "other.mlmodel")
	require.NoError(t, os.WriteFile(src, []byte("weights"), 0o644))

	require.NoError(t, f.mgr.SaveFromExternal(t.Context(), src, "other"))
	assert.Equal(t, int32(1), f.compiler.Calls.Load())
	assert.FileExists(t, src)
	assert.DirExists(t, f.layout.CompiledArtifactPath("other"))
}

func TestDeleteSelectedClearsSelection(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := t.Context()

	f.train(t, "alpha")
	f.train(t, "beta")

	selected, _, err := f.sel.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "beta", selected)

	require.NoError(t, f.mgr.Delete(ctx, "beta"))
	assert.NoDirExists(t, f.layout.ModelDir("beta"))

	_, ok, err := f.sel.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	cur, err := f.mgr.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alpha", cur.Name)

	selected, ok, err = f.sel.Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "alpha", selected)

	require.NoError(t, f.mgr.Delete(ctx, "alpha"))
	_, err = f.mgr.Current(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestDeleteOtherKeepsSelection(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := t.Context()

	require.NoError(t, f.mgr.CreateEmpty(ctx, "draft"))
	f.train(t, "live")

	require.NoError(t, f.mgr.Delete(ctx, "draft"))
	selected, ok, err := f.sel.Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "live", selected)
}

func TestDeleteMissing(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	err := f.mgr.Delete(t.Context(), "ghost")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestCurrentSkipsPlaceholders(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := t.Context()

	require.NoError(t, f.mgr.CreateEmpty(ctx, "a-draft"))
	f.train(t, "c-live")
	f.train(t, "b-live")

	// point the selection at a placeholder
	require.NoError(t, f.mgr.Select(ctx, "a-draft"))

	cur, err := f.mgr.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b-live", cur.Name)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.SelectionFalls), 0)
}

func TestCurrentWithStaleSelection(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := t.Context()

	f.train(t, "kept")
	require.NoError(t, f.sel.Set(ctx, "removed-elsewhere"))

	cur, err := f.mgr.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "kept", cur.Name)
}

func TestCurrentNoModels(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.mgr.Current(t.Context())
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestListSortedAndSkipsFiles(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := t.Context()

	for _, n := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, f.mgr.CreateEmpty(ctx, n))
	}
	require.NoError(t, os.WriteFile(filepath.Join(f.layout.Root(), "stray.txt"), nil, 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(f.layout.Root(), ".cache"), 0o755))

	entries, err := f.mgr.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, names(entries))
}

func TestListMissingRoot(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	entries, err := f.mgr.List(t.Context())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSelectAndGet(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := t.Context()

	err := f.mgr.Select(ctx, "ghost")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))

	require.NoError(t, f.mgr.CreateEmpty(ctx, "one"))
	require.NoError(t, f.mgr.Select(ctx, "one"))

	e, err := f.mgr.Get(ctx, "one")
	require.NoError(t, err)
	assert.True(t, e.Selected)
	assert.Equal(t, StatusPlaceholder, e.Status)

	_, err = f.mgr.Get(ctx, "ghost")
	assert.True(t, errors.IsNotFound(err))
}

func TestCleanupLegacy(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := t.Context()

	require.NoError(t, f.mgr.CreateEmpty(ctx, "a"))
	require.NoError(t, f.mgr.CreateEmpty(ctx, "b"))
	require.NoError(t, os.WriteFile(f.layout.LegacyIndexPath(), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(f.layout.LegacyMetadataPath("a"), []byte("{}"), 0o644))

	require.NoError(t, f.mgr.CleanupLegacy(ctx))
	assert.NoFileExists(t, f.layout.LegacyIndexPath())
	assert.NoFileExists(t, f.layout.LegacyMetadataPath("a"))
	assert.FileExists(t, f.layout.PlaceholderPath("a"))

	// nothing left to remove
	require.NoError(t, f.mgr.CleanupLegacy(ctx))
}

func TestCleanupLegacyAttemptsEveryRemoval(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := t.Context()

	require.NoError(t, f.mgr.CreateEmpty(ctx, "a"))
	// a non-empty directory cannot be removed with os.Remove
	require.NoError(t, os.MkdirAll(filepath.Join(f.layout.LegacyIndexPath(), "x"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(f.layout.LegacyIndexPath(), "x", "y"), nil, 0o644))
	require.NoError(t, os.WriteFile(f.layout.LegacyMetadataPath("a"), []byte("{}"), 0o644))

	err := f.mgr.CleanupLegacy(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))
	assert.NoFileExists(t, f.layout.LegacyMetadataPath("a"))
}

func TestCleanupLegacyMissingRoot(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.NoError(t, f.mgr.CleanupLegacy(t.Context()))
}
