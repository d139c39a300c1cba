package layout

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/imagelab/internal/errors"
)

func TestPaths(t *testing.T) {
	t.Parallel()

	root := filepath.Join("srv", "models")
	l := New(root)

	assert.Equal(t, filepath.Join(root, "pets"), l.ModelDir("pets"))
	assert.Equal(t, filepath.Join(root, "pets", "pets.mlmodelc"), l.CompiledArtifactPath("pets"))
	assert.Equal(t, filepath.Join(root, "pets", "pets.mlmodel"), l.PendingArtifactPath("pets"))
	assert.Equal(t, filepath.Join(root, "pets", "pets.txt"), l.PlaceholderPath("pets"))
	assert.Equal(t, filepath.Join(root, "pets", "Images"), l.ImageRoot("pets"))
	assert.Equal(t, filepath.Join(root, "pets", "Images", "cat"), l.LabelDir("pets", "cat"))
	assert.Equal(t, filepath.Join(root, "pets", "Images", "cat", "a.jpg"), l.ImagePath("pets", "cat", "a.jpg"))
	assert.Equal(t, filepath.Join(root, "models_metadata.json"), l.LegacyIndexPath())
	assert.Equal(t, filepath.Join(root, "pets", "pets.json"), l.LegacyMetadataPath("pets"))
}

func TestCustomExtensions(t *testing.T) {
	t.Parallel()

	l := New("root",
		WithCompiledExt(".bundle"),
		WithPendingExt("raw"),
		WithPlaceholderExt(""),
		WithImageExt("png"))

	assert.Equal(t, filepath.Join("root", "m", "m.bundle"), l.CompiledArtifactPath("m"))
	assert.Equal(t, filepath.Join("root", "m", "m.raw"), l.PendingArtifactPath("m"))
	assert.Equal(t, filepath.Join("root", "m", "m.txt"), l.PlaceholderPath("m"))
	assert.Equal(t, "png", l.ImageExt())
}

func TestArtifactKind(t *testing.T) {
	t.Parallel()

	l := New("root")
	assert.True(t, l.IsPending("/tmp/out/pets.mlmodel"))
	assert.True(t, l.IsPending("/tmp/out/PETS.MLMODEL"))
	assert.False(t, l.IsPending("/tmp/out/pets.mlmodelc"))
	assert.True(t, l.IsCompiled("/tmp/out/pets.mlmodelc/"))
	assert.False(t, l.IsCompiled("/tmp/out/pets"))
}

func TestNormalizationMatchesAcrossForms(t *testing.T) {
	t.Parallel()

	l := New("root")
	composed := "caf\u00e9"
	decomposed := "cafe\u0301"
	assert.Equal(t, l.LabelDir("m", composed), l.LabelDir("m", decomposed))
}

func TestValidateName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"simple", "cats", "cats", false},
		{"spaces trimmed", "  dogs ", "dogs", false},
		{"unicode normalized", "cafe\u0301", "caf\u00e9", false},
		{"empty", "", "", true},
		{"blank", "   ", "", true},
		{"dot", ".", "", true},
		{"dotdot", "..", "", true},
		{"hidden", ".secret", "", true},
		{"slash", "a/b", "", true},
		{"backslash", `a\b`, "", true},
		{"nul", "a\x00b", "", true},
		{"too long", strings.Repeat("x", MaxNameBytes+1), "", true},
		{"max length", strings.Repeat("x", MaxNameBytes), strings.Repeat("x", MaxNameBytes), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ValidateName(KindLabel, tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateModelNameLeavesRoomForExtensions(t *testing.T) {
	t.Parallel()

	l := New("root")
	limit := MaxNameBytes - len(DefaultCompiledExt) - 1
	assert.Equal(t, limit, l.MaxModelNameBytes())

	name, err := l.ValidateModelName(strings.Repeat("m", limit))
	require.NoError(t, err)
	assert.LessOrEqual(t, len(filepath.Base(l.CompiledArtifactPath(name))), MaxNameBytes)
	assert.LessOrEqual(t, len(filepath.Base(l.LegacyMetadataPath(name))), MaxNameBytes)

	_, err = l.ValidateModelName(strings.Repeat("m", limit+1))
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	// a label may still use the full length
	_, err = ValidateName(KindLabel, strings.Repeat("m", limit+1))
	require.NoError(t, err)

	long := New("root", WithPlaceholderExt(strings.Repeat("p", 20)))
	assert.Equal(t, MaxNameBytes-21, long.MaxModelNameBytes())

	_, err = l.ValidateModelName("../up")
	assert.True(t, errors.IsValidation(err))
}
