package command

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tphakala/imagelab/internal/errors"
	"github.com/tphakala/imagelab/internal/mlbackend"
)

const helperEnv = "IMAGELAB_HELPER_MODE"

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// helperCommand re-executes the test binary as a fake external program.
func helperCommand(mode string) Command {
	return Command{
		Path: os.Args[0],
		Args: []string{"-test.run=^TestHelperProcess$", "--"},
		Env:  []string{helperEnv + "=" + mode},
	}
}

// TestHelperProcess is not a real test. It plays the external program.
func TestHelperProcess(t *testing.T) {
	mode := os.Getenv(helperEnv)
	if mode == "" {
		return
	}
	defer os.Exit(0)

	args := os.Args
	for i, a := range args {
		if a == "--" {
			args = args[i+1:]
			break
		}
	}
	flag := func(name string) string {
		for i := range len(args) - 1 {
			if args[i] == name {
				return args[i+1]
			}
		}
		return ""
	}

	switch mode {
	case "compile":
		src, dst := args[0], args[1]
		base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
		out := filepath.Join(dst, base+".mlmodelc")
		_ = os.MkdirAll(out, 0o755)
		_ = os.WriteFile(filepath.Join(out, "model.mil"), []byte("compiled"), 0o644)
	case "train":
		_ = os.WriteFile(flag("--output"), []byte("data="+flag("--data")+" augment="+flag("--augment")), 0o644)
	case "classify":
		if _, err := png.Decode(os.Stdin); err != nil {
			fmt.Fprintln(os.Stderr, "bad png:", err)
			os.Exit(2)
		}
		preds := []mlbackend.Prediction{{Label: "cat", Confidence: 0.9}, {Label: flag("--model"), Confidence: 0.1}}
		_ = json.NewEncoder(os.Stdout).Encode(preds)
	case "badjson":
		fmt.Print("not json")
	case "fail":
		fmt.Fprint(os.Stderr, "model is corrupt")
		os.Exit(3)
	case "sleep":
		time.Sleep(10 * time.Second)
	case "noop":
	}
}

func TestCompilerProducesArtifact(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "pets.mlmodel")
	require.NoError(t, os.WriteFile(src, []byte("raw"), 0o644))

	out, err := NewCompiler(helperCommand("compile")).Compile(t.Context(), src, filepath.Join(dir, "compiled"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "compiled", "pets.mlmodelc"), out)
	assert.DirExists(t, out)
}

func TestCompilerMissingOutput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "pets.mlmodel")
	require.NoError(t, os.WriteFile(src, []byte("raw"), 0o644))

	_, err := NewCompiler(helperCommand("noop")).Compile(t.Context(), src, dir)
	require.Error(t, err)
	assert.True(t, errors.IsExternal(err))
}

func TestCompilerMissingSource(t *testing.T) {
	t.Parallel()

	_, err := NewCompiler(helperCommand("compile")).Compile(t.Context(), filepath.Join(t.TempDir(), "nope.mlmodel"), t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestCompilerDefaultsToXcrun(t *testing.T) {
	t.Parallel()

	c := NewCompiler(Command{})
	assert.Equal(t, "xcrun", c.cmd.Path)
	assert.Equal(t, []string{"coremlcompiler", "compile"}, c.cmd.Args)
}

func TestTrainerPassesArguments(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dest := filepath.Join(dir, "out", "pets.mlmodel")
	err := NewTrainer(helperCommand("train"), nil).Train(t.Context(), "/data/pets", dest, mlbackend.DefaultAugmentation())
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "data=/data/pets augment=crop,rotation,exposure,flip", string(data))
}

func TestTrainerFailureCarriesStderr(t *testing.T) {
	t.Parallel()

	err := NewTrainer(helperCommand("fail"), nil).Train(t.Context(), "/data", filepath.Join(t.TempDir(), "x.mlmodel"), mlbackend.DefaultAugmentation())
	require.Error(t, err)
	assert.True(t, errors.IsExternal(err))

	var ee *errors.EnhancedError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, "model is corrupt", ee.GetContext()["stderr"])
	assert.Equal(t, 3, ee.GetContext()["exit_code"])
}

func TestTrainerNotConfigured(t *testing.T) {
	t.Parallel()

	err := NewTrainer(Command{}, nil).Train(t.Context(), "a", "b", mlbackend.Augmentation{})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestTrainerCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
	defer cancel()
	err := NewTrainer(helperCommand("sleep"), nil).Train(ctx, "a", filepath.Join(t.TempDir(), "b"), mlbackend.Augmentation{})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryCancellation))
}

func TestLoaderPredict(t *testing.T) {
	t.Parallel()

	artifact := filepath.Join(t.TempDir(), "pets.mlmodelc")
	require.NoError(t, os.MkdirAll(artifact, 0o755))

	m, err := NewLoader(helperCommand("classify"), nil).Load(t.Context(), artifact)
	require.NoError(t, err)
	defer m.Close()

	preds, err := m.Predict(t.Context(), image.NewRGBA(image.Rect(0, 0, 4, 4)))
	require.NoError(t, err)
	require.Len(t, preds, 2)
	assert.Equal(t, "cat", preds[0].Label)
	assert.InDelta(t, 0.9, preds[0].Confidence, 1e-9)
	assert.Equal(t, artifact, preds[1].Label)
}

func TestLoaderBadOutput(t *testing.T) {
	t.Parallel()

	artifact := filepath.Join(t.TempDir(), "pets.mlmodelc")
	require.NoError(t, os.MkdirAll(artifact, 0o755))

	m, err := NewLoader(helperCommand("badjson"), nil).Load(t.Context(), artifact)
	require.NoError(t, err)
	_, err = m.Predict(t.Context(), image.NewRGBA(image.Rect(0, 0, 1, 1)))
	require.Error(t, err)
	assert.True(t, errors.IsExternal(err))
}

func TestLoaderMissingArtifact(t *testing.T) {
	t.Parallel()

	_, err := NewLoader(helperCommand("classify"), nil).Load(t.Context(), filepath.Join(t.TempDir(), "none.mlmodelc"))
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}
