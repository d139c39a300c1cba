// Package tflite loads TensorFlow Lite image classifiers packaged as a
// bundle directory holding model.tflite and labels.txt.
package tflite

import (
	"bufio"
	"bytes"
	"context"
	"image"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	tfl "github.com/tphakala/go-tflite"

	"github.com/tphakala/imagelab/internal/cpuspec"
	"github.com/tphakala/imagelab/internal/errors"
	"github.com/tphakala/imagelab/internal/imageutil"
	"github.com/tphakala/imagelab/internal/logger"
	"github.com/tphakala/imagelab/internal/mlbackend"
)

// Bundle file names.
const (
	ModelFile  = "model.tflite"
	LabelsFile = "labels.txt"
)

// Loader loads bundles with a fixed interpreter thread count.
type Loader struct {
	threads int
	log     logger.Logger
}

// NewLoader returns a loader. threads <= 0 uses every core.
func NewLoader(threads int, log logger.Logger) *Loader {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Loader{threads: threads, log: log}
}

// Load reads the bundle at artifactPath and allocates an interpreter.
func (l *Loader) Load(ctx context.Context, artifactPath string) (mlbackend.Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	labels, err := readLabels(filepath.Join(artifactPath, LabelsFile))
	if err != nil {
		return nil, err
	}

	modelPath := filepath.Join(artifactPath, ModelFile)
	if _, err := os.Stat(modelPath); err != nil {
		return nil, errors.New(err).
			Component("mlbackend").
			Category(errors.CategoryNotFound).
			ModelContext("", modelPath).
			Build()
	}

	model := tfl.NewModelFromFile(modelPath)
	if model == nil {
		return nil, loadError("cannot load TensorFlow Lite model", modelPath, start)
	}

	options := tfl.NewInterpreterOptions()
	options.SetNumThread(l.threadCount())
	options.SetErrorReporter(func(msg string, _ any) {
		l.log.Error("TFLite error", logger.String("message", msg))
	}, nil)

	interp := tfl.NewInterpreter(model, options)
	options.Delete()
	if interp == nil {
		model.Delete()
		return nil, loadError("cannot create interpreter", modelPath, start)
	}
	if status := interp.AllocateTensors(); status != tfl.OK {
		interp.Delete()
		model.Delete()
		return nil, loadError("tensor allocation failed", modelPath, start)
	}

	in := interp.GetInputTensor(0)
	if in == nil || in.Type() != tfl.Float32 || in.NumDims() != 4 || in.Dim(3) != 3 {
		interp.Delete()
		model.Delete()
		return nil, loadError("input tensor must be float32 [1,H,W,3]", modelPath, start)
	}

	l.log.Info("TFLite model loaded",
		logger.String("bundle", filepath.Base(artifactPath)),
		logger.Int("labels", len(labels)),
		logger.Int("input_height", in.Dim(1)),
		logger.Int("input_width", in.Dim(2)),
		logger.Duration("duration", time.Since(start)))

	return &Model{
		model:  model,
		interp: interp,
		labels: labels,
		height: in.Dim(1),
		width:  in.Dim(2),
	}, nil
}

func (l *Loader) threadCount() int {
	if l.threads > 0 {
		return min(l.threads, runtime.NumCPU())
	}
	return cpuspec.GetCPUSpec().OptimalThreads()
}

// Model runs one interpreter. Predict calls are serialized.
type Model struct {
	mu     sync.Mutex
	model  *tfl.Model
	interp *tfl.Interpreter
	labels []string
	height int
	width  int
}

// Predict resizes img to the input size and returns one prediction per label.
func (m *Model) Predict(ctx context.Context, img *image.RGBA) ([]mlbackend.Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tensor := imageutil.TensorNHWC(imageutil.Resize(img, m.width, m.height))

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.interp == nil {
		return nil, errors.Newf("model is closed").
			Component("mlbackend").
			Category(errors.CategoryModelLoad).
			Build()
	}

	in := m.interp.GetInputTensor(0)
	copy(in.Float32s(), tensor)
	if status := m.interp.Invoke(); status != tfl.OK {
		return nil, errors.Newf("tensor invoke failed: %v", status).
			Component("mlbackend").
			Category(errors.CategoryExternalOperation).
			Build()
	}

	out := m.interp.GetOutputTensor(0)
	scores := make([]float32, out.Dim(out.NumDims()-1))
	copy(scores, out.Float32s())
	return pairLabels(m.labels, scores)
}

// Close releases the interpreter and model.
func (m *Model) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.interp != nil {
		m.interp.Delete()
		m.interp = nil
	}
	if m.model != nil {
		m.model.Delete()
		m.model = nil
	}
	return nil
}

// pairLabels zips labels with scores. Scores outside [0,1] are treated as
// logits and passed through softmax.
func pairLabels(labels []string, scores []float32) ([]mlbackend.Prediction, error) {
	if len(labels) != len(scores) {
		return nil, errors.Newf("label count %d does not match output size %d", len(labels), len(scores)).
			Component("mlbackend").
			Category(errors.CategoryModelLoad).
			Build()
	}

	probs := make([]float64, len(scores))
	logits := false
	for i, s := range scores {
		probs[i] = float64(s)
		if s < 0 || s > 1 {
			logits = true
		}
	}
	if logits {
		softmax(probs)
	}

	preds := make([]mlbackend.Prediction, len(labels))
	for i, label := range labels {
		preds[i] = mlbackend.Prediction{Label: label, Confidence: probs[i]}
	}
	return preds, nil
}

func softmax(v []float64) {
	maxV := math.Inf(-1)
	for _, x := range v {
		maxV = math.Max(maxV, x)
	}
	var sum float64
	for i, x := range v {
		v[i] = math.Exp(x - maxV)
		sum += v[i]
	}
	for i := range v {
		v[i] /= sum
	}
}

// readLabels reads one label per line, skipping blank lines.
func readLabels(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(err).
			Component("mlbackend").
			Category(errors.CategoryNotFound).
			Context("operation", "read-labels").
			Build()
	}
	var labels []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			labels = append(labels, line)
		}
	}
	if len(labels) == 0 {
		return nil, errors.Newf("labels file is empty").
			Component("mlbackend").
			Category(errors.CategoryModelLoad).
			Build()
	}
	return labels, nil
}

func loadError(msg, path string, start time.Time) error {
	return errors.Newf("%s", msg).
		Component("mlbackend").
		Category(errors.CategoryModelLoad).
		ModelContext("", path).
		Timing("model-load", time.Since(start)).
		Build()
}

var _ mlbackend.Loader = (*Loader)(nil)
