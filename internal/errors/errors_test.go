package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReporter struct {
	reported []*EnhancedError
}

func (r *recordingReporter) ReportError(ee *EnhancedError) {
	r.reported = append(r.reported, ee)
	ee.MarkReported()
}

func (r *recordingReporter) IsEnabled() bool { return true }

func TestFastPathNoTelemetry(t *testing.T) {
	SetTelemetryReporter(nil)

	ee := New(fmt.Errorf("test error")).Build()

	assert.Equal(t, "test error", ee.Error())
	assert.Equal(t, ComponentUnknown, ee.GetComponent())
	assert.Equal(t, CategoryGeneric, ee.Category)
}

func TestCategoryPredicates(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"not found", NotFound("model", "A"), IsNotFound},
		{"already exists", AlreadyExists("model", "A"), IsAlreadyExists},
		{"validation", Newf("too few labels").Category(CategoryValidation).Build(), IsValidation},
		{"conversion", New(fmt.Errorf("bad jpeg")).Category(CategoryConversion).Build(), IsConversion},
		{"external", New(fmt.Errorf("exit 1")).Category(CategoryExternalOperation).Build(), IsExternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
			// wrapping with fmt keeps the category reachable
			assert.True(t, tt.check(fmt.Errorf("outer: %w", tt.err)))
		})
	}

	assert.False(t, IsNotFound(fmt.Errorf("plain")))
	assert.False(t, IsNotFound(nil))
}

func TestBuildInheritsCategoryFromWrappedError(t *testing.T) {
	inner := NotFound("image", "abc")
	outer := New(fmt.Errorf("delete image: %w", inner)).Component("dataset").Build()

	assert.Equal(t, CategoryNotFound, outer.Category)
	assert.True(t, IsNotFound(outer))
	assert.Equal(t, "dataset", outer.GetComponent())
}

func TestContextIsCopied(t *testing.T) {
	ee := New(fmt.Errorf("x")).Context("label", "cat").Build()

	ctx := ee.GetContext()
	ctx["label"] = "dog"

	assert.Equal(t, "cat", ee.GetContext()["label"])
}

func TestReporterReceivesErrors(t *testing.T) {
	reporter := &recordingReporter{}
	SetTelemetryReporter(reporter)
	t.Cleanup(func() { SetTelemetryReporter(nil) })

	ee := Newf("compile failed").Category(CategoryExternalOperation).Build()

	require.Len(t, reporter.reported, 1)
	assert.Same(t, ee, reporter.reported[0])
	assert.True(t, ee.IsReported())
	assert.NotEqual(t, ComponentUnknown, ee.GetComponent())
}

func TestBasicPathScrub(t *testing.T) {
	msg := "open /Users/alice/Library/imagelab/cat/1.jpg: permission denied"
	assert.Equal(t, "open /Users/[USER]/Library/imagelab/cat/1.jpg: permission denied", basicPathScrub(msg))

	msg = "open /home/bob/models/A: no such file"
	assert.Equal(t, "open /home/[USER]/models/A: no such file", basicPathScrub(msg))
}

func TestGenerateErrorTitle(t *testing.T) {
	ee := New(fmt.Errorf("boom")).
		Component("classifier").
		Category(CategoryExternalOperation).
		Context("operation", "load_model").
		Build()

	assert.Equal(t, "Classifier External Operation Error Load Model", errorTitle(ee))
}

func TestCategoryOf(t *testing.T) {
	assert.Equal(t, CategoryGeneric, CategoryOf(fmt.Errorf("plain")))
	assert.Equal(t, CategoryGeneric, CategoryOf(nil))
	assert.Equal(t, CategoryNotFound, CategoryOf(fmt.Errorf("wrap: %w", NotFound("model", "A"))))
}

func TestFileContextHidesPath(t *testing.T) {
	ee := FileError(fmt.Errorf("denied"), "/home/alice/cats/1.JPG", 2<<20)

	ctx := ee.GetContext()
	assert.Equal(t, "jpg", ctx["file_extension"])
	assert.Equal(t, "medium", ctx["file_size_category"])
	for _, v := range ctx {
		assert.NotContains(t, fmt.Sprint(v), "alice")
	}
	assert.True(t, IsCategory(ee, CategoryFileIO))
}

func TestComponentFromFuncName(t *testing.T) {
	assert.Equal(t, "dataset", componentFromFuncName("github.com/tphakala/imagelab/internal/dataset.(*Organizer).Save"))
	assert.Equal(t, "main", componentFromFuncName("main.run"))
	assert.Empty(t, componentFromFuncName(""))
}
