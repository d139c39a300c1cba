package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextDefaults(t *testing.T) {
	t.Parallel()

	var nilCtx *Context
	assert.Equal(t, "unknown", nilCtx.GetVersion())
	assert.Equal(t, "unknown", nilCtx.GetBuildDate())
	assert.Equal(t, "imagelab@unknown", nilCtx.Release())

	empty := &Context{}
	assert.Equal(t, "unknown", empty.GetVersion())
	assert.Equal(t, "imagelab unknown (built unknown)", empty.String())
}

func TestContextValues(t *testing.T) {
	t.Parallel()

	c := &Context{Version: "v1.2.0", BuildDate: "2026-10-01T00:00:00Z"}
	assert.Equal(t, "v1.2.0", c.GetVersion())
	assert.Equal(t, "2026-10-01T00:00:00Z", c.GetBuildDate())
	assert.Equal(t, "imagelab@v1.2.0", c.Release())
	assert.Equal(t, "imagelab v1.2.0 (built 2026-10-01T00:00:00Z)", c.String())
}
