// Package buildinfo holds build-time metadata injected at link time.
package buildinfo

import "fmt"

const unknown = "unknown"

// Context contains metadata that is not user configurable.
type Context struct {
	// Version is the git tag the binary was built from.
	Version string

	// BuildDate is the time the binary was built.
	BuildDate string
}

// GetVersion returns the version or "unknown".
func (c *Context) GetVersion() string {
	if c == nil || c.Version == "" {
		return unknown
	}
	return c.Version
}

// GetBuildDate returns the build date or "unknown".
func (c *Context) GetBuildDate() string {
	if c == nil || c.BuildDate == "" {
		return unknown
	}
	return c.BuildDate
}

// Release is the release name reported to telemetry.
func (c *Context) Release() string {
	return "imagelab@" + c.GetVersion()
}

// String formats the context for the version command.
func (c *Context) String() string {
	return fmt.Sprintf("imagelab %s (built %s)", c.GetVersion(), c.GetBuildDate())
}
