package app

import (
	"context"
	"io"
	"os"

	"github.com/spf13/viper"

	"github.com/tphakala/imagelab/internal/buildinfo"
	"github.com/tphakala/imagelab/internal/conf"
)

// Runtime carries configuration from the root command to subcommands and
// owns the App built for one invocation.
type Runtime struct {
	Viper      *viper.Viper
	ConfigFile string
	Build      *buildinfo.Context
	Out        io.Writer
	Options    []Option

	Settings *conf.Settings
	App      *App
}

// NewRuntime returns a Runtime with defaults and environment bindings
// applied to a fresh viper instance.
func NewRuntime(build *buildinfo.Context) (*Runtime, error) {
	v, err := conf.NewViper()
	if err != nil {
		return nil, err
	}
	return &Runtime{Viper: v, Build: build, Out: os.Stdout}, nil
}

// Open loads settings and builds the App. Calling it twice is a no-op.
func (r *Runtime) Open(ctx context.Context) error {
	if r.App != nil {
		return nil
	}
	settings, err := conf.LoadFrom(r.Viper, r.ConfigFile)
	if err != nil {
		return err
	}
	opts := append([]Option{WithBuildInfo(r.Build)}, r.Options...)
	a, err := New(ctx, settings, opts...)
	if err != nil {
		return err
	}
	r.Settings, r.App = settings, a
	return nil
}

// Close releases the App if one was built.
func (r *Runtime) Close() error {
	if r.App == nil {
		return nil
	}
	err := r.App.Close()
	r.App = nil
	return err
}
