package command

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tphakala/imagelab/internal/errors"
	"github.com/tphakala/imagelab/internal/layout"
	"github.com/tphakala/imagelab/internal/logger"
	"github.com/tphakala/imagelab/internal/mlbackend"
)

// DefaultCompilerCommand is the platform compiler driver.
const DefaultCompilerCommand = "xcrun"

// Compiler runs `xcrun coremlcompiler compile <source> <dir>`, which writes
// <dir>/<source base>.mlmodelc.
type Compiler struct {
	cmd         Command
	compiledExt string
	log         logger.Logger
}

// CompilerOption configures a Compiler.
type CompilerOption func(*Compiler)

// WithCompiledExt sets the extension the compiler produces.
func WithCompiledExt(ext string) CompilerOption {
	return func(c *Compiler) {
		if ext = strings.TrimPrefix(ext, "."); ext != "" {
			c.compiledExt = ext
		}
	}
}

// WithCompilerLogger sets the logger.
func WithCompilerLogger(l logger.Logger) CompilerOption {
	return func(c *Compiler) {
		if l != nil {
			c.log = l
		}
	}
}

// NewCompiler returns a compiler. When cmd.Path is xcrun and no arguments
// are given, the coremlcompiler subcommand is added.
func NewCompiler(cmd Command, opts ...CompilerOption) *Compiler {
	if cmd.Path == "" {
		cmd.Path = DefaultCompilerCommand
	}
	if filepath.Base(cmd.Path) == DefaultCompilerCommand && len(cmd.Args) == 0 {
		cmd.Args = []string{"coremlcompiler", "compile"}
	}
	c := &Compiler{cmd: cmd, compiledExt: layout.DefaultCompiledExt, log: logger.NewNopLogger()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile compiles source into destinationDir and returns the artifact path.
func (c *Compiler) Compile(ctx context.Context, source, destinationDir string) (string, error) {
	if _, err := os.Stat(source); err != nil {
		return "", errors.New(err).
			Component("mlbackend").
			Category(errors.CategoryNotFound).
			ModelContext("", source).
			Context("operation", "compile").
			Build()
	}
	if err := os.MkdirAll(destinationDir, 0o755); err != nil {
		return "", errors.FileError(err, destinationDir, 0)
	}

	start := time.Now()
	if _, err := run(ctx, c.log, c.cmd, []string{source, destinationDir}, nil); err != nil {
		return "", err
	}

	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	out := filepath.Join(destinationDir, base+"."+c.compiledExt)
	if _, err := os.Stat(out); err != nil {
		return "", errors.Newf("compiler finished but produced no %s artifact", c.compiledExt).
			Component("mlbackend").
			Category(errors.CategoryExternalOperation).
			Context("command", c.cmd.Path).
			Build()
	}

	c.log.Info("Artifact compiled",
		logger.String("artifact", filepath.Base(out)),
		logger.Duration("duration", time.Since(start)))
	return out, nil
}

var _ mlbackend.Compiler = (*Compiler)(nil)
