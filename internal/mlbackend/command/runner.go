// Package command implements the ML collaborators by running external
// programs such as xcrun coremlcompiler or a CreateML training script.
package command

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/tphakala/imagelab/internal/errors"
	"github.com/tphakala/imagelab/internal/logger"
)

// maxStderr is how much of a failing program's stderr is kept in errors.
const maxStderr = 4096

// Command is an external program invocation template.
type Command struct {
	Path string   // executable name or path
	Args []string // arguments placed before the generated ones
	Env  []string // extra KEY=VALUE entries appended to the environment
}

// configured reports whether a program was set.
func (c Command) configured() bool {
	return strings.TrimSpace(c.Path) != ""
}

// run executes c with extra args appended, feeding stdin when non-nil,
// and returns stdout.
func run(ctx context.Context, log logger.Logger, c Command, extra []string, stdin []byte) ([]byte, error) {
	args := append(append([]string{}, c.Args...), extra...)
	cmd := exec.CommandContext(ctx, c.Path, args...)
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	log.Debug("External command finished",
		logger.String("command", c.Path),
		logger.Strings("args", args),
		logger.Duration("duration", elapsed),
		logger.Bool("success", err == nil))

	if err == nil {
		return stdout.Bytes(), nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, errors.New(ctxErr).
			Component("mlbackend").
			Category(errors.CategoryCancellation).
			Context("command", c.Path).
			Timing("external-command", elapsed).
			Build()
	}

	b := errors.New(err).
		Component("mlbackend").
		Category(errors.CategoryExternalOperation).
		Context("command", c.Path).
		Timing("external-command", elapsed)
	if msg := tail(stderr.String(), maxStderr); msg != "" {
		b = b.Context("stderr", msg)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		b = b.Context("exit_code", exitErr.ExitCode())
	}
	return nil, b.Build()
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) > n {
		return s[len(s)-n:]
	}
	return s
}

func notConfigured(what string) error {
	return errors.Newf("no %s command configured", what).
		Component("mlbackend").
		Category(errors.CategoryConfiguration).
		Build()
}
