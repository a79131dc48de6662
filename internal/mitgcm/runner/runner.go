// Package runner executes the compiled MITgcm binary and captures its
// output. The model writes a lot of diagnostics to stdout, which is kept
// in full because it is staged as a downloadable job artifact.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// Options configures a model run.
type Options struct {
	// BinaryDir contains the compiled program.
	BinaryDir string
	// Program is the executable name inside BinaryDir.
	Program string
	// WorkDir is the run directory the model is started from; it must
	// hold the "data" namelist and the generated input files.
	WorkDir string
}

// Result contains the outcome of a model run.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// DefaultProgram is the name MITgcm's build system gives the executable.
const DefaultProgram = "mitgcmuv"

// Run executes the model and waits for it to finish. A nonzero exit is
// reported through the error, but the Result is returned regardless so
// the captured output can still be staged.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Program == "" {
		opts.Program = DefaultProgram
	}
	if opts.BinaryDir == "" || opts.WorkDir == "" {
		return nil, fmt.Errorf("runner: binary dir and work dir are required")
	}

	binary := filepath.Join(strings.TrimRight(opts.BinaryDir, "/"), opts.Program)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary)
	cmd.Dir = opts.WorkDir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	// The model may fork (MPI launchers do); run it in its own process
	// group and kill the whole group on cancellation, otherwise orphaned
	// children keep the output pipes open and Wait blocks past the
	// context deadline. WaitDelay bounds the wait if a grandchild
	// survives the group kill.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = 10 * time.Second

	started := time.Now()
	err := cmd.Run()

	res := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(started),
	}

	if err != nil {
		// Cancellation wins over whatever exit code the kill produced.
		if ctxErr := ctx.Err(); ctxErr != nil {
			res.ExitCode = -1
			return res, fmt.Errorf("model run aborted: %w", ctxErr)
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, fmt.Errorf("%s exited with code %d", opts.Program, res.ExitCode)
		}

		res.ExitCode = -1
		return res, fmt.Errorf("start %s: %w", binary, err)
	}

	res.ExitCode = 0
	return res, nil
}
