// Package local runs shell commands on the machine the deployment starts from.
package local

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/rs/zerolog"
	"golang.org/x/text/encoding"

	"github.com/williamokano/deploy4dev/pkg/textenc"
)

// DefaultShell runs every local command as `sh -c <cmd>`.
const DefaultShell = "/bin/sh"

var ErrCommandFailed = errors.New("local command failed")

// CommandFailedError reports a command that exited with a non-zero status.
type CommandFailedError struct {
	Command  string
	ExitCode int
}

func (e *CommandFailedError) Error() string {
	return fmt.Sprintf("%s: %q exited with code %d", ErrCommandFailed, e.Command, e.ExitCode)
}

func (e *CommandFailedError) Unwrap() error {
	return ErrCommandFailed
}

// Executor runs commands through a shell.
type Executor struct {
	Shell    string
	Encoding encoding.Encoding // used to decode captured output

	// Stdio handed to commands started by RunChecked.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	logger zerolog.Logger
}

// New creates an executor bound to the process stdio and the locale's
// preferred encoding.
func New(logger zerolog.Logger) *Executor {
	return &Executor{
		Shell:    DefaultShell,
		Encoding: textenc.Preferred(),
		Stdin:    os.Stdin,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
		logger:   logger.With().Str("component", "local").Logger(),
	}
}

func (e *Executor) command(ctx context.Context, cmd string) *exec.Cmd {
	shell := e.Shell
	if shell == "" {
		shell = DefaultShell
	}
	return exec.CommandContext(ctx, shell, "-c", cmd)
}

// RunCapturing runs cmd and logs its output. Stderr is logged at error level
// when non-empty, otherwise stdout at info level. Failures are logged, never
// returned.
func (e *Executor) RunCapturing(ctx context.Context, cmd string) {
	log := e.logger.With().Str("command", cmd).Logger()
	log.Info().Msg("start executing command")

	var stdout, stderr bytes.Buffer
	c := e.command(ctx, cmd)
	c.Stdout = &stdout
	c.Stderr = &stderr

	runErr := c.Run()

	if stderr.Len() > 0 {
		text, err := textenc.Decode(e.Encoding, stderr.Bytes())
		if err != nil {
			log.Error().Err(err).Msg("failed to decode command error output")
		}
		log.Error().Str("stderr", text).Msg("error executing command")
	} else {
		text, err := textenc.Decode(e.Encoding, stdout.Bytes())
		if err != nil {
			log.Error().Err(err).Msg("failed to decode command output")
		}
		log.Info().Str("stdout", text).Msg("command output")
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			log.Error().Int("exit_code", exitErr.ExitCode()).Msg("command exited with non-zero status")
			return
		}
		log.Error().Err(runErr).Msg("unexpected error while executing command")
		return
	}

	log.Info().Msg("command executed successfully")
}

// RunChecked runs cmd with the executor's stdio attached and returns a
// *CommandFailedError if it exits non-zero.
func (e *Executor) RunChecked(ctx context.Context, cmd string) error {
	log := e.logger.With().Str("command", cmd).Logger()
	log.Info().Msg("start executing command")

	c := e.command(ctx, cmd)
	c.Stdin = e.Stdin
	c.Stdout = e.Stdout
	c.Stderr = e.Stderr

	if err := c.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			failed := &CommandFailedError{Command: cmd, ExitCode: exitErr.ExitCode()}
			log.Error().Err(failed).Int("exit_code", failed.ExitCode).Msg("command failed")
			return failed
		}
		log.Error().Err(err).Msg("unexpected error while executing command")
		return fmt.Errorf("failed to run %q: %w", cmd, err)
	}

	log.Info().Msg("command executed successfully")
	return nil
}
