package lmadapter

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/google/shlex"

	"bman/internal/logging"
)

// CommandInvoker runs the LM command as a subprocess: the command string is
// split with shell-word rules, the prompt is written to stdin, and
// stdout/stderr are captured. Grounded on the teacher's
// internal/perception/claude_cli_client.go (exec.CommandContext,
// context-bound timeout, stdout/stderr buffers) and the original
// implementation's invoke_lm_command (shell_words::split + piped stdin).
type CommandInvoker struct{}

// Invoke implements Invoker.
func (CommandInvoker) Invoke(ctx context.Context, command, prompt string, timeout time.Duration) (string, error) {
	args, err := shlex.Split(command)
	if err != nil {
		return "", fmt.Errorf("parse LM command %q: %w", command, err)
	}
	if len(args) == 0 {
		return "", fmt.Errorf("LM command is empty")
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdin = strings.NewReader(prompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()
	elapsed := time.Since(start)

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("LM command timed out after %v: %w", timeout, ctx.Err())
		}
		return "", fmt.Errorf("LM command failed: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}

	logging.LmAdapterDebug("LM invocation complete: elapsed=%v prompt_bytes=%d response_bytes=%d", elapsed, len(prompt), stdout.Len())
	return stdout.String(), nil
}
