// Package subprocess implements archive.Client by delegating each request
// to an external retriever process.
//
// The request goes to the child's stdin as a single ipc.RetrieveFrame and
// stdin is closed. The child writes the target file itself and reports on
// stdout with log, progress and exactly one terminal retrieve_result frame.
// Stderr is captured for diagnostics.
package subprocess

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"github.com/justapithecus/strata/archive"
	"github.com/justapithecus/strata/ipc"
	"github.com/justapithecus/strata/log"
)

// maxStderr bounds the captured stderr tail.
const maxStderr = 64 * 1024

// Config configures the retriever process.
type Config struct {
	// Command is the retriever executable.
	Command string
	// Args are passed to Command verbatim.
	Args []string
	// Env entries (KEY=VALUE) are appended to the inherited environment.
	Env []string
	// BatchID is forwarded in every retrieve frame.
	BatchID string
	// Logger receives the retriever's log frames. Optional.
	Logger *log.Logger
}

// Client runs one retriever process per request.
type Client struct {
	cfg Config
}

var _ archive.Client = (*Client)(nil)

// New creates a subprocess client.
func New(cfg Config) (*Client, error) {
	if cfg.Command == "" {
		return nil, errors.New("subprocess: command is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Nop()
	}
	return &Client{cfg: cfg}, nil
}

// ExitError reports a retriever that exited non-zero.
type ExitError struct {
	Code   int
	Stderr string
	// Message is the retriever's own error message, if it sent one.
	Message string
}

func (e *ExitError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "retriever exited with code %d", e.Code)
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Stderr != "" {
		b.WriteString("; stderr: ")
		b.WriteString(e.Stderr)
	}
	return b.String()
}

// RetrieverError is a failure the retriever reported in its result frame.
type RetrieverError struct {
	Message string
}

func (e *RetrieverError) Error() string {
	return "retriever reported error: " + e.Message
}

// ErrNoResult is returned when the retriever exits cleanly without a
// terminal frame.
var ErrNoResult = errors.New("retriever exited without a result frame")

// Retrieve runs the retriever for req and waits for it to exit.
func (c *Client) Retrieve(ctx context.Context, req *archive.Request) error {
	cmd := exec.CommandContext(ctx, c.cfg.Command, c.cfg.Args...)
	if len(c.cfg.Env) > 0 {
		cmd.Env = deduplicateEnv(append(os.Environ(), c.cfg.Env...))
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr := &tailBuffer{max: maxStderr}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start retriever: %w", err)
	}

	if err := ipc.NewFrameEncoder(stdin).WriteFrame(ipc.NewRetrieveFrame(c.cfg.BatchID, req)); err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return fmt.Errorf("failed to write request: %w", err)
	}
	if err := stdin.Close(); err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return fmt.Errorf("failed to close stdin: %w", err)
	}

	result, readErr := c.readFrames(stdout)
	if readErr != nil {
		_ = cmd.Process.Kill()
	}
	// Drain so Wait does not block on a full pipe.
	_, _ = io.Copy(io.Discard, stdout)
	waitErr := cmd.Wait()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if readErr != nil {
		return readErr
	}

	code, err := exitCode(waitErr)
	if err != nil {
		return err
	}
	if code != 0 {
		exitErr := &ExitError{Code: code, Stderr: strings.TrimSpace(stderr.String())}
		if result != nil && !result.Completed() {
			exitErr.Message = result.Message
		}
		return exitErr
	}
	if result == nil {
		return ErrNoResult
	}
	if !result.Completed() {
		return &RetrieverError{Message: result.Message}
	}
	return nil
}

// readFrames consumes stdout until EOF and returns the terminal frame.
// Non-fatal decode problems are logged and skipped.
func (c *Client) readFrames(r io.Reader) (*ipc.ResultFrame, error) {
	dec := ipc.NewFrameDecoder(r)
	var result *ipc.ResultFrame
	for {
		payload, err := dec.ReadFrame()
		if err == io.EOF {
			return result, nil
		}
		if err != nil {
			return nil, fmt.Errorf("retriever output: %w", err)
		}

		frame, err := ipc.DecodeFrame(payload)
		if err != nil {
			c.cfg.Logger.Warn("skipping undecodable retriever frame", map[string]any{"error": err.Error()})
			continue
		}

		switch f := frame.(type) {
		case *ipc.LogFrame:
			c.forward(f)
		case *ipc.ProgressFrame:
			c.cfg.Logger.Debug("retriever progress", map[string]any{"bytes": f.Bytes, "total": f.Total})
		case *ipc.ResultFrame:
			if result != nil {
				c.cfg.Logger.Warn("ignoring duplicate result frame", map[string]any{"status": f.Status})
				continue
			}
			result = f
		default:
			c.cfg.Logger.Warn("unexpected frame from retriever", map[string]any{"type": fmt.Sprintf("%T", f)})
		}
	}
}

func (c *Client) forward(f *ipc.LogFrame) {
	fields := map[string]any{"source": "retriever"}
	for k, v := range f.Fields {
		fields[k] = v
	}
	switch f.Level {
	case "debug":
		c.cfg.Logger.Debug(f.Message, fields)
	case "warn", "warning":
		c.cfg.Logger.Warn(f.Message, fields)
	case "error":
		c.cfg.Logger.Error(f.Message, fields)
	default:
		c.cfg.Logger.Info(f.Message, fields)
	}
}

// exitCode extracts the process exit code from a Wait error.
func exitCode(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return 0, fmt.Errorf("retriever wait failed: %w", err)
	}
	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
		return status.ExitStatus(), nil
	}
	return -1, nil
}

// deduplicateEnv keeps the last occurrence of each env var key.
func deduplicateEnv(env []string) []string {
	seen := make(map[string]int, len(env))
	for i, entry := range env {
		key, _, _ := strings.Cut(entry, "=")
		seen[key] = i
	}
	result := make([]string, 0, len(seen))
	for i, entry := range env {
		key, _, _ := strings.Cut(entry, "=")
		if seen[key] == i {
			result = append(result, entry)
		}
	}
	return result
}

// tailBuffer keeps the last max bytes written.
type tailBuffer struct {
	buf bytes.Buffer
	max int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	t.buf.Write(p)
	if over := t.buf.Len() - t.max; over > 0 {
		t.buf.Next(over)
	}
	return n, nil
}

func (t *tailBuffer) String() string { return t.buf.String() }
