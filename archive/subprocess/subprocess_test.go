package subprocess

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/justapithecus/strata/archive"
	"github.com/justapithecus/strata/ipc"
	"github.com/justapithecus/strata/log"
	"github.com/justapithecus/strata/types"
)

const helperEnv = "STRATA_WANT_HELPER_RETRIEVER"

// TestHelperRetriever is not a real test: it is the retriever process
// launched by the tests below.
func TestHelperRetriever(t *testing.T) {
	if os.Getenv(helperEnv) != "1" {
		return
	}
	mode := os.Args[len(os.Args)-1]
	os.Exit(runHelper(mode))
}

func runHelper(mode string) int {
	payload, err := ipc.NewFrameDecoder(os.Stdin).ReadFrame()
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		return 3
	}
	decoded, err := ipc.DecodeFrame(payload)
	if err != nil {
		fmt.Fprintln(os.Stderr, "decode:", err)
		return 3
	}
	frame, ok := decoded.(*ipc.RetrieveFrame)
	if !ok {
		fmt.Fprintf(os.Stderr, "unexpected %T\n", decoded)
		return 3
	}

	out := ipc.NewFrameEncoder(os.Stdout)
	switch mode {
	case "ok":
		_ = out.WriteFrame(&ipc.LogFrame{Type: ipc.LogType, Level: "info", Message: "request queued", Fields: map[string]any{"param": frame.Request.Param}})
		if err := os.WriteFile(frame.Request.Target, []byte("GRIB "+frame.BatchID), 0o644); err != nil {
			_ = out.WriteFrame(&ipc.ResultFrame{Type: ipc.ResultType, Status: ipc.ResultError, Message: err.Error()})
			return 1
		}
		_ = out.WriteFrame(&ipc.ProgressFrame{Type: ipc.ProgressType, Bytes: 10, Total: 10})
		_ = out.WriteFrame(&ipc.ResultFrame{Type: ipc.ResultType, Status: ipc.ResultCompleted, Bytes: 10})
		return 0
	case "reported-error":
		_ = out.WriteFrame(&ipc.ResultFrame{Type: ipc.ResultType, Status: ipc.ResultError, Message: "no data for 1978"})
		return 0
	case "exit-error":
		fmt.Fprintln(os.Stderr, "traceback: quota exceeded")
		_ = out.WriteFrame(&ipc.ResultFrame{Type: ipc.ResultType, Status: ipc.ResultError, Message: "quota exceeded"})
		return 1
	case "silent":
		return 0
	case "truncated":
		_, _ = os.Stdout.Write([]byte{0x00, 0x00, 0x01, 0x00, 0x81})
		return 0
	case "version":
		if frame.ContractVersion != types.Version {
			return 4
		}
		_ = out.WriteFrame(&ipc.ResultFrame{Type: ipc.ResultType, Status: ipc.ResultCompleted})
		return 0
	default:
		return 5
	}
}

func newHelperClient(t *testing.T, mode string, logger *log.Logger) *Client {
	t.Helper()
	c, err := New(Config{
		Command: os.Args[0],
		Args:    []string{"-test.run=^TestHelperRetriever$", "--", mode},
		Env:     []string{helperEnv + "=1"},
		BatchID: "batch-7",
		Logger:  logger,
	})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func testRequest(t *testing.T) *archive.Request {
	return &archive.Request{
		Class:   "ei",
		Dataset: "interim",
		Param:   "167.128",
		Step:    "0",
		LevType: "sfc",
		Target:  filepath.Join(t.TempDir(), "temp_ei_2t_167_sfc_0_1990.grb"),
	}
}

func TestRetrieve_Completed(t *testing.T) {
	var logs bytes.Buffer
	logger := log.NewLoggerWithWriter(&types.BatchMeta{BatchID: "batch-7"}, &logs)
	req := testRequest(t)

	if err := newHelperClient(t, "ok", logger).Retrieve(t.Context(), req); err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	data, err := os.ReadFile(req.Target)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "GRIB batch-7" {
		t.Errorf("target content = %q", data)
	}
	if !strings.Contains(logs.String(), "request queued") || !strings.Contains(logs.String(), `"source":"retriever"`) {
		t.Errorf("retriever log not forwarded: %s", logs.String())
	}
}

func TestRetrieve_ContractVersion(t *testing.T) {
	if err := newHelperClient(t, "version", nil).Retrieve(t.Context(), testRequest(t)); err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
}

func TestRetrieve_ReportedError(t *testing.T) {
	err := newHelperClient(t, "reported-error", nil).Retrieve(t.Context(), testRequest(t))
	var retrieverErr *RetrieverError
	if !errors.As(err, &retrieverErr) {
		t.Fatalf("err = %v, want *RetrieverError", err)
	}
	if retrieverErr.Message != "no data for 1978" {
		t.Errorf("Message = %q", retrieverErr.Message)
	}
}

func TestRetrieve_NonZeroExit(t *testing.T) {
	err := newHelperClient(t, "exit-error", nil).Retrieve(t.Context(), testRequest(t))
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("err = %v, want *ExitError", err)
	}
	if exitErr.Code != 1 {
		t.Errorf("Code = %d", exitErr.Code)
	}
	if exitErr.Message != "quota exceeded" {
		t.Errorf("Message = %q", exitErr.Message)
	}
	if !strings.Contains(exitErr.Stderr, "traceback: quota exceeded") {
		t.Errorf("Stderr = %q", exitErr.Stderr)
	}
}

func TestRetrieve_NoResult(t *testing.T) {
	err := newHelperClient(t, "silent", nil).Retrieve(t.Context(), testRequest(t))
	if !errors.Is(err, ErrNoResult) {
		t.Fatalf("err = %v, want ErrNoResult", err)
	}
}

func TestRetrieve_TruncatedOutput(t *testing.T) {
	err := newHelperClient(t, "truncated", nil).Retrieve(t.Context(), testRequest(t))
	if !ipc.IsFatalFrameError(err) {
		t.Fatalf("err = %v, want fatal frame error", err)
	}
}

func TestRetrieve_MissingCommand(t *testing.T) {
	c, err := New(Config{Command: filepath.Join(t.TempDir(), "no-such-retriever")})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Retrieve(t.Context(), testRequest(t)); err == nil {
		t.Fatal("expected start failure")
	}
}

func TestNew_RequiresCommand(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for empty command")
	}
}

func TestDeduplicateEnv(t *testing.T) {
	got := deduplicateEnv([]string{"A=1", "B=2", "A=3"})
	want := []string{"B=2", "A=3"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("deduplicateEnv = %v, want %v", got, want)
	}
}

func TestTailBuffer(t *testing.T) {
	tb := &tailBuffer{max: 4}
	_, _ = tb.Write([]byte("abc"))
	_, _ = tb.Write([]byte("defg"))
	if tb.String() != "defg" {
		t.Errorf("tail = %q", tb.String())
	}
}
