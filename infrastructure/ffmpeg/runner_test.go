package ffmpeg

import (
	"context"
	"io"
	"os/exec"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestStderrTail(t *testing.T) {
	in := "line1\n\nline2\n  line3  \nline4\n"
	if got := stderrTail(in, 2); got != "line3 | line4" {
		t.Errorf("unexpected tail %q", got)
	}
	if got := stderrTail("", 3); got != "" {
		t.Errorf("expected empty tail, got %q", got)
	}
}

func TestExecCommandRunner_RunFailureIsLogged(t *testing.T) {
	requireShell(t)
	core, logs := observer.New(zapcore.WarnLevel)
	r := NewExecCommandRunner(zap.New(core))

	err := r.Run(context.Background(), "sh", "-c", "echo first >&2; echo last words >&2; exit 3")
	if err == nil || !strings.Contains(err.Error(), "last words") {
		t.Fatalf("expected error with stderr tail, got %v", err)
	}

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["exit_status"] != int64(3) {
		t.Errorf("expected exit_status 3, got %v", fields["exit_status"])
	}
}

func TestExecCommandRunner_Output(t *testing.T) {
	requireShell(t)
	r := NewExecCommandRunner(nil)

	out, err := r.Output(context.Background(), "sh", "-c", "printf ok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != "ok" {
		t.Errorf("expected ok, got %q", out)
	}
}

func TestExecCommandRunner_Pipes(t *testing.T) {
	requireShell(t)
	r := NewExecCommandRunner(nil)

	rc, err := r.StartReader(context.Background(), "sh", "-c", "printf abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "abc" {
		t.Errorf("expected abc, got %q", data)
	}
	if err := rc.Close(); err != nil {
		t.Errorf("unexpected close error: %v", err)
	}

	// closing before EOF stops the process without reporting an error
	rc, err = r.StartReader(context.Background(), "sh", "-c", "while true; do echo y; done")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	buf := make([]byte, 4)
	if _, err := io.ReadFull(rc, buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := rc.Close(); err != nil {
		t.Errorf("unexpected close error: %v", err)
	}

	wc, err := r.StartWriter(context.Background(), "sh", "-c", "cat > /dev/null")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := wc.Write([]byte("frame")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := wc.Close(); err != nil {
		t.Errorf("unexpected close error: %v", err)
	}

	wc, err = r.StartWriter(context.Background(), "sh", "-c", "cat > /dev/null; exit 2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := wc.Close(); err == nil {
		t.Error("expected error from failing writer process")
	}
}
