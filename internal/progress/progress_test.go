package progress

import (
	"bytes"
	"strings"
	"sync"
	"testing"
)

func TestReporterLineFormat(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf)

	r.Begin()
	r.Processing()
	r.Report(4, 10)
	r.Report(10, 10)
	r.Done()

	expected := []string{
		"STATUS: BEGIN",
		"STATUS: PROCESSING",
		"PROCESS: 4/10",
		"PROCESS: 10/10",
		"STATUS: DONE",
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != len(expected) {
		t.Fatalf("expected %d lines, got %d: %q", len(expected), len(lines), lines)
	}
	for i, want := range expected {
		if lines[i] != want {
			t.Errorf("line %d = %q, want %q", i, lines[i], want)
		}
	}
}

func TestReporterConcurrentWritesStayLineAtomic(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			r.Report(n, 50)
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 50 {
		t.Fatalf("expected 50 lines, got %d", len(lines))
	}
	for _, line := range lines {
		if !strings.HasPrefix(line, "PROCESS: ") || !strings.HasSuffix(line, "/50") {
			t.Errorf("malformed progress line: %q", line)
		}
	}
}
