// Package progress emits the line protocol consumed by the supervising
// desktop frontend. Each marker is written on its own line with no
// surrounding text; the frontend parses stdout line by line.
package progress

import (
	"fmt"
	"io"
	"sync"
)

// Reporter writes lifecycle markers and batch progress to a single writer.
// Safe for concurrent use by pool workers.
type Reporter struct {
	mu sync.Mutex
	w  io.Writer
}

func NewReporter(w io.Writer) *Reporter {
	return &Reporter{w: w}
}

// Begin marks the start of a job.
func (r *Reporter) Begin() {
	r.writeLine("STATUS: BEGIN")
}

// Processing marks the transition from setup to batch work.
func (r *Reporter) Processing() {
	r.writeLine("STATUS: PROCESSING")
}

// Done marks successful completion.
func (r *Reporter) Done() {
	r.writeLine("STATUS: DONE")
}

// Report emits a PROCESS line after a batch completes.
func (r *Reporter) Report(done, total int) {
	r.writeLine(fmt.Sprintf("PROCESS: %d/%d", done, total))
}

func (r *Reporter) writeLine(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.w, line)
}
