package trace

import (
	"fmt"
	"io"
	"log/slog"
)

// DefaultRingSize is the default number of remembered instructions
const DefaultRingSize = 10

// RingBuffer keeps the log lines of the last executed instructions
// (iringbuf), overwriting the oldest one when full.
type RingBuffer struct {
	lines  []string
	cursor int
	filled int
	logger *slog.Logger
}

// NewRingBuffer creates an empty ring of the given size
func NewRingBuffer(size int, logger *slog.Logger) *RingBuffer {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &RingBuffer{
		lines:  make([]string, size),
		logger: loggerOrDiscard(logger),
	}
}

// Size returns the ring capacity
func (r *RingBuffer) Size() int {
	return len(r.lines)
}

// Add stores a line in the slot at the write cursor
func (r *RingBuffer) Add(line string) {
	r.lines[r.cursor] = line
	r.cursor = (r.cursor + 1) % len(r.lines)
	if r.filled < len(r.lines) {
		r.filled++
	}
}

// Len returns the number of stored lines
func (r *RingBuffer) Len() int {
	return r.filled
}

// Records returns the stored lines, oldest first
func (r *RingBuffer) Records() []string {
	out := make([]string, 0, r.filled)
	start := (r.cursor - r.filled + len(r.lines)) % len(r.lines)
	for i := 0; i < r.filled; i++ {
		out = append(out, r.lines[(start+i)%len(r.lines)])
	}
	return out
}

// Display writes the stored lines, oldest first
func (r *RingBuffer) Display(w io.Writer) {
	colorTitle.Fprintln(w, "Instruction ring buffer:")
	fmt.Fprintln(w, "... ...")
	for _, line := range r.Records() {
		fmt.Fprintln(w, line)
	}
}

// Clear empties the ring and rewinds the write cursor
func (r *RingBuffer) Clear() {
	r.logger.Info("Clearing instruction ring buffer ...")
	clear(r.lines)
	r.cursor = 0
	r.filled = 0
}
