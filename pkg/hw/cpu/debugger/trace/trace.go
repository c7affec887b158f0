// Package trace implements the execution trace recorders of the debugger:
// memory accesses, exceptions, device accesses, the function call stack and
// the instruction ring buffer.
//
// Recorders are plain single threaded containers. Each one can append a
// record, list its records, print them for the user and be cleared.
package trace

import (
	"io"
	"log/slog"

	"github.com/fatih/color"

	"github.com/Manu343726/rvsdb/pkg/hw/cpu/interpreter"
	"github.com/Manu343726/rvsdb/pkg/utils"
)

// AccessKind tells reads from writes
type AccessKind = interpreter.AccessKind

const (
	Read  = interpreter.AccessRead
	Write = interpreter.AccessWrite
)

var (
	colorTitle = color.New(color.FgYellow)
	colorError = color.New(color.FgRed)
)

// SymbolLookup resolves code addresses into function names
type SymbolLookup interface {
	LookupByAddress(addr uint32) (string, error)
	Len() int
}

// Recorder is the common surface of every trace recorder
type Recorder interface {
	Len() int
	Display(w io.Writer)
	Clear()
}

var (
	_ Recorder = (*MemoryTrace)(nil)
	_ Recorder = (*ExceptionTrace)(nil)
	_ Recorder = (*DeviceTrace)(nil)
	_ Recorder = (*CallStack)(nil)
	_ Recorder = (*RingBuffer)(nil)
)

// recordLog is an append-only list of records
type recordLog[T any] struct {
	records []T
}

func (l *recordLog[T]) add(record T) {
	l.records = append(l.records, record)
}

func (l *recordLog[T]) clear() {
	l.records = nil
}

// Len returns the number of records
func (l *recordLog[T]) Len() int {
	return len(l.records)
}

// Records returns a copy of the records in insertion order
func (l *recordLog[T]) Records() []T {
	return append([]T(nil), l.records...)
}

func loggerOrDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return utils.DiscardLogger()
	}
	return logger
}

func hex08(value uint32) string {
	return utils.FormatCHex(value, 8)
}
