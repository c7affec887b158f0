// Package debugger provides the simple debugger of the RV32 machine: an
// expression evaluator over registers, memory and symbols, watchpoints that
// stop execution when a value changes, and the execution trace recorders.
//
// It separates the debugger logic from the presentation layer. The machine is
// consumed through the narrow interfaces below and the output goes through a
// DebuggerUI, so the same core serves the interactive monitor, batch runs and
// tests.
package debugger

import (
	"io"
)

// RegisterReader reads registers by name, without any leading '$'
type RegisterReader interface {
	ReadRegister(name string) (uint32, error)
}

// MemoryReader reads little endian values of 1, 2 or 4 bytes
type MemoryReader interface {
	ReadMemory(addr uint32, size int) (uint32, error)
}

// SymbolResolver resolves symbols in both directions
type SymbolResolver interface {
	LookupByName(name string) (uint32, error)
	LookupByAddress(addr uint32) (string, error)
	Len() int
}

// RunControl exposes the machine run state to the watchpoint engine
type RunControl interface {
	IsRunning() bool
	Stop()
}

// MessageLevel indicates the severity of a message
type MessageLevel int

const (
	LevelInfo MessageLevel = iota
	LevelSuccess
	LevelWarning
	LevelError
	LevelDebug
)

// String returns the string representation of a MessageLevel
func (l MessageLevel) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelSuccess:
		return "success"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	case LevelDebug:
		return "debug"
	default:
		return "unknown"
	}
}

// CommandHelp contains help information for a command
type CommandHelp struct {
	Name        string
	Description string
	Usage       string
}

// DebuggerUI is the interface that presentation layers must implement.
// This allows different frontends to present debugger output in their own way.
type DebuggerUI interface {
	// ShowMessage displays a message to the user
	ShowMessage(level MessageLevel, format string, args ...any)

	// Output returns the writer tables and traces are printed to
	Output() io.Writer

	// ShowEvalResult displays the result of an expression evaluation
	ShowEvalResult(expr string, value uint32)

	// ShowMemory displays words read from memory starting at addr
	ShowMemory(addr uint32, words []uint32)

	// ShowHelp displays help information
	ShowHelp(commands []CommandHelp)
}
