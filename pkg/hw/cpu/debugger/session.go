package debugger

import (
	"fmt"
	"log/slog"

	"github.com/Manu343726/rvsdb/pkg/config"
	"github.com/Manu343726/rvsdb/pkg/hw/cpu/debugger/trace"
	"github.com/Manu343726/rvsdb/pkg/hw/cpu/interpreter"
	"github.com/Manu343726/rvsdb/pkg/utils"
)

// TraceKind names one of the trace recorders
type TraceKind int

const (
	TraceMemory TraceKind = iota
	TraceException
	TraceDevice
	TraceFunction
	TraceInstruction
)

// ParseTraceKind parses the one letter recorder names of the trace command
func ParseTraceKind(name string) (TraceKind, bool) {
	switch name {
	case "m", "mtrace":
		return TraceMemory, true
	case "e", "etrace":
		return TraceException, true
	case "d", "dtrace":
		return TraceDevice, true
	case "f", "ftrace":
		return TraceFunction, true
	case "i", "iringbuf":
		return TraceInstruction, true
	}
	return 0, false
}

// String returns the string representation of a TraceKind
func (k TraceKind) String() string {
	switch k {
	case TraceMemory:
		return "mtrace"
	case TraceException:
		return "etrace"
	case TraceDevice:
		return "dtrace"
	case TraceFunction:
		return "ftrace"
	case TraceInstruction:
		return "iringbuf"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Title returns the user facing name of the recorder
func (k TraceKind) Title() string {
	switch k {
	case TraceMemory:
		return "Memory trace"
	case TraceException:
		return "Exception trace"
	case TraceDevice:
		return "Device trace"
	case TraceFunction:
		return "Call stack"
	case TraceInstruction:
		return "Instruction ring buffer"
	default:
		return k.String()
	}
}

// Options configures a debugging session
type Options struct {
	// Watchpoints is the watchpoint pool capacity
	Watchpoints int

	// Enabled trace recorders
	MTrace   bool
	ETrace   bool
	DTrace   bool
	FTrace   bool
	IRingBuf bool

	// RingSize is the instruction ring buffer capacity
	RingSize int
	// CallStackDepth is the maximum number of call stack frames
	CallStackDepth int

	Logger *slog.Logger
}

// DefaultOptions returns options with every recorder enabled
func DefaultOptions() Options {
	return Options{
		Watchpoints:    DefaultWatchpoints,
		MTrace:         true,
		ETrace:         true,
		DTrace:         true,
		FTrace:         true,
		IRingBuf:       true,
		RingSize:       trace.DefaultRingSize,
		CallStackDepth: trace.DefaultCallStackDepth,
	}
}

// OptionsFromConfig builds session options out of the loaded configuration
func OptionsFromConfig(cfg *config.Config, logger *slog.Logger) Options {
	return Options{
		Watchpoints:    cfg.Watchpoints.Capacity,
		MTrace:         cfg.Trace.MTrace,
		ETrace:         cfg.Trace.ETrace,
		DTrace:         cfg.Trace.DTrace,
		FTrace:         cfg.Trace.FTrace,
		IRingBuf:       cfg.Trace.IRingBuf,
		RingSize:       cfg.Trace.RingSize,
		CallStackDepth: cfg.Trace.CallStackDepth,
		Logger:         logger,
	}
}

// Session holds every piece of debugger state of one machine: the
// expression evaluator, the watchpoint pool and the trace recorders.
// It receives the machine events as an interpreter.Tracer.
type Session struct {
	opts        Options
	logger      *slog.Logger
	symbols     SymbolResolver
	eval        *ExpressionEvaluator
	watchpoints *WatchpointPool

	mtrace   *trace.MemoryTrace
	etrace   *trace.ExceptionTrace
	dtrace   *trace.DeviceTrace
	ftrace   *trace.CallStack
	iringbuf *trace.RingBuffer
}

var _ interpreter.Tracer = (*Session)(nil)

// NewSession creates a session over the machine state. symbols may be nil.
func NewSession(registers RegisterReader, memory MemoryReader, symbols SymbolResolver, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = utils.DiscardLogger()
	}

	s := &Session{
		opts:     opts,
		logger:   logger,
		symbols:  symbols,
		eval:     NewExpressionEvaluator(registers, memory, symbols),
		mtrace:   trace.NewMemoryTrace(logger),
		etrace:   trace.NewExceptionTrace(logger),
		dtrace:   trace.NewDeviceTrace(logger),
		ftrace:   trace.NewCallStack(opts.CallStackDepth, symbols, logger),
		iringbuf: trace.NewRingBuffer(opts.RingSize, logger),
	}
	s.watchpoints = NewWatchpointPool(opts.Watchpoints, s.eval)

	return s
}

// Options returns the session options
func (s *Session) Options() Options {
	return s.opts
}

// Symbols returns the symbol table, or nil
func (s *Session) Symbols() SymbolResolver {
	return s.symbols
}

// SetSymbols replaces the symbol table used by expressions and the call stack
func (s *Session) SetSymbols(symbols SymbolResolver) {
	s.symbols = symbols
	s.eval.SetSymbols(symbols)
	s.ftrace.SetSymbols(symbols)
}

// Evaluate evaluates an expression over the current machine state
func (s *Session) Evaluate(expr string) (uint32, error) {
	return s.eval.Eval(expr)
}

// Evaluator returns the expression evaluator
func (s *Session) Evaluator() *ExpressionEvaluator {
	return s.eval
}

// Watchpoints returns the watchpoint pool
func (s *Session) Watchpoints() *WatchpointPool {
	return s.watchpoints
}

// Update re-evaluates the watchpoints, stopping a running machine on change
func (s *Session) Update(ctl RunControl) []WatchpointChange {
	return s.watchpoints.Update(ctl)
}

// MemoryTrace returns the memory access recorder
func (s *Session) MemoryTrace() *trace.MemoryTrace {
	return s.mtrace
}

// ExceptionTrace returns the exception recorder
func (s *Session) ExceptionTrace() *trace.ExceptionTrace {
	return s.etrace
}

// DeviceTrace returns the device access recorder
func (s *Session) DeviceTrace() *trace.DeviceTrace {
	return s.dtrace
}

// CallStack returns the function call recorder
func (s *Session) CallStack() *trace.CallStack {
	return s.ftrace
}

// RingBuffer returns the instruction ring buffer
func (s *Session) RingBuffer() *trace.RingBuffer {
	return s.iringbuf
}

// Recorder returns the recorder of the given kind
func (s *Session) Recorder(kind TraceKind) trace.Recorder {
	switch kind {
	case TraceMemory:
		return s.mtrace
	case TraceException:
		return s.etrace
	case TraceDevice:
		return s.dtrace
	case TraceFunction:
		return s.ftrace
	default:
		return s.iringbuf
	}
}

// Enabled reports whether the recorder of the given kind receives events
func (s *Session) Enabled(kind TraceKind) bool {
	switch kind {
	case TraceMemory:
		return s.opts.MTrace
	case TraceException:
		return s.opts.ETrace
	case TraceDevice:
		return s.opts.DTrace
	case TraceFunction:
		return s.opts.FTrace
	default:
		return s.opts.IRingBuf
	}
}

// ClearTraces empties every recorder
func (s *Session) ClearTraces() {
	s.mtrace.Clear()
	s.etrace.Clear()
	s.dtrace.Clear()
	s.ftrace.Clear()
	s.iringbuf.Clear()
}

// MemoryAccess implements interpreter.Tracer
func (s *Session) MemoryAccess(addr uint32, pc uint32, kind interpreter.AccessKind) {
	if s.opts.MTrace {
		s.mtrace.Add(addr, pc, kind)
	}
}

// DeviceAccess implements interpreter.Tracer
func (s *Session) DeviceAccess(name string, addr uint32, pc uint32, kind interpreter.AccessKind) {
	if s.opts.DTrace {
		s.dtrace.Add(name, addr, pc, kind)
	}
}

// Exception implements interpreter.Tracer
func (s *Session) Exception(pc uint32, code uint32) {
	if s.opts.ETrace {
		s.etrace.Add(pc, code)
	}
}

// Call implements interpreter.Tracer
func (s *Session) Call(pc uint32, target uint32, inst uint32) {
	if s.opts.FTrace {
		s.ftrace.Add(pc, target, inst)
	}
}

// Instruction implements interpreter.Tracer
func (s *Session) Instruction(line string) {
	s.logger.Debug(line)
	if s.opts.IRingBuf {
		s.iringbuf.Add(line)
	}
}
