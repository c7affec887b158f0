package trace

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Manu343726/rvsdb/pkg/hw/cpu/interpreter"
)

// DefaultCallStackDepth is the default maximum number of live frames
const DefaultCallStackDepth = 256

// Frame is a function call: the call site, the callee entry and its name
type Frame struct {
	PC     uint32 `yaml:"pc"`
	Target uint32 `yaml:"target"`
	Symbol string `yaml:"symbol"`
}

// String describes the call
func (f Frame) String() string {
	return fmt.Sprintf("Call function %s(%s) at pc = %s", f.Symbol, hex08(f.Target), hex08(f.PC))
}

// format returns the backtrace line of the frame at index i
func (f Frame) format(i int) string {
	return fmt.Sprintf("[%d] %s", i, f)
}

// CallStack tracks function calls and returns (ftrace). Jumps are calls
// when their target is a known function entry, and the ret instruction
// pops the innermost frame.
type CallStack struct {
	frames  []Frame
	depth   int
	symbols SymbolLookup
	logger  *slog.Logger
}

// NewCallStack creates an empty call stack holding up to depth frames.
// symbols may be nil, in which case no call is ever recorded.
func NewCallStack(depth int, symbols SymbolLookup, logger *slog.Logger) *CallStack {
	if depth <= 0 {
		depth = DefaultCallStackDepth
	}
	return &CallStack{
		frames:  make([]Frame, 0, depth),
		depth:   depth,
		symbols: symbols,
		logger:  loggerOrDiscard(logger),
	}
}

// SetSymbols replaces the symbol table used to recognize calls
func (c *CallStack) SetSymbols(symbols SymbolLookup) {
	c.symbols = symbols
}

// Depth returns the maximum number of frames
func (c *CallStack) Depth() int {
	return c.depth
}

// Add feeds a control transfer from pc to target executed by inst
func (c *CallStack) Add(pc uint32, target uint32, inst uint32) {
	if inst == interpreter.RetInstruction && len(c.frames) > 0 {
		c.frames = c.frames[:len(c.frames)-1]
		return
	}

	if c.symbols == nil {
		return
	}
	name, err := c.symbols.LookupByAddress(target)
	if err != nil {
		return
	}

	if len(c.frames) >= c.depth {
		c.logger.Warn("call stack overflow", "depth", c.depth, "pc", hex08(pc), "function", name)
		return
	}

	c.frames = append(c.frames, Frame{PC: pc, Target: target, Symbol: name})
}

// Len returns the number of live frames
func (c *CallStack) Len() int {
	return len(c.frames)
}

// Records returns a copy of the live frames, outermost first
func (c *CallStack) Records() []Frame {
	return append([]Frame(nil), c.frames...)
}

// Display writes the live frames, outermost first
func (c *CallStack) Display(w io.Writer) {
	if c.symbols == nil || c.symbols.Len() == 0 {
		colorError.Fprintln(w, "Unable to display call stack due to lack of a symbol table.")
		return
	}
	if len(c.frames) == 0 {
		colorTitle.Fprintln(w, "Empty call stack.")
		return
	}

	rule := strings.Repeat("-", 36)
	colorTitle.Fprintf(w, "Call Stack: %d\n", len(c.frames))
	fmt.Fprintln(w, rule)
	for i, frame := range c.frames {
		fmt.Fprintln(w, frame.format(i))
	}
	fmt.Fprintln(w, rule)
}

// Clear drops every frame
func (c *CallStack) Clear() {
	c.logger.Info("Clearing function call trace buffer ...")
	c.frames = c.frames[:0]
}
