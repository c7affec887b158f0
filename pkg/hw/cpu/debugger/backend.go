package debugger

import (
	"io"
	"log/slog"
	"time"

	"github.com/Manu343726/rvsdb/pkg/config"
	"github.com/Manu343726/rvsdb/pkg/hw/cpu/interpreter"
	"github.com/Manu343726/rvsdb/pkg/hw/cpu/loader"
	"github.com/Manu343726/rvsdb/pkg/hw/cpu/symtab"
	"github.com/Manu343726/rvsdb/pkg/utils"
)

// MaxInstToPrint is the largest single step batch whose instructions are echoed
const MaxInstToPrint = 10

// BackendOptions configures the machine behind the debugger
type BackendOptions struct {
	Config *config.Config
	Logger *slog.Logger
	// Serial receives the bytes written to the serial port. Defaults to io.Discard.
	Serial io.Writer
	// Now is the rtc clock. Defaults to time.Now.
	Now func() time.Time
}

// WatchpointCallback receives watchpoint reports as they are produced
type WatchpointCallback func(change WatchpointChange)

// InstructionCallback receives the log line of executed instructions when
// the current batch is small enough to be echoed
type InstructionCallback func(step *interpreter.StepResult)

// Backend owns the machine and the debugging session attached to it
type Backend struct {
	cfg     *config.Config
	logger  *slog.Logger
	mem     *interpreter.Memory
	interp  *interpreter.Interpreter
	runner  *interpreter.Runner
	symbols *symtab.Table
	session *Session
	image   *loader.Result

	echo          bool
	onWatchpoint  WatchpointCallback
	onInstruction InstructionCallback
}

// NewBackend creates a machine with physical memory, the serial and rtc
// devices and a session attached to it. No image is loaded.
func NewBackend(opts BackendOptions) (*Backend, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = utils.DiscardLogger()
	}
	serial := opts.Serial
	if serial == nil {
		serial = io.Discard
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	mem := interpreter.NewMemory(cfg.Memory.Base, cfg.Memory.Size)
	for _, dev := range []*interpreter.Device{interpreter.NewSerial(serial), interpreter.NewRTC(now)} {
		if err := mem.AddDevice(dev); err != nil {
			return nil, err
		}
	}

	for _, dev := range mem.Devices() {
		logger.Debug("device mapped",
			"name", dev.Name,
			"base", utils.FormatCHex(dev.Base, 10),
			"size", dev.Size)
	}

	interp := interpreter.NewInterpreter(mem, cfg.Memory.Base)

	b := &Backend{
		cfg:     cfg,
		logger:  logger,
		mem:     mem,
		interp:  interp,
		runner:  interpreter.NewRunner(interp, logger),
		symbols: symtab.New(cfg.Symbols.Capacity),
	}

	b.session = NewSession(interp, interp, nil, OptionsFromConfig(cfg, logger))
	interp.SetTracer(b.session)
	b.runner.OnStep(b.afterStep)

	return b, nil
}

func (b *Backend) afterStep(r *interpreter.Runner, step *interpreter.StepResult) {
	if b.echo && b.onInstruction != nil {
		b.onInstruction(step)
	}

	for _, change := range b.session.Update(r) {
		if b.onWatchpoint != nil {
			b.onWatchpoint(change)
		}
	}
}

// Config returns the configuration the machine was built with
func (b *Backend) Config() *config.Config {
	return b.cfg
}

// Runner returns the underlying runner
func (b *Backend) Runner() *interpreter.Runner {
	return b.runner
}

// Interpreter returns the underlying interpreter
func (b *Backend) Interpreter() *interpreter.Interpreter {
	return b.interp
}

// Memory returns the machine memory
func (b *Backend) Memory() *interpreter.Memory {
	return b.mem
}

// Session returns the debugging session
func (b *Backend) Session() *Session {
	return b.session
}

// Symbols returns the symbol table. It is empty until an image with symbols is loaded.
func (b *Backend) Symbols() *symtab.Table {
	return b.symbols
}

// Image returns the result of the last load, or nil
func (b *Backend) Image() *loader.Result {
	return b.image
}

// OnWatchpoint sets the callback receiving watchpoint reports. nil clears it.
func (b *Backend) OnWatchpoint(callback WatchpointCallback) {
	b.onWatchpoint = callback
}

// OnInstruction sets the callback echoing executed instructions. nil clears it.
func (b *Backend) OnInstruction(callback InstructionCallback) {
	b.onInstruction = callback
}

// LoadProgram loads the image at path (the builtin image when empty) and
// resets the hart to its entry point. Symbols come from the image itself
// when it is an ELF file, or from symbolFile when given.
func (b *Backend) LoadProgram(path string, symbolFile string) (*loader.Result, error) {
	result, err := loader.LoadFile(path, b.mem, b.symbols, &loader.Options{
		SymbolFile: symbolFile,
		Logger:     b.logger,
	})
	if err != nil {
		return nil, err
	}

	b.image = result
	b.interp.Reset(result.Entry)
	b.runner.SetState(interpreter.StateStopped)
	if b.symbols.Len() > 0 {
		b.session.SetSymbols(b.symbols)
	}

	b.logger.Info("image loaded",
		"path", result.Path,
		"format", result.Format,
		"entry", utils.FormatCHex(result.Entry, 8),
		"size", result.Size,
		"symbols", result.Symbols)

	return result, nil
}

// Execute runs up to n instructions, n < 0 meaning until the machine stops.
// Instructions are echoed when n is below MaxInstToPrint.
func (b *Backend) Execute(n int) (*interpreter.ExecutionResult, error) {
	b.echo = n >= 0 && n < MaxInstToPrint
	defer func() { b.echo = false }()

	return b.runner.Execute(n)
}

// Step executes count instructions
func (b *Backend) Step(count int) (*interpreter.ExecutionResult, error) {
	if count <= 0 {
		count = 1
	}
	return b.Execute(count)
}

// Continue runs until a watchpoint triggers, the program ends or an interrupt arrives
func (b *Backend) Continue() (*interpreter.ExecutionResult, error) {
	return b.Execute(-1)
}

// Interrupt signals the machine to stop.
// This is safe to call from signal handlers or other goroutines.
func (b *Backend) Interrupt() {
	b.runner.Interrupt()
}

// Quit ends the session
func (b *Backend) Quit() {
	b.runner.Quit()
}

// Evaluate evaluates an expression over the machine state
func (b *Backend) Evaluate(expr string) (uint32, error) {
	return b.session.Evaluate(expr)
}

// ReadMemory reads count consecutive words starting at addr, without tracing.
// Reading stops at the first failed access and the words read so far are returned.
func (b *Backend) ReadMemory(addr uint32, count int) ([]uint32, error) {
	var words []uint32
	for i := 0; i < count; i++ {
		word, err := b.interp.ReadMemory(addr+uint32(4*i), 4)
		if err != nil {
			return words, err
		}
		words = append(words, word)
	}
	return words, nil
}
