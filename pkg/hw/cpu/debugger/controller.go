package debugger

import (
	"errors"
	"log/slog"

	"github.com/Manu343726/rvsdb/pkg/hw/cpu/interpreter"
)

// Controller coordinates between the debugger backend and UI.
// It implements the command processing logic while delegating
// presentation to the UI interface.
type Controller struct {
	backend     *Backend
	ui          DebuggerUI
	logger      *slog.Logger
	running     bool
	lastCommand string
}

// NewController creates a new debugger controller. Watchpoint reports and
// echoed instructions of the backend are routed to the UI.
func NewController(backend *Backend, ui DebuggerUI) *Controller {
	c := &Controller{
		backend: backend,
		ui:      ui,
		logger:  backend.logger,
		running: true,
	}

	backend.OnWatchpoint(c.showWatchpointChange)
	backend.OnInstruction(func(step *interpreter.StepResult) {
		c.ui.ShowMessage(LevelInfo, "%s", step)
	})

	return c
}

// Backend returns the underlying backend
func (c *Controller) Backend() *Backend {
	return c.backend
}

// UI returns the UI interface
func (c *Controller) UI() DebuggerUI {
	return c.ui
}

// IsRunning returns true if the debugger session is active
func (c *Controller) IsRunning() bool {
	return c.running
}

// SetLastCommand sets the last command (for command repetition)
func (c *Controller) SetLastCommand(cmd string) {
	c.lastCommand = cmd
}

// LastCommand returns the last command
func (c *Controller) LastCommand() string {
	return c.lastCommand
}

func (c *Controller) showWatchpointChange(change WatchpointChange) {
	if change.Err != nil {
		c.ui.ShowMessage(LevelError, "%s", change)
		c.logger.Debug("watch point evaluation failed", "id", change.ID, "expr", change.Expr, "error", change.Err)
		return
	}
	c.ui.ShowMessage(LevelWarning, "%s", change)
}

// --- Command Implementations ---

// CmdContinue runs until the program ends, a watchpoint triggers or an interrupt arrives
func (c *Controller) CmdContinue() {
	c.execute(-1)
}

// CmdStep executes count instructions
func (c *Controller) CmdStep(count int) {
	c.execute(count)
}

func (c *Controller) execute(n int) {
	result, err := c.backend.Execute(n)
	if errors.Is(err, interpreter.ErrProgramEnded) {
		c.ui.ShowMessage(LevelInfo, "Program execution has ended. To restart the program, exit rvsdb and run again.")
		return
	}
	if err != nil {
		c.ui.ShowMessage(LevelError, "Error: %v", err)
		return
	}

	switch result.State {
	case interpreter.StateEnd:
		if result.GoodTrap() {
			c.ui.ShowMessage(LevelSuccess, "rvsdb: HIT GOOD TRAP at pc = 0x%08x", result.HaltPC)
		} else {
			c.ui.ShowMessage(LevelError, "rvsdb: HIT BAD TRAP at pc = 0x%08x", result.HaltPC)
		}
		c.showStatistics()

	case interpreter.StateAbort:
		if c.backend.Session().Options().IRingBuf {
			c.backend.Session().RingBuffer().Display(c.ui.Output())
		}
		c.ui.ShowMessage(LevelError, "rvsdb: ABORT at pc = 0x%08x", result.HaltPC)
		c.ui.ShowMessage(LevelError, "Error: %v", result.Err)
		c.showStatistics()

	case interpreter.StateStopped:
		if n < 0 {
			c.logger.Debug("execution stopped", "pc", c.backend.Interpreter().State().PC, "steps", result.Steps)
		}
	}
}

func (c *Controller) showStatistics() {
	stats := c.backend.Runner().Statistics()
	c.logger.Info("host time spent", "us", stats.HostTime.Microseconds())
	c.logger.Info("total guest instructions", "count", stats.Instructions)
	if freq := stats.Frequency(); freq > 0 {
		c.logger.Info("simulation frequency", "inst_per_sec", freq)
	} else {
		c.logger.Info("finish running in less than 1 us and can not calculate the simulation frequency")
	}
}

// CmdQuit exits the debugger
func (c *Controller) CmdQuit() {
	c.backend.Quit()
	c.running = false
}

// CmdInfoRegisters displays every register
func (c *Controller) CmdInfoRegisters() {
	c.backend.Interpreter().State().Display(c.ui.Output())
}

// CmdInfoWatchpoints displays the active watchpoints
func (c *Controller) CmdInfoWatchpoints() {
	c.backend.Session().Watchpoints().Display(c.ui.Output())
}

// CmdInfoSymbols displays the symbol table
func (c *Controller) CmdInfoSymbols() {
	c.backend.Symbols().Display(c.ui.Output())
}

// CmdMemory prints count words starting at the value of expr
func (c *Controller) CmdMemory(count int, expr string) {
	addr, err := c.backend.Evaluate(expr)
	if err != nil {
		c.invalidExpression(expr, err)
		return
	}

	words, err := c.backend.ReadMemory(addr, count)
	if len(words) > 0 {
		c.ui.ShowMemory(addr, words)
	}
	if err != nil {
		c.ui.ShowMessage(LevelError, "Error: %v", err)
	}
}

// CmdPrint evaluates an expression
func (c *Controller) CmdPrint(expr string) {
	value, err := c.backend.Evaluate(expr)
	if err != nil {
		c.invalidExpression(expr, err)
		return
	}
	c.ui.ShowEvalResult(expr, value)
}

// CmdWatch sets a watchpoint on expr
func (c *Controller) CmdWatch(expr string) {
	wp, err := c.backend.Session().Watchpoints().Set(expr)
	if err != nil {
		if errors.Is(err, ErrPoolExhausted) {
			c.ui.ShowMessage(LevelError, "No free watch points.")
		} else {
			c.invalidExpression(expr, err)
		}
		c.ui.ShowMessage(LevelError, "Fail to set watch point for %s!", expr)
		return
	}

	c.ui.ShowMessage(LevelSuccess, "Watch point %d with expression %s = %s is set.", wp.ID, wp.Expr, formatWatchValue(wp.Value))
}

// CmdDelete deletes the watchpoint numbered id
func (c *Controller) CmdDelete(id int) {
	if err := c.backend.Session().Watchpoints().Delete(id); err != nil {
		c.ui.ShowMessage(LevelInfo, "Watch point numbered %d not found.", id)
		c.ui.ShowMessage(LevelError, "Fail to delete watch point numbered %d!", id)
		return
	}
	c.ui.ShowMessage(LevelInfo, "Watch point numbered %d is deleted.", id)
}

// CmdBacktrace displays the call stack
func (c *Controller) CmdBacktrace() {
	c.backend.Session().CallStack().Display(c.ui.Output())
}

// CmdTrace displays or clears one of the trace recorders
func (c *Controller) CmdTrace(which TraceKind, reset bool) {
	recorder := c.backend.Session().Recorder(which)
	if reset {
		recorder.Clear()
		c.ui.ShowMessage(LevelSuccess, "%s cleared.", which.Title())
		return
	}
	if !c.backend.Session().Enabled(which) {
		c.ui.ShowMessage(LevelWarning, "%s is disabled, enable it in the configuration file.", which.Title())
	}
	recorder.Display(c.ui.Output())
}

// CmdTraceClearAll empties every trace recorder
func (c *Controller) CmdTraceClearAll() {
	c.backend.Session().ClearTraces()
	c.ui.ShowMessage(LevelSuccess, "All traces cleared.")
}

// CmdTraceSave writes the session snapshot to path
func (c *Controller) CmdTraceSave(path string) {
	if err := c.backend.SaveSnapshot(path); err != nil {
		c.ui.ShowMessage(LevelError, "Error: %v", err)
		return
	}
	c.ui.ShowMessage(LevelSuccess, "Session saved to %s", path)
}

// CmdHelp shows help information. With a name, only that command is shown.
func (c *Controller) CmdHelp(name string) {
	if name == "" {
		c.ui.ShowHelp(commandHelp())
		return
	}

	for _, cmd := range commandHelp() {
		if cmd.Name == name {
			c.ui.ShowMessage(LevelSuccess, "%s - %s", cmd.Name, cmd.Description)
			return
		}
	}
	c.ui.ShowMessage(LevelError, "Unknown command '%s'", name)
}

func (c *Controller) invalidExpression(expr string, err error) {
	c.ui.ShowMessage(LevelError, "Invalid Expression %s!", expr)
	c.logger.Debug("expression evaluation failed", "expr", expr, "error", err)
}
