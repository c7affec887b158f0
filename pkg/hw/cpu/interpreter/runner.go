package interpreter

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Manu343726/rvsdb/pkg/utils"
)

var ErrProgramEnded = errors.New("program execution has ended")

// RunState is the execution state of the machine
type RunState int32

const (
	// StateStopped means the machine is paused and may be resumed
	StateStopped RunState = iota
	// StateRunning means the machine is executing instructions
	StateRunning
	// StateEnd means the program executed its trap instruction
	StateEnd
	// StateAbort means execution failed (invalid instruction or bad access)
	StateAbort
	// StateQuit means the user asked to leave
	StateQuit
)

// String returns the string representation of a RunState
func (s RunState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateRunning:
		return "running"
	case StateEnd:
		return "end"
	case StateAbort:
		return "abort"
	case StateQuit:
		return "quit"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

// StepHook is called after every executed instruction, while the runner is still running
type StepHook func(r *Runner, step *StepResult)

// ExecutionResult summarizes a call to Execute
type ExecutionResult struct {
	// Steps is the number of instructions executed by this call
	Steps int
	// State is the run state after the call
	State RunState
	// HaltPC and HaltRet are set when State is StateEnd or StateAbort
	HaltPC  uint32
	HaltRet uint32
	// Err is the error that aborted execution, if any
	Err error
}

// GoodTrap reports whether the program ended with a zero exit code
func (r *ExecutionResult) GoodTrap() bool {
	return r.State == StateEnd && r.HaltRet == 0
}

// Statistics accumulates execution figures across the whole session
type Statistics struct {
	Instructions uint64
	HostTime     time.Duration
}

// Frequency returns the simulated instructions per second, or 0 if unknown
func (s Statistics) Frequency() uint64 {
	if s.HostTime <= 0 {
		return 0
	}
	return uint64(float64(s.Instructions) / s.HostTime.Seconds())
}

// Runner drives the interpreter the way a monitor does: it owns the run
// state, executes instruction batches and calls step hooks after each one.
type Runner struct {
	interp *Interpreter
	logger *slog.Logger
	state  atomic.Int32
	hooks  []StepHook
	stats  Statistics

	haltPC  uint32
	haltRet uint32
}

// NewRunner creates a stopped runner over an interpreter
func NewRunner(interp *Interpreter, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = utils.DiscardLogger()
	}
	r := &Runner{
		interp: interp,
		logger: logger,
	}
	r.state.Store(int32(StateStopped))
	return r
}

// Interpreter returns the underlying interpreter
func (r *Runner) Interpreter() *Interpreter {
	return r.interp
}

// OnStep registers a hook called after every instruction
func (r *Runner) OnStep(hook StepHook) {
	r.hooks = append(r.hooks, hook)
}

// State returns the current run state
func (r *Runner) State() RunState {
	return RunState(r.state.Load())
}

// SetState forces the run state
func (r *Runner) SetState(s RunState) {
	r.state.Store(int32(s))
}

// IsRunning reports whether the machine is executing instructions
func (r *Runner) IsRunning() bool {
	return r.State() == StateRunning
}

// Stop pauses a running machine. It has no effect in any other state.
func (r *Runner) Stop() {
	r.state.CompareAndSwap(int32(StateRunning), int32(StateStopped))
}

// Interrupt is Stop, safe to call from a signal handling goroutine
func (r *Runner) Interrupt() {
	r.Stop()
}

// Quit marks the session as finished
func (r *Runner) Quit() {
	r.SetState(StateQuit)
}

// Ended reports whether the machine can no longer execute
func (r *Runner) Ended() bool {
	switch r.State() {
	case StateEnd, StateAbort, StateQuit:
		return true
	}
	return false
}

// Statistics returns the accumulated execution figures
func (r *Runner) Statistics() Statistics {
	return r.stats
}

// HaltInfo returns the pc and exit code of the last trap or abort
func (r *Runner) HaltInfo() (pc uint32, ret uint32) {
	return r.haltPC, r.haltRet
}

// Execute runs up to n instructions (n < 0 runs until the machine stops).
// Ended machines refuse to run and return ErrProgramEnded.
func (r *Runner) Execute(n int) (*ExecutionResult, error) {
	if r.Ended() {
		return nil, ErrProgramEnded
	}
	r.SetState(StateRunning)

	result := &ExecutionResult{}
	start := time.Now()

	for ; n != 0; n-- {
		step, err := r.interp.Step()
		if err != nil {
			r.haltPC = r.interp.State().PC
			r.haltRet = uint32(0xffffffff)
			result.Err = err
			r.SetState(StateAbort)
			r.logger.Error("execution aborted", "pc", fmt.Sprintf("0x%08x", r.haltPC), "error", err)
			break
		}

		result.Steps++
		r.stats.Instructions++

		if step.Halted {
			r.haltPC, r.haltRet = r.interp.HaltInfo()
			r.SetState(StateEnd)
		}

		for _, hook := range r.hooks {
			hook(r, step)
		}

		if !r.IsRunning() {
			break
		}
	}

	r.stats.HostTime += time.Since(start)

	if r.IsRunning() {
		r.SetState(StateStopped)
	}

	result.State = r.State()
	switch result.State {
	case StateEnd, StateAbort:
		result.HaltPC = r.haltPC
		result.HaltRet = r.haltRet
		r.logger.Debug("execution finished",
			"state", result.State,
			"instructions", r.stats.Instructions,
			"host_time", r.stats.HostTime,
			"frequency", r.stats.Frequency())
	}

	return result, nil
}
