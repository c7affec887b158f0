package interpreter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRunner(t *testing.T, words ...uint32) *Runner {
	t.Helper()
	interp, _ := newMachine(t, words...)
	return NewRunner(interp, nil)
}

func TestRunnerGoodTrap(t *testing.T) {
	r := newRunner(t, builtin...)

	result, err := r.Execute(-1)
	require.NoError(t, err)

	assert.Equal(t, 4, result.Steps)
	assert.Equal(t, StateEnd, result.State)
	assert.True(t, result.GoodTrap())
	assert.Equal(t, uint32(0x8000000c), result.HaltPC)
	assert.Equal(t, uint64(4), r.Statistics().Instructions)
}

func TestRunnerBadTrap(t *testing.T) {
	r := newRunner(t,
		0x00500513, // addi a0,zero,5
		0x00100073, // ebreak
	)

	result, err := r.Execute(-1)
	require.NoError(t, err)
	assert.Equal(t, StateEnd, result.State)
	assert.False(t, result.GoodTrap())
	assert.Equal(t, uint32(5), result.HaltRet)
}

func TestRunnerSingleStep(t *testing.T) {
	r := newRunner(t, builtin...)

	for i := 0; i < 3; i++ {
		result, err := r.Execute(1)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Steps)
		assert.Equal(t, StateStopped, result.State)
	}

	result, err := r.Execute(10)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Steps)
	assert.Equal(t, StateEnd, result.State)
}

func TestRunnerRefusesAfterEnd(t *testing.T) {
	r := newRunner(t, builtin...)

	_, err := r.Execute(-1)
	require.NoError(t, err)

	_, err = r.Execute(1)
	assert.ErrorIs(t, err, ErrProgramEnded)

	r.Quit()
	assert.Equal(t, StateQuit, r.State())
	_, err = r.Execute(1)
	assert.ErrorIs(t, err, ErrProgramEnded)
}

func TestRunnerAbort(t *testing.T) {
	r := newRunner(t, 0xffffffff)

	result, err := r.Execute(-1)
	require.NoError(t, err)
	assert.Equal(t, StateAbort, result.State)
	assert.ErrorIs(t, result.Err, ErrInvalidInstruction)
	assert.Equal(t, base, result.HaltPC)
	assert.True(t, r.Ended())
}

func TestRunnerHookStops(t *testing.T) {
	r := newRunner(t, builtin...)

	var seen []uint32
	r.OnStep(func(r *Runner, step *StepResult) {
		seen = append(seen, step.PC)
		if step.PC == 0x80000004 {
			assert.True(t, r.IsRunning())
			r.Stop()
		}
	})

	result, err := r.Execute(-1)
	require.NoError(t, err)
	assert.Equal(t, StateStopped, result.State)
	assert.Equal(t, []uint32{0x80000000, 0x80000004}, seen)
}

func TestRunnerInterrupt(t *testing.T) {
	r := newRunner(t, builtin...)

	r.Interrupt()
	assert.Equal(t, StateStopped, r.State(), "interrupt outside execution is a no-op")

	r.OnStep(func(r *Runner, _ *StepResult) {
		r.Interrupt()
	})
	result, err := r.Execute(-1)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Steps)
	assert.Equal(t, StateStopped, result.State)
}

func TestRunStateString(t *testing.T) {
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "end", StateEnd.String())
	assert.Equal(t, "unknown(42)", RunState(42).String())
}
