package debugger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPool(t *testing.T, capacity int) (*WatchpointPool, *fakeMachine) {
	t.Helper()
	machine := newFakeMachine()
	eval := NewExpressionEvaluator(machine, machine, nil)
	return NewWatchpointPool(capacity, eval), machine
}

func TestWatchpointSet(t *testing.T) {
	pool, _ := newTestPool(t, 4)

	wp, err := pool.Set("$a0")
	require.NoError(t, err)
	assert.Equal(t, Watchpoint{ID: 0, Expr: "$a0", Value: 5}, wp)

	wp, err = pool.Set("$a0 + 1")
	require.NoError(t, err)
	assert.Equal(t, 1, wp.ID)
	assert.Equal(t, uint32(6), wp.Value)

	assert.Equal(t, 2, pool.Len())
	assert.Equal(t, []Watchpoint{
		{ID: 1, Expr: "$a0 + 1", Value: 6},
		{ID: 0, Expr: "$a0", Value: 5},
	}, pool.List())
}

func TestWatchpointSetInvalid(t *testing.T) {
	pool, _ := newTestPool(t, 4)

	_, err := pool.Set("1 / 0")
	assert.ErrorIs(t, err, ErrDivisionByZero)
	assert.Equal(t, 0, pool.Len())

	// The slot went back to the free list
	wp, err := pool.Set("1")
	require.NoError(t, err)
	assert.Equal(t, 0, wp.ID)
}

func TestWatchpointPoolExhaustion(t *testing.T) {
	pool, _ := newTestPool(t, 2)

	_, err := pool.Set("1")
	require.NoError(t, err)
	_, err = pool.Set("2")
	require.NoError(t, err)

	before := pool.List()

	_, err = pool.Set("3")
	assert.ErrorIs(t, err, ErrPoolExhausted)
	assert.Equal(t, 2, pool.Len())
	assert.Equal(t, before, pool.List())
}

func TestWatchpointDelete(t *testing.T) {
	pool, _ := newTestPool(t, 3)

	for _, expr := range []string{"1", "2", "3"} {
		_, err := pool.Set(expr)
		require.NoError(t, err)
	}

	require.NoError(t, pool.Delete(1))
	assert.Equal(t, 2, pool.Len())
	assert.ErrorIs(t, pool.Delete(1), ErrNotFound)
	assert.ErrorIs(t, pool.Delete(7), ErrNotFound)

	// The freed number is the first one handed out again
	wp, err := pool.Set("4")
	require.NoError(t, err)
	assert.Equal(t, 1, wp.ID)

	ids := []int{}
	for _, wp := range pool.List() {
		ids = append(ids, wp.ID)
	}
	assert.Equal(t, []int{1, 2, 0}, ids)
}

func TestWatchpointClear(t *testing.T) {
	pool, _ := newTestPool(t, 2)

	_, err := pool.Set("1")
	require.NoError(t, err)
	_, err = pool.Set("2")
	require.NoError(t, err)

	pool.Clear()
	assert.Equal(t, 0, pool.Len())
	assert.Empty(t, pool.List())

	pool.Clear()
	assert.Equal(t, 0, pool.Len())

	for i := 0; i < pool.Capacity(); i++ {
		_, err := pool.Set("1")
		require.NoError(t, err)
	}
}

func TestWatchpointUpdate(t *testing.T) {
	t.Run("change stops a running machine", func(t *testing.T) {
		pool, machine := newTestPool(t, 4)
		_, err := pool.Set("$a0")
		require.NoError(t, err)

		machine.regs["a0"] = 7
		ctl := &fakeControl{running: true}
		changes := pool.Update(ctl)

		require.Len(t, changes, 1)
		assert.Equal(t, uint32(5), changes[0].Old)
		assert.Equal(t, uint32(7), changes[0].Value)
		assert.NoError(t, changes[0].Err)
		assert.Equal(t, 1, ctl.stops)
		assert.False(t, ctl.running)
		assert.Equal(t, uint32(7), pool.List()[0].Value)
	})

	t.Run("change of a stopped machine", func(t *testing.T) {
		pool, machine := newTestPool(t, 4)
		_, err := pool.Set("$a0")
		require.NoError(t, err)

		machine.regs["a0"] = 8
		ctl := &fakeControl{}
		changes := pool.Update(ctl)

		require.Len(t, changes, 1)
		assert.Equal(t, 0, ctl.stops)
	})

	t.Run("unchanged values report nothing", func(t *testing.T) {
		pool, _ := newTestPool(t, 4)
		_, err := pool.Set("$a0")
		require.NoError(t, err)

		ctl := &fakeControl{running: true}
		assert.Empty(t, pool.Update(ctl))
		assert.True(t, ctl.running)
	})

	t.Run("failing expression keeps its value", func(t *testing.T) {
		pool, machine := newTestPool(t, 4)
		_, err := pool.Set("*$sp")
		require.NoError(t, err)

		machine.regs["sp"] = 0x1000
		ctl := &fakeControl{running: true}
		changes := pool.Update(ctl)

		require.Len(t, changes, 1)
		assert.ErrorIs(t, changes[0].Err, ErrEval)
		assert.True(t, ctl.running)
		assert.Equal(t, uint32(0xdeadbeef), pool.List()[0].Value)
	})

	t.Run("every watchpoint is visited newest first", func(t *testing.T) {
		pool, machine := newTestPool(t, 4)
		_, err := pool.Set("$a0")
		require.NoError(t, err)
		_, err = pool.Set("$t0")
		require.NoError(t, err)

		machine.regs["a0"] = 1
		machine.regs["t0"] = 2
		changes := pool.Update(&fakeControl{running: true})

		require.Len(t, changes, 2)
		assert.Equal(t, 1, changes[0].ID)
		assert.Equal(t, 0, changes[1].ID)
	})
}

func TestWatchpointChangeString(t *testing.T) {
	change := WatchpointChange{Watchpoint: Watchpoint{ID: 2, Expr: "$a0", Value: 0x80000000}, Old: 0}
	assert.Equal(t, "Watch point 2 with expression $a0 changes from 00000000 to 0x80000000.", change.String())

	change = WatchpointChange{Watchpoint: Watchpoint{ID: 0, Expr: "$t0", Value: 2}, Old: 1}
	assert.Equal(t, "Watch point 0 with expression $t0 changes from 0x000001 to 0x000002.", change.String())

	change.Err = ErrEval
	assert.Equal(t, "Invalid expression $t0 in watch point 0!", change.String())
}

func TestWatchpointDisplay(t *testing.T) {
	pool, _ := newTestPool(t, 4)

	var out bytes.Buffer
	pool.Display(&out)
	assert.Equal(t, "No watch points.\n", out.String())

	_, err := pool.Set("0 - 1")
	require.NoError(t, err)
	_, err = pool.Set("0")
	require.NoError(t, err)

	out.Reset()
	pool.Display(&out)
	assert.Equal(t, "Watch Points\n"+
		"-----------------------------------------------------------------------------------\n"+
		"No        Expr                Value-Hexdecimal    Value-Unsigned      Value-Signed        \n"+
		"-----------------------------------------------------------------------------------\n"+
		"1         0                   0                   0                   0                   \n"+
		"0         0 - 1               0xffffffff          4294967295          -1                  \n"+
		"-----------------------------------------------------------------------------------\n",
		out.String())
}
