package debugger

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/Manu343726/rvsdb/pkg/utils"
)

// DefaultWatchpoints is the default watchpoint pool capacity
const DefaultWatchpoints = 32

// none is the nil link of the watchpoint lists
const none = -1

// Evaluator evaluates watchpoint expressions
type Evaluator interface {
	Eval(expr string) (uint32, error)
}

// Watchpoint is an expression whose value is checked after every instruction
type Watchpoint struct {
	// ID is the slot number, fixed when the pool is created
	ID    int    `yaml:"id"`
	Expr  string `yaml:"expr"`
	Value uint32 `yaml:"value"`
}

type watchpointSlot struct {
	Watchpoint
	next int
}

// WatchpointChange reports the outcome of re-evaluating a watchpoint
type WatchpointChange struct {
	Watchpoint
	// Old is the value before the update. Value holds the new one.
	Old uint32
	// Err is set when the expression could not be evaluated; the stored value is kept
	Err error
}

// String returns the user facing report of the change
func (c WatchpointChange) String() string {
	if c.Err != nil {
		return fmt.Sprintf("Invalid expression %s in watch point %d!", c.Expr, c.ID)
	}
	return fmt.Sprintf("Watch point %d with expression %s changes from %s to %s.",
		c.ID, c.Expr, utils.FormatCHex(c.Old, 8), utils.FormatCHex(c.Value, 8))
}

// WatchpointPool is a fixed size set of watchpoints. Slots live in an arena
// and are linked by index into the active list (newest first) and the free
// list. Every slot is in exactly one of them.
type WatchpointPool struct {
	slots  []watchpointSlot
	active int
	free   int
	eval   Evaluator
}

// NewWatchpointPool creates a pool of capacity free watchpoints numbered 0..capacity-1
func NewWatchpointPool(capacity int, eval Evaluator) *WatchpointPool {
	if capacity <= 0 {
		capacity = DefaultWatchpoints
	}

	pool := &WatchpointPool{
		slots:  make([]watchpointSlot, capacity),
		active: none,
		free:   0,
		eval:   eval,
	}
	for i := range pool.slots {
		pool.slots[i].ID = i
		pool.slots[i].next = i + 1
	}
	pool.slots[capacity-1].next = none

	return pool
}

// Capacity returns the number of slots
func (p *WatchpointPool) Capacity() int {
	return len(p.slots)
}

// Len returns the number of active watchpoints
func (p *WatchpointPool) Len() int {
	n := 0
	for i := p.active; i != none; i = p.slots[i].next {
		n++
	}
	return n
}

// take moves the head of the free list to the head of the active list
func (p *WatchpointPool) take() (int, bool) {
	if p.free == none {
		return none, false
	}
	idx := p.free
	p.free = p.slots[idx].next
	p.slots[idx].next = p.active
	p.active = idx
	return idx, true
}

// release unlinks an active slot and pushes it onto the free list
func (p *WatchpointPool) release(idx int) {
	if p.active == idx {
		p.active = p.slots[idx].next
	} else {
		for prev := p.active; prev != none; prev = p.slots[prev].next {
			if p.slots[prev].next == idx {
				p.slots[prev].next = p.slots[idx].next
				break
			}
		}
	}

	p.slots[idx].Expr = ""
	p.slots[idx].Value = 0
	p.slots[idx].next = p.free
	p.free = idx
}

// Set watches expr, storing its current value. On evaluation failure the
// slot is given back and the error returned.
func (p *WatchpointPool) Set(expr string) (Watchpoint, error) {
	idx, ok := p.take()
	if !ok {
		return Watchpoint{}, makeError(ErrPoolExhausted, "all %d watch points are in use", len(p.slots))
	}

	value, err := p.eval.Eval(expr)
	if err != nil {
		p.release(idx)
		return Watchpoint{}, fmt.Errorf("invalid expression %s: %w", expr, err)
	}

	p.slots[idx].Expr = expr
	p.slots[idx].Value = value
	return p.slots[idx].Watchpoint, nil
}

// Update re-evaluates every active watchpoint, newest first. Changed values
// are stored and, if the machine is running, it is stopped. Watchpoints that
// fail to evaluate keep their value. Returns the reports of changed and
// failing watchpoints.
func (p *WatchpointPool) Update(ctl RunControl) []WatchpointChange {
	var changes []WatchpointChange

	for i := p.active; i != none; i = p.slots[i].next {
		wp := &p.slots[i]

		value, err := p.eval.Eval(wp.Expr)
		if err != nil {
			changes = append(changes, WatchpointChange{Watchpoint: wp.Watchpoint, Old: wp.Value, Err: err})
			continue
		}
		if value == wp.Value {
			continue
		}

		changes = append(changes, WatchpointChange{
			Watchpoint: Watchpoint{ID: wp.ID, Expr: wp.Expr, Value: value},
			Old:        wp.Value,
		})
		wp.Value = value
		if ctl != nil && ctl.IsRunning() {
			ctl.Stop()
		}
	}

	return changes
}

// Delete frees the active watchpoint with the given ID
func (p *WatchpointPool) Delete(id int) error {
	for i := p.active; i != none; i = p.slots[i].next {
		if p.slots[i].ID == id {
			p.release(i)
			return nil
		}
	}
	return makeError(ErrNotFound, "watch point numbered %d", id)
}

// Clear frees every active watchpoint
func (p *WatchpointPool) Clear() {
	for p.active != none {
		p.release(p.active)
	}
}

// List returns the active watchpoints, newest first
func (p *WatchpointPool) List() []Watchpoint {
	var out []Watchpoint
	for i := p.active; i != none; i = p.slots[i].next {
		out = append(out, p.slots[i].Watchpoint)
	}
	return out
}

// Display writes the active watchpoints as a table
func (p *WatchpointPool) Display(w io.Writer) {
	if p.active == none {
		fmt.Fprintln(w, "No watch points.")
		return
	}

	rule := strings.Repeat("-", 83)
	color.New(color.Bold).Fprintln(w, "Watch Points")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "%-10s%-20s%-20s%-20s%-20s\n", "No", "Expr", "Value-Hexdecimal", "Value-Unsigned", "Value-Signed")
	fmt.Fprintln(w, rule)
	for _, wp := range p.List() {
		fmt.Fprintf(w, "%-10d%-20s%-20s%-20d%-20d\n", wp.ID, wp.Expr, utils.FormatCHex(wp.Value, 0), wp.Value, int32(wp.Value))
	}
	fmt.Fprintln(w, rule)
}
