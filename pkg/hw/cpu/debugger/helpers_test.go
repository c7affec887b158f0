package debugger

import (
	"bytes"
	"fmt"
	"io"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"

	"github.com/Manu343726/rvsdb/pkg/config"
	"github.com/Manu343726/rvsdb/pkg/hw/cpu/symtab"
)

func init() {
	color.NoColor = true
}

// fakeMachine is a register file and a sparse word addressed memory
type fakeMachine struct {
	regs map[string]uint32
	mem  map[uint32]uint32
}

func newFakeMachine() *fakeMachine {
	return &fakeMachine{
		regs: map[string]uint32{
			"$0": 0,
			"pc": 0x80000000,
			"sp": 0x80001000,
			"a0": 5,
			"t0": 0,
		},
		mem: map[uint32]uint32{
			0x80000000: 0x800002b7,
			0x80001000: 0xdeadbeef,
		},
	}
}

func (m *fakeMachine) ReadRegister(name string) (uint32, error) {
	value, ok := m.regs[name]
	if !ok {
		return 0, fmt.Errorf("unknown register %s", name)
	}
	return value, nil
}

func (m *fakeMachine) ReadMemory(addr uint32, size int) (uint32, error) {
	value, ok := m.mem[addr]
	if !ok {
		return 0, fmt.Errorf("address 0x%08x is out of bound", addr)
	}
	return value, nil
}

func newSymbols(t *testing.T) *symtab.Table {
	t.Helper()
	table := symtab.New(8)
	require.NoError(t, table.Add(symtab.Symbol{Name: "_start", Kind: symtab.KindFunc, Value: 0x80000000}))
	require.NoError(t, table.Add(symtab.Symbol{Name: "main", Kind: symtab.KindFunc, Value: 0x80000010}))
	require.NoError(t, table.Add(symtab.Symbol{Name: "counter", Kind: symtab.KindObject, Value: 0x80001000}))
	return table
}

// fakeControl records Stop calls
type fakeControl struct {
	running bool
	stops   int
}

func (c *fakeControl) IsRunning() bool {
	return c.running
}

func (c *fakeControl) Stop() {
	c.stops++
	c.running = false
}

type message struct {
	level MessageLevel
	text  string
}

// fakeUI collects everything the controller shows
type fakeUI struct {
	messages []message
	out      bytes.Buffer
	evals    []uint32
	memory   map[uint32][]uint32
	help     []CommandHelp
}

var _ DebuggerUI = (*fakeUI)(nil)

func (ui *fakeUI) ShowMessage(level MessageLevel, format string, args ...any) {
	ui.messages = append(ui.messages, message{level: level, text: fmt.Sprintf(format, args...)})
}

func (ui *fakeUI) Output() io.Writer {
	return &ui.out
}

func (ui *fakeUI) ShowEvalResult(expr string, value uint32) {
	ui.evals = append(ui.evals, value)
}

func (ui *fakeUI) ShowMemory(addr uint32, words []uint32) {
	if ui.memory == nil {
		ui.memory = make(map[uint32][]uint32)
	}
	ui.memory[addr] = words
}

func (ui *fakeUI) ShowHelp(commands []CommandHelp) {
	ui.help = commands
}

func (ui *fakeUI) texts() []string {
	out := make([]string, 0, len(ui.messages))
	for _, m := range ui.messages {
		out = append(out, m.text)
	}
	return out
}

func (ui *fakeUI) last() message {
	if len(ui.messages) == 0 {
		return message{}
	}
	return ui.messages[len(ui.messages)-1]
}

func (ui *fakeUI) reset() {
	ui.messages = nil
	ui.out.Reset()
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Memory.Size = 0x10000
	return cfg
}

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	backend, err := NewBackend(BackendOptions{Config: testConfig()})
	require.NoError(t, err)
	return backend
}
