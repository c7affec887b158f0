package trace

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

type fakeSymbols map[uint32]string

func (s fakeSymbols) LookupByAddress(addr uint32) (string, error) {
	if name, ok := s[addr]; ok {
		return name, nil
	}
	return "", errors.New("no symbol")
}

func (s fakeSymbols) Len() int {
	return len(s)
}

func TestMemoryTrace(t *testing.T) {
	mt := NewMemoryTrace(nil)

	mt.Add(0x80000000, 0x80000000, Read)
	mt.Add(0x80001000, 0x80000004, Write)
	mt.Add(0x80001000, 0x80000008, Read)

	assert.Equal(t, 2, mt.Len(), "accesses at the pc are fetches and are dropped")
	assert.Equal(t, []MemoryAccess{
		{Addr: 0x80001000, PC: 0x80000004, Kind: Write},
		{Addr: 0x80001000, PC: 0x80000008, Kind: Read},
	}, mt.Records())

	var out bytes.Buffer
	mt.Display(&out)
	assert.Equal(t, "Memory trace:\n"+
		"Write to physical address 0x80001000 when pc = 0x80000004.\n"+
		"Read from physical address 0x80001000 when pc = 0x80000008.\n", out.String())
}

func TestRecordsAreCopies(t *testing.T) {
	mt := NewMemoryTrace(nil)
	mt.Add(1, 2, Read)

	records := mt.Records()
	records[0].Addr = 42

	assert.Equal(t, uint32(1), mt.Records()[0].Addr)
}

func TestDeviceTrace(t *testing.T) {
	dt := NewDeviceTrace(nil)

	dt.Add("serial", 0xa00003f8, 0x80000008, Write)
	dt.Add("rtc", 0xa000004c, 0x80000010, Read)
	// an access at the pc itself is not a device access
	dt.Add("rom", 0xa0000100, 0xa0000100, Read)

	require.Equal(t, 2, dt.Len())

	var out bytes.Buffer
	dt.Display(&out)
	assert.Equal(t, "Device trace:\n"+
		"Write to serial when pc = 0x80000008.\n"+
		"Read from rtc when pc = 0x80000010.\n", out.String())
}

func TestExceptionTrace(t *testing.T) {
	et := NewExceptionTrace(nil)

	et.Add(0x8000000c, 11)
	et.Add(0x80000100, 0)

	require.Equal(t, 2, et.Len())

	var out bytes.Buffer
	et.Display(&out)
	assert.Equal(t, "Exception trace:\n"+
		"Trigger exception of code 0x00000b when pc = 0x8000000c.\n"+
		"Trigger exception of code 00000000 when pc = 0x80000100.\n", out.String())
}

func TestClearIsIdempotent(t *testing.T) {
	mt := NewMemoryTrace(nil)
	dt := NewDeviceTrace(nil)
	et := NewExceptionTrace(nil)
	cs := NewCallStack(4, fakeSymbols{0x80000100: "main"}, nil)
	rb := NewRingBuffer(3, nil)

	tests := []struct {
		name     string
		recorder Recorder
		fill     func()
	}{
		{"memory", mt, func() { mt.Add(1, 2, Read) }},
		{"device", dt, func() { dt.Add("serial", 1, 2, Write) }},
		{"exception", et, func() { et.Add(1, 2) }},
		{"callstack", cs, func() { cs.Add(0x80000000, 0x80000100, 0x100000ef) }},
		{"ringbuf", rb, func() { rb.Add("line") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fill()
			require.Equal(t, 1, tt.recorder.Len())

			tt.recorder.Clear()
			assert.Equal(t, 0, tt.recorder.Len())
			tt.recorder.Clear()
			assert.Equal(t, 0, tt.recorder.Len())

			tt.fill()
			assert.Equal(t, 1, tt.recorder.Len())
		})
	}
}

func TestCallStack(t *testing.T) {
	symbols := fakeSymbols{
		0x80000100: "main",
		0x80000200: "f",
	}
	cs := NewCallStack(DefaultCallStackDepth, symbols, nil)

	cs.Add(0x80000000, 0x80000100, 0x100000ef) // call main
	cs.Add(0x80000104, 0x80000200, 0x0fc000ef) // call f
	cs.Add(0x80000108, 0x80000300, 0x1f8000ef) // no symbol, ignored

	assert.Equal(t, []Frame{
		{PC: 0x80000000, Target: 0x80000100, Symbol: "main"},
		{PC: 0x80000104, Target: 0x80000200, Symbol: "f"},
	}, cs.Records())

	var out bytes.Buffer
	cs.Display(&out)
	rule := strings.Repeat("-", 36)
	assert.Equal(t, "Call Stack: 2\n"+rule+"\n"+
		"[0] Call function main(0x80000100) at pc = 0x80000000\n"+
		"[1] Call function f(0x80000200) at pc = 0x80000104\n"+
		rule+"\n", out.String())

	cs.Add(0x80000204, 0x80000108, 0x00008067) // ret
	assert.Equal(t, 1, cs.Len())
	cs.Add(0x80000110, 0x80000004, 0x00008067) // ret
	assert.Equal(t, 0, cs.Len())

	out.Reset()
	cs.Display(&out)
	assert.Equal(t, "Empty call stack.\n", out.String())
}

func TestCallStackRetOnEmptyStack(t *testing.T) {
	cs := NewCallStack(4, fakeSymbols{0x80000100: "main"}, nil)

	cs.Add(0x80000000, 0x80000100, 0x00008067)
	assert.Equal(t, []Frame{{PC: 0x80000000, Target: 0x80000100, Symbol: "main"}}, cs.Records(),
		"a ret with nothing to pop is looked up as a call")

	cs.Add(0x80000000, 0x80000004, 0x00008067)
	assert.Equal(t, 0, cs.Len())
	cs.Add(0x80000000, 0x80000004, 0x00008067)
	assert.Equal(t, 0, cs.Len())
}

func TestCallStackOverflow(t *testing.T) {
	cs := NewCallStack(2, fakeSymbols{0x80000100: "rec"}, nil)

	for i := 0; i < 5; i++ {
		cs.Add(0x80000100+uint32(4*i), 0x80000100, 0x000000ef)
	}
	assert.Equal(t, 2, cs.Len())

	cs.Add(0x80000110, 0x80000104, 0x00008067)
	assert.Equal(t, 1, cs.Len(), "a full stack still pops on ret")
}

func TestCallStackWithoutSymbols(t *testing.T) {
	tests := []struct {
		name    string
		symbols SymbolLookup
	}{
		{"nil", nil},
		{"empty", fakeSymbols{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs := NewCallStack(4, tt.symbols, nil)
			cs.Add(0x80000000, 0x80000100, 0x100000ef)
			assert.Equal(t, 0, cs.Len())

			var out bytes.Buffer
			cs.Display(&out)
			assert.Equal(t, "Unable to display call stack due to lack of a symbol table.\n", out.String())
		})
	}
}

func TestRingBuffer(t *testing.T) {
	rb := NewRingBuffer(DefaultRingSize, nil)

	for i := 0; i < 3; i++ {
		rb.Add(fmt.Sprintf("inst %d", i))
	}
	assert.Equal(t, []string{"inst 0", "inst 1", "inst 2"}, rb.Records())

	for i := 3; i < 13; i++ {
		rb.Add(fmt.Sprintf("inst %d", i))
	}
	require.Equal(t, DefaultRingSize, rb.Len())

	records := rb.Records()
	assert.Equal(t, "inst 3", records[0], "oldest surviving line comes first")
	assert.Equal(t, "inst 12", records[len(records)-1])

	var out bytes.Buffer
	rb.Display(&out)
	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, 2+DefaultRingSize)
	assert.Equal(t, "Instruction ring buffer:", lines[0])
	assert.Equal(t, "... ...", lines[1])
	assert.Equal(t, "inst 3", lines[2])
	assert.Equal(t, "inst 12", lines[len(lines)-1])
}

func TestRingBufferClearRewinds(t *testing.T) {
	rb := NewRingBuffer(3, nil)
	for i := 0; i < 5; i++ {
		rb.Add(fmt.Sprintf("inst %d", i))
	}

	rb.Clear()
	assert.Empty(t, rb.Records())

	rb.Add("a")
	rb.Add("b")
	assert.Equal(t, []string{"a", "b"}, rb.Records())

	var out bytes.Buffer
	rb.Display(&out)
	assert.Equal(t, "Instruction ring buffer:\n... ...\na\nb\n", out.String())
}
