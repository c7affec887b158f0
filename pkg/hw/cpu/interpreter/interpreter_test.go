package interpreter

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const base uint32 = 0x80000000

type event struct {
	kind   string
	name   string
	addr   uint32
	pc     uint32
	access AccessKind
	code   uint32
	target uint32
	inst   uint32
}

type recordingTracer struct {
	events []event
	lines  []string
}

func (t *recordingTracer) MemoryAccess(addr uint32, pc uint32, kind AccessKind) {
	t.events = append(t.events, event{kind: "mem", addr: addr, pc: pc, access: kind})
}

func (t *recordingTracer) DeviceAccess(name string, addr uint32, pc uint32, kind AccessKind) {
	t.events = append(t.events, event{kind: "dev", name: name, addr: addr, pc: pc, access: kind})
}

func (t *recordingTracer) Exception(pc uint32, code uint32) {
	t.events = append(t.events, event{kind: "exc", pc: pc, code: code})
}

func (t *recordingTracer) Call(pc uint32, target uint32, inst uint32) {
	t.events = append(t.events, event{kind: "call", pc: pc, target: target, inst: inst})
}

func (t *recordingTracer) Instruction(line string) {
	t.lines = append(t.lines, line)
}

func (t *recordingTracer) only(kind string) []event {
	var out []event
	for _, e := range t.events {
		if e.kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func program(words ...uint32) []byte {
	out := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(out[4*i:], w)
	}
	return out
}

func newMachine(t *testing.T, words ...uint32) (*Interpreter, *recordingTracer) {
	t.Helper()
	mem := NewMemory(base, 0x1000)
	require.NoError(t, mem.Load(base, program(words...)))
	interp := NewInterpreter(mem, base)
	tracer := &recordingTracer{}
	interp.SetTracer(tracer)
	return interp, tracer
}

// runToHalt steps the interpreter until it hits the trap
func runToHalt(t *testing.T, interp *Interpreter) {
	t.Helper()
	for steps := 0; !interp.Halted(); steps++ {
		require.Less(t, steps, 10000, "program did not halt")
		_, err := interp.Step()
		require.NoError(t, err)
	}
}

var builtin = []uint32{
	0x800002b7, // lui t0,0x80000
	0x0002a023, // sw zero,0(t0)
	0x0002a503, // lw a0,0(t0)
	0x00100073, // ebreak
}

func TestBuiltinImage(t *testing.T) {
	interp, tracer := newMachine(t, builtin...)

	runToHalt(t, interp)

	assert.True(t, interp.Halted())
	pc, ret := interp.HaltInfo()
	assert.Equal(t, uint32(0x8000000c), pc)
	assert.Equal(t, uint32(0), ret)
	assert.Equal(t, uint32(0x80000000), interp.State().GPR[5])

	assert.Equal(t, []string{
		"0x80000000: 80 00 02 b7\tlui\tt0, 0x80000",
		"0x80000004: 00 02 a0 23\tsw\tzero, 0(t0)",
		"0x80000008: 00 02 a5 03\tlw\ta0, 0(t0)",
		"0x8000000c: 00 10 00 73\tebreak",
	}, tracer.lines)

	assert.Equal(t, []event{
		{kind: "mem", addr: 0x80000000, pc: 0x80000000, access: AccessRead},
		{kind: "mem", addr: 0x80000004, pc: 0x80000004, access: AccessRead},
		{kind: "mem", addr: 0x80000000, pc: 0x80000004, access: AccessWrite},
		{kind: "mem", addr: 0x80000008, pc: 0x80000008, access: AccessRead},
		{kind: "mem", addr: 0x80000000, pc: 0x80000008, access: AccessRead},
		{kind: "mem", addr: 0x8000000c, pc: 0x8000000c, access: AccessRead},
	}, tracer.events)

	_, err := interp.Step()
	assert.ErrorIs(t, err, ErrHalted)
}

func TestExitCode(t *testing.T) {
	interp, _ := newMachine(t,
		0x00500513, // addi a0,zero,5
		0x00100073, // ebreak
	)

	runToHalt(t, interp)
	_, ret := interp.HaltInfo()
	assert.Equal(t, uint32(5), ret)
}

func TestEcallRaisesException(t *testing.T) {
	interp, tracer := newMachine(t,
		0x800002b7, // lui t0,0x80000
		0x01028293, // addi t0,t0,16
		0x30529073, // csrrw zero,mtvec,t0
		0x00000073, // ecall
		0x00100073, // ebreak (trap handler)
	)

	runToHalt(t, interp)

	csr := interp.State().CSR
	assert.Equal(t, ExceptionEcallM, csr.Mcause)
	assert.Equal(t, uint32(0x8000000c), csr.Mepc)
	assert.Equal(t, uint32(0x80000010), csr.Mtvec)

	assert.Equal(t, []event{{kind: "exc", pc: 0x8000000c, code: 11}}, tracer.only("exc"))

	pc, _ := interp.HaltInfo()
	assert.Equal(t, uint32(0x80000010), pc)
}

func TestCallAndReturn(t *testing.T) {
	interp, tracer := newMachine(t,
		0x008000ef, // jal ra,0x80000008
		0x00100073, // ebreak
		0x00008067, // ret
	)

	runToHalt(t, interp)

	assert.Equal(t, []event{
		{kind: "call", pc: 0x80000000, target: 0x80000008, inst: 0x008000ef},
		{kind: "call", pc: 0x80000008, target: 0x80000004, inst: RetInstruction},
	}, tracer.only("call"))
	assert.Equal(t, uint32(0x80000004), interp.State().GPR[1])
	assert.Contains(t, tracer.lines[1], "\tret")
}

func TestDeviceAccess(t *testing.T) {
	mem := NewMemory(base, 0x1000)
	var out bytes.Buffer
	require.NoError(t, mem.AddDevice(NewSerial(&out)))
	require.NoError(t, mem.Load(base, program(
		0xa00002b7, // lui t0,0xa0000
		0x04100513, // addi a0,zero,65
		0x3ea28c23, // sb a0,1016(t0)
		0x00000513, // addi a0,zero,0
		0x00100073, // ebreak
	)))
	interp := NewInterpreter(mem, base)
	tracer := &recordingTracer{}
	interp.SetTracer(tracer)

	runToHalt(t, interp)

	assert.Equal(t, "A", out.String())
	assert.Equal(t, []event{
		{kind: "dev", name: "serial", addr: 0xa00003f8, pc: 0x80000008, access: AccessWrite},
	}, tracer.only("dev"))
}

func TestInvalidInstruction(t *testing.T) {
	interp, _ := newMachine(t, 0xffffffff)

	_, err := interp.Step()
	assert.ErrorIs(t, err, ErrInvalidInstruction)
	assert.Equal(t, base, interp.State().PC)
}

func TestBadAccess(t *testing.T) {
	interp, _ := newMachine(t,
		0x0002a503, // lw a0,0(t0), t0 = 0 is unmapped
	)

	_, err := interp.Step()
	assert.ErrorIs(t, err, ErrBadAccess)
}

func TestBranches(t *testing.T) {
	tests := []struct {
		name  string
		words []uint32
		a0    uint32
	}{
		{
			name: "beq taken",
			words: []uint32{
				0x00000463, // beq zero,zero,+8
				0x00100513, // addi a0,zero,1 (skipped)
				0x00100073, // ebreak
			},
			a0: 0,
		},
		{
			name: "bne not taken",
			words: []uint32{
				0x00001463, // bne zero,zero,+8
				0x00100513, // addi a0,zero,1
				0x00100073, // ebreak
			},
			a0: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			interp, _ := newMachine(t, tt.words...)
			runToHalt(t, interp)
			_, ret := interp.HaltInfo()
			assert.Equal(t, tt.a0, ret)
		})
	}
}

func TestArithmetic(t *testing.T) {
	interp, _ := newMachine(t,
		0x00700293, // addi t0,zero,7
		0x00300313, // addi t1,zero,3
		0x40628533, // sub a0,t0,t1
		0x006285b3, // add a1,t0,t1
		0xfff00613, // addi a2,zero,-1
		0x00100073, // ebreak
	)

	runToHalt(t, interp)

	s := interp.State()
	assert.Equal(t, uint32(4), s.GPR[10])
	assert.Equal(t, uint32(10), s.GPR[11])
	assert.Equal(t, uint32(0xffffffff), s.GPR[12])
}
