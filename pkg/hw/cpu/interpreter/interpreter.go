package interpreter

import (
	"errors"
	"fmt"

	"github.com/Manu343726/rvsdb/pkg/utils"
)

var (
	ErrInvalidInstruction = errors.New("invalid instruction")
	ErrHalted             = errors.New("CPU is halted")
	ErrBadAccess          = errors.New("bad memory access")
)

// Tracer receives the events the machine produces while executing.
// Memory and device accesses include instruction fetches.
type Tracer interface {
	MemoryAccess(addr uint32, pc uint32, kind AccessKind)
	DeviceAccess(name string, addr uint32, pc uint32, kind AccessKind)
	Exception(pc uint32, code uint32)
	Call(pc uint32, target uint32, inst uint32)
	Instruction(line string)
}

// NopTracer ignores every event
type NopTracer struct{}

func (NopTracer) MemoryAccess(uint32, uint32, AccessKind)         {}
func (NopTracer) DeviceAccess(string, uint32, uint32, AccessKind) {}
func (NopTracer) Exception(uint32, uint32)                        {}
func (NopTracer) Call(uint32, uint32, uint32)                     {}
func (NopTracer) Instruction(string)                              {}

// StepResult contains the result of executing a single instruction
type StepResult struct {
	// PC is the address of the executed instruction
	PC uint32
	// NextPC is the address of the next instruction to execute
	NextPC uint32
	// Inst is the raw instruction word
	Inst uint32
	// Disasm is the textual form of the instruction
	Disasm string
	// Halted is set when the instruction stopped the machine (ebreak)
	Halted bool
}

// String returns the log line of the instruction: address, encoding bytes and disassembly
func (r *StepResult) String() string {
	return fmt.Sprintf("0x%08x: %s\t%s", r.PC, utils.FormatWordBytes(r.Inst), r.Disasm)
}

// Interpreter executes RV32I machine code over a CPUState and Memory
type Interpreter struct {
	state  *CPUState
	mem    *Memory
	tracer Tracer

	halted bool
	haltPC uint32
	// a0 at the time of the trap
	haltRet uint32
}

// NewInterpreter creates an interpreter whose hart starts at resetVector
func NewInterpreter(mem *Memory, resetVector uint32) *Interpreter {
	return &Interpreter{
		state:  NewCPUState(resetVector),
		mem:    mem,
		tracer: NopTracer{},
	}
}

// SetTracer installs the event sink. A nil tracer disables tracing.
func (i *Interpreter) SetTracer(t Tracer) {
	if t == nil {
		t = NopTracer{}
	}
	i.tracer = t
}

// State returns the current CPU state
func (i *Interpreter) State() *CPUState {
	return i.state
}

// Memory returns the machine memory
func (i *Interpreter) Memory() *Memory {
	return i.mem
}

// ReadRegister returns the value of a named register
func (i *Interpreter) ReadRegister(name string) (uint32, error) {
	return i.state.ReadRegister(name)
}

// ReadMemory reads memory without producing trace events
func (i *Interpreter) ReadMemory(addr uint32, size int) (uint32, error) {
	return i.mem.Read(addr, size)
}

// Halted reports whether the hart executed a trap
func (i *Interpreter) Halted() bool {
	return i.halted
}

// HaltInfo returns the pc of the trap and the value of a0 at that time
func (i *Interpreter) HaltInfo() (pc uint32, ret uint32) {
	return i.haltPC, i.haltRet
}

// Reset restarts the hart at resetVector, keeping memory contents
func (i *Interpreter) Reset(resetVector uint32) {
	i.state = NewCPUState(resetVector)
	i.halted = false
	i.haltPC = 0
	i.haltRet = 0
}

func (i *Interpreter) traceAccess(addr uint32, size int, kind AccessKind) {
	if i.mem.InPhysical(addr, size) {
		i.tracer.MemoryAccess(addr, i.state.PC, kind)
	} else if dev := i.mem.FindDevice(addr, size); dev != nil {
		i.tracer.DeviceAccess(dev.Name, addr, i.state.PC, kind)
	}
}

func (i *Interpreter) load(addr uint32, size int) (uint32, error) {
	i.traceAccess(addr, size, AccessRead)
	value, err := i.mem.Read(addr, size)
	if err != nil {
		return 0, utils.MakeError(ErrBadAccess, "read of %d bytes at 0x%08x (pc = 0x%08x): %v", size, addr, i.state.PC, err)
	}
	return value, nil
}

func (i *Interpreter) store(addr uint32, size int, value uint32) error {
	i.traceAccess(addr, size, AccessWrite)
	if err := i.mem.Write(addr, size, value); err != nil {
		return utils.MakeError(ErrBadAccess, "write of %d bytes at 0x%08x (pc = 0x%08x): %v", size, addr, i.state.PC, err)
	}
	return nil
}

// raise enters the trap handler at mtvec, recording the exception
func (i *Interpreter) raise(code uint32, epc uint32) uint32 {
	i.tracer.Exception(epc, code)

	csr := &i.state.CSR
	csr.Mcause = code
	csr.Mepc = epc

	mstatus := utils.CreateBitView(&csr.Mstatus)
	mstatus.Write(mstatus.Read(mstatusMIE, 1), mstatusMPIE, 1)
	mstatus.Write(0, mstatusMIE, 1)

	return csr.Mtvec
}

const (
	mstatusMIE  = 3
	mstatusMPIE = 7
)

// Step fetches, decodes and executes a single instruction
func (i *Interpreter) Step() (*StepResult, error) {
	if i.halted {
		return nil, ErrHalted
	}

	pc := i.state.PC
	word, err := i.load(pc, 4)
	if err != nil {
		return nil, err
	}

	d := decode(word)
	result := &StepResult{
		PC:     pc,
		Inst:   word,
		NextPC: pc + 4,
	}

	if err := i.execute(d, result); err != nil {
		return nil, err
	}

	i.tracer.Instruction(result.String())
	if d.opcode == opJAL || d.opcode == opJALR {
		i.tracer.Call(pc, result.NextPC, word)
	}

	if !result.Halted {
		i.state.PC = result.NextPC
	}
	return result, nil
}

func (i *Interpreter) invalid(d decoded) error {
	return utils.MakeError(ErrInvalidInstruction, "0x%08x at pc = 0x%08x", d.inst, i.state.PC)
}

func (i *Interpreter) execute(d decoded, r *StepResult) error {
	s := i.state
	rs1 := s.GetGPR(d.rs1)
	rs2 := s.GetGPR(d.rs2)
	rd := RegisterName(d.rd)

	switch d.opcode {
	case opLUI:
		s.SetGPR(d.rd, d.immU())
		r.Disasm = fmt.Sprintf("lui\t%s, 0x%x", rd, d.immU()>>12)

	case opAUIPC:
		s.SetGPR(d.rd, r.PC+d.immU())
		r.Disasm = fmt.Sprintf("auipc\t%s, 0x%x", rd, d.immU()>>12)

	case opJAL:
		s.SetGPR(d.rd, r.PC+4)
		r.NextPC = r.PC + d.immJ()
		r.Disasm = fmt.Sprintf("jal\t%s, 0x%08x", rd, r.NextPC)

	case opJALR:
		if d.funct3 != 0 {
			return i.invalid(d)
		}
		target := (rs1 + d.immI()) &^ 1
		s.SetGPR(d.rd, r.PC+4)
		r.NextPC = target
		if d.inst == RetInstruction {
			r.Disasm = "ret"
		} else {
			r.Disasm = fmt.Sprintf("jalr\t%s, %d(%s)", rd, int32(d.immI()), RegisterName(d.rs1))
		}

	case opBRANCH:
		var taken bool
		var mnemonic string
		switch d.funct3 {
		case 0b000:
			mnemonic, taken = "beq", rs1 == rs2
		case 0b001:
			mnemonic, taken = "bne", rs1 != rs2
		case 0b100:
			mnemonic, taken = "blt", int32(rs1) < int32(rs2)
		case 0b101:
			mnemonic, taken = "bge", int32(rs1) >= int32(rs2)
		case 0b110:
			mnemonic, taken = "bltu", rs1 < rs2
		case 0b111:
			mnemonic, taken = "bgeu", rs1 >= rs2
		default:
			return i.invalid(d)
		}
		target := r.PC + d.immB()
		if taken {
			r.NextPC = target
		}
		r.Disasm = fmt.Sprintf("%s\t%s, %s, 0x%08x", mnemonic, RegisterName(d.rs1), RegisterName(d.rs2), target)

	case opLOAD:
		var size int
		var signed bool
		var mnemonic string
		switch d.funct3 {
		case 0b000:
			mnemonic, size, signed = "lb", 1, true
		case 0b001:
			mnemonic, size, signed = "lh", 2, true
		case 0b010:
			mnemonic, size = "lw", 4
		case 0b100:
			mnemonic, size = "lbu", 1
		case 0b101:
			mnemonic, size = "lhu", 2
		default:
			return i.invalid(d)
		}
		value, err := i.load(rs1+d.immI(), size)
		if err != nil {
			return err
		}
		if signed {
			value = utils.SignExtend(value, 8*size)
		}
		s.SetGPR(d.rd, value)
		r.Disasm = fmt.Sprintf("%s\t%s, %d(%s)", mnemonic, rd, int32(d.immI()), RegisterName(d.rs1))

	case opSTORE:
		var size int
		var mnemonic string
		switch d.funct3 {
		case 0b000:
			mnemonic, size = "sb", 1
		case 0b001:
			mnemonic, size = "sh", 2
		case 0b010:
			mnemonic, size = "sw", 4
		default:
			return i.invalid(d)
		}
		if err := i.store(rs1+d.immS(), size, rs2&utils.AllOnes[uint32](8*size)); err != nil {
			return err
		}
		r.Disasm = fmt.Sprintf("%s\t%s, %d(%s)", mnemonic, RegisterName(d.rs2), int32(d.immS()), RegisterName(d.rs1))

	case opIMM:
		imm := d.immI()
		shamt := utils.Field(imm, 0, 5)
		var value uint32
		var mnemonic string
		switch d.funct3 {
		case 0b000:
			mnemonic, value = "addi", rs1+imm
		case 0b010:
			mnemonic, value = "slti", boolWord(int32(rs1) < int32(imm))
		case 0b011:
			mnemonic, value = "sltiu", boolWord(rs1 < imm)
		case 0b100:
			mnemonic, value = "xori", rs1^imm
		case 0b110:
			mnemonic, value = "ori", rs1|imm
		case 0b111:
			mnemonic, value = "andi", rs1&imm
		case 0b001:
			mnemonic, value = "slli", rs1<<shamt
		case 0b101:
			if d.funct7 == 0b0100000 {
				mnemonic, value = "srai", uint32(int32(rs1)>>shamt)
			} else {
				mnemonic, value = "srli", rs1>>shamt
			}
		}
		s.SetGPR(d.rd, value)
		r.Disasm = fmt.Sprintf("%s\t%s, %s, %d", mnemonic, rd, RegisterName(d.rs1), int32(imm))

	case opOP:
		if d.funct7 != 0 && d.funct7 != 0b0100000 {
			return i.invalid(d)
		}
		alt := d.funct7 == 0b0100000
		shamt := utils.Field(rs2, 0, 5)
		var value uint32
		var mnemonic string
		switch {
		case d.funct3 == 0b000 && !alt:
			mnemonic, value = "add", rs1+rs2
		case d.funct3 == 0b000 && alt:
			mnemonic, value = "sub", rs1-rs2
		case d.funct3 == 0b001 && !alt:
			mnemonic, value = "sll", rs1<<shamt
		case d.funct3 == 0b010 && !alt:
			mnemonic, value = "slt", boolWord(int32(rs1) < int32(rs2))
		case d.funct3 == 0b011 && !alt:
			mnemonic, value = "sltu", boolWord(rs1 < rs2)
		case d.funct3 == 0b100 && !alt:
			mnemonic, value = "xor", rs1^rs2
		case d.funct3 == 0b101 && !alt:
			mnemonic, value = "srl", rs1>>shamt
		case d.funct3 == 0b101 && alt:
			mnemonic, value = "sra", uint32(int32(rs1)>>shamt)
		case d.funct3 == 0b110 && !alt:
			mnemonic, value = "or", rs1|rs2
		case d.funct3 == 0b111 && !alt:
			mnemonic, value = "and", rs1&rs2
		default:
			return i.invalid(d)
		}
		s.SetGPR(d.rd, value)
		r.Disasm = fmt.Sprintf("%s\t%s, %s, %s", mnemonic, rd, RegisterName(d.rs1), RegisterName(d.rs2))

	case opSYSTEM:
		return i.executeSystem(d, r, rs1)

	default:
		return i.invalid(d)
	}

	return nil
}

func (i *Interpreter) executeSystem(d decoded, r *StepResult, rs1 uint32) error {
	s := i.state

	switch d.funct3 {
	case 0b000:
		switch d.inst {
		case instECALL:
			r.NextPC = i.raise(ExceptionEcallM, r.PC)
			r.Disasm = "ecall"
		case instEBREAK:
			i.halted = true
			i.haltPC = r.PC
			i.haltRet = s.GetGPR(10)
			r.Halted = true
			r.Disasm = "ebreak"
		case instMRET:
			mstatus := utils.CreateBitView(&s.CSR.Mstatus)
			mstatus.Write(mstatus.Read(mstatusMPIE, 1), mstatusMIE, 1)
			mstatus.Write(1, mstatusMPIE, 1)
			r.NextPC = s.CSR.Mepc
			r.Disasm = "mret"
		default:
			return i.invalid(d)
		}

	case 0b001, 0b010:
		csrAddr := utils.Field(d.inst, 20, 12)
		csr, ok := s.csr(csrAddr)
		if !ok {
			return i.invalid(d)
		}
		old := *csr
		mnemonic := "csrrw"
		if d.funct3 == 0b001 {
			*csr = rs1
		} else {
			mnemonic = "csrrs"
			if d.rs1 != 0 {
				*csr = old | rs1
			}
		}
		s.SetGPR(d.rd, old)
		r.Disasm = fmt.Sprintf("%s\t%s, %s, %s", mnemonic, RegisterName(d.rd), csrName(csrAddr), RegisterName(d.rs1))

	default:
		return i.invalid(d)
	}

	return nil
}

func csrName(addr uint32) string {
	switch addr {
	case CSRMstatus:
		return "mstatus"
	case CSRMtvec:
		return "mtvec"
	case CSRMepc:
		return "mepc"
	case CSRMcause:
		return "mcause"
	default:
		return fmt.Sprintf("0x%03x", addr)
	}
}

func boolWord(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
