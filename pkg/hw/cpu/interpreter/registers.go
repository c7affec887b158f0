// Package interpreter provides the reference RV32 machine the debugger observes:
// register file, physical memory with memory mapped devices, a small RV32I
// interpreter and the run loop driving it.
package interpreter

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Manu343726/rvsdb/pkg/utils"
)

var ErrUnknownRegister = errors.New("unknown register")

// Register names as accepted by ReadRegister. x0 is spelled "$0".
var gprNames = [32]string{
	"$0", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

// Exception codes written to mcause
const (
	ExceptionEcallM uint32 = 0xb
)

// CSRs holds the machine mode control and status registers
type CSRs struct {
	Mstatus uint32 `yaml:"mstatus"`
	Mtvec   uint32 `yaml:"mtvec"`
	Mepc    uint32 `yaml:"mepc"`
	Mcause  uint32 `yaml:"mcause"`
}

// CSR addresses
const (
	CSRMstatus uint32 = 0x300
	CSRMtvec   uint32 = 0x305
	CSRMepc    uint32 = 0x341
	CSRMcause  uint32 = 0x342
)

// CPUState represents the architectural state of the hart
type CPUState struct {
	// General purpose registers, x0 always reads as zero
	GPR [32]uint32
	// Program counter
	PC uint32
	// Machine mode CSRs
	CSR CSRs
}

// NewCPUState creates a hart state starting at the given reset vector
func NewCPUState(resetVector uint32) *CPUState {
	return &CPUState{
		PC: resetVector,
		// mstatus.MPP = M, as after reset on a machine mode only hart
		CSR: CSRs{Mstatus: 0x1800},
	}
}

// RegisterName returns the ABI name of general purpose register idx
func RegisterName(idx uint32) string {
	if idx == 0 {
		return "zero"
	}
	return gprNames[idx&0x1f]
}

// GetGPR returns general purpose register idx
func (s *CPUState) GetGPR(idx uint32) uint32 {
	if idx == 0 {
		return 0
	}
	return s.GPR[idx&0x1f]
}

// SetGPR writes general purpose register idx. Writes to x0 are ignored.
func (s *CPUState) SetGPR(idx uint32, value uint32) {
	if idx == 0 {
		return
	}
	s.GPR[idx&0x1f] = value
}

func (s *CPUState) csr(addr uint32) (*uint32, bool) {
	switch addr {
	case CSRMstatus:
		return &s.CSR.Mstatus, true
	case CSRMtvec:
		return &s.CSR.Mtvec, true
	case CSRMepc:
		return &s.CSR.Mepc, true
	case CSRMcause:
		return &s.CSR.Mcause, true
	}
	return nil, false
}

// register resolves a register name into a pointer to its storage.
// Accepted names are the ABI names, "$0", "zero", "x0".."x31", "pc" and the
// machine CSR names.
func (s *CPUState) register(name string) (*uint32, bool) {
	name = strings.ToLower(name)

	switch name {
	case "pc":
		return &s.PC, true
	case "zero":
		return &s.GPR[0], true
	case "mstatus":
		return &s.CSR.Mstatus, true
	case "mtvec":
		return &s.CSR.Mtvec, true
	case "mepc":
		return &s.CSR.Mepc, true
	case "mcause":
		return &s.CSR.Mcause, true
	}

	for i, gpr := range gprNames {
		if gpr == name {
			return &s.GPR[i], true
		}
	}

	if strings.HasPrefix(name, "x") {
		if idx, err := strconv.Atoi(name[1:]); err == nil && idx >= 0 && idx < 32 {
			return &s.GPR[idx], true
		}
	}

	return nil, false
}

// ReadRegister returns the value of a named register
func (s *CPUState) ReadRegister(name string) (uint32, error) {
	reg, ok := s.register(name)
	if !ok {
		return 0, utils.MakeError(ErrUnknownRegister, "%s", name)
	}
	return *reg, nil
}

// WriteRegister sets the value of a named register. Writes to x0 are ignored.
func (s *CPUState) WriteRegister(name string, value uint32) error {
	reg, ok := s.register(name)
	if !ok {
		return utils.MakeError(ErrUnknownRegister, "%s", name)
	}
	if reg != &s.GPR[0] {
		*reg = value
	}
	return nil
}

// Display writes every register in hexadecimal and signed decimal
func (s *CPUState) Display(w io.Writer) {
	line := func(name string, value uint32) {
		fmt.Fprintf(w, "%-15s%#-15x%-15d\n", name, value, int32(value))
	}

	for i, name := range gprNames {
		line(name, s.GPR[i])
	}
	line("pc", s.PC)
	line("mstatus", s.CSR.Mstatus)
	line("mtvec", s.CSR.Mtvec)
	line("mepc", s.CSR.Mepc)
	line("mcause", s.CSR.Mcause)
}
