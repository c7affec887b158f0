package debugger

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Manu343726/rvsdb/pkg/hw/cpu/debugger/trace"
	"github.com/Manu343726/rvsdb/pkg/hw/cpu/interpreter"
)

// snapshotRegisters lists the registers saved in a snapshot, in order
var snapshotRegisters = func() []string {
	names := make([]string, 0, 37)
	for i := uint32(0); i < 32; i++ {
		names = append(names, interpreter.RegisterName(i))
	}
	return append(names, "pc", "mstatus", "mtvec", "mepc", "mcause")
}()

// Register is a named register value
type Register struct {
	Name  string `yaml:"name"`
	Value uint32 `yaml:"value"`
}

// Snapshot is the saved state of a debugging session: the machine
// registers, the watchpoints and the contents of every trace recorder
type Snapshot struct {
	Image       string       `yaml:"image,omitempty"`
	State       string       `yaml:"state"`
	Registers   []Register   `yaml:"registers"`
	Watchpoints []Watchpoint `yaml:"watchpoints"`

	MemoryTrace    []trace.MemoryAccess `yaml:"mtrace"`
	ExceptionTrace []trace.Exception    `yaml:"etrace"`
	DeviceTrace    []trace.DeviceAccess `yaml:"dtrace"`
	CallStack      []trace.Frame        `yaml:"ftrace"`
	RingBuffer     []string             `yaml:"iringbuf"`
}

// Snapshot captures the current session state
func (b *Backend) Snapshot() (*Snapshot, error) {
	snap := &Snapshot{
		State:       b.runner.State().String(),
		Registers:   make([]Register, 0, len(snapshotRegisters)),
		Watchpoints: b.session.Watchpoints().List(),

		MemoryTrace:    b.session.MemoryTrace().Records(),
		ExceptionTrace: b.session.ExceptionTrace().Records(),
		DeviceTrace:    b.session.DeviceTrace().Records(),
		CallStack:      b.session.CallStack().Records(),
		RingBuffer:     b.session.RingBuffer().Records(),
	}
	if b.image != nil {
		snap.Image = b.image.Path
	}

	for _, name := range snapshotRegisters {
		value, err := b.interp.ReadRegister(name)
		if err != nil {
			return nil, err
		}
		snap.Registers = append(snap.Registers, Register{Name: name, Value: value})
	}

	return snap, nil
}

// SaveSnapshot writes the current session state as YAML to path
func (b *Backend) SaveSnapshot(path string) error {
	snap, err := b.Snapshot()
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create snapshot file: %w", err)
	}
	defer f.Close()

	if err := WriteSnapshot(f, snap); err != nil {
		return err
	}
	return f.Close()
}

// WriteSnapshot encodes a snapshot as YAML
func WriteSnapshot(w io.Writer, snap *Snapshot) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return enc.Close()
}

// ReadSnapshot decodes a snapshot written by WriteSnapshot
func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	var snap Snapshot
	if err := yaml.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &snap, nil
}

// LoadSnapshot reads a snapshot file
func LoadSnapshot(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadSnapshot(f)
}
