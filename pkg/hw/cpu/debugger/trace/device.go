package trace

import (
	"fmt"
	"io"
	"log/slog"
)

// DeviceAccess is a read or write to a memory mapped device
type DeviceAccess struct {
	Name string     `yaml:"name"`
	Addr uint32     `yaml:"addr"`
	PC   uint32     `yaml:"pc"`
	Kind AccessKind `yaml:"kind"`
}

// String returns the trace line of the access
func (a DeviceAccess) String() string {
	if a.Kind == Write {
		return fmt.Sprintf("Write to %s when pc = %s.", a.Name, hex08(a.PC))
	}
	return fmt.Sprintf("Read from %s when pc = %s.", a.Name, hex08(a.PC))
}

// DeviceTrace records device accesses (dtrace)
type DeviceTrace struct {
	recordLog[DeviceAccess]
	logger *slog.Logger
}

// NewDeviceTrace creates an empty device trace
func NewDeviceTrace(logger *slog.Logger) *DeviceTrace {
	return &DeviceTrace{logger: loggerOrDiscard(logger)}
}

// Add records an access. As in the memory trace, accesses at the pc are dropped.
func (t *DeviceTrace) Add(name string, addr uint32, pc uint32, kind AccessKind) {
	if addr == pc {
		return
	}
	t.add(DeviceAccess{Name: name, Addr: addr, PC: pc, Kind: kind})
}

// Display writes every access in order
func (t *DeviceTrace) Display(w io.Writer) {
	colorTitle.Fprintln(w, "Device trace:")
	for _, access := range t.records {
		fmt.Fprintln(w, access)
	}
}

// Clear drops every record
func (t *DeviceTrace) Clear() {
	t.logger.Info("Clearing device trace buffer ...")
	t.clear()
}
