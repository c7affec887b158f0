package trace

import (
	"fmt"
	"io"
	"log/slog"
)

// MemoryAccess is a physical memory read or write
type MemoryAccess struct {
	Addr uint32     `yaml:"addr"`
	PC   uint32     `yaml:"pc"`
	Kind AccessKind `yaml:"kind"`
}

// String returns the trace line of the access
func (a MemoryAccess) String() string {
	if a.Kind == Write {
		return fmt.Sprintf("Write to physical address %s when pc = %s.", hex08(a.Addr), hex08(a.PC))
	}
	return fmt.Sprintf("Read from physical address %s when pc = %s.", hex08(a.Addr), hex08(a.PC))
}

// MemoryTrace records physical memory accesses (mtrace)
type MemoryTrace struct {
	recordLog[MemoryAccess]
	logger *slog.Logger
}

// NewMemoryTrace creates an empty memory trace
func NewMemoryTrace(logger *slog.Logger) *MemoryTrace {
	return &MemoryTrace{logger: loggerOrDiscard(logger)}
}

// Add records an access. Accesses whose address equals the pc are
// instruction fetches and are not recorded.
func (t *MemoryTrace) Add(addr uint32, pc uint32, kind AccessKind) {
	if addr == pc {
		return
	}
	t.add(MemoryAccess{Addr: addr, PC: pc, Kind: kind})
}

// Display writes every access in order
func (t *MemoryTrace) Display(w io.Writer) {
	colorTitle.Fprintln(w, "Memory trace:")
	for _, access := range t.records {
		fmt.Fprintln(w, access)
	}
}

// Clear drops every record
func (t *MemoryTrace) Clear() {
	t.logger.Info("Clearing memory trace buffer ...")
	t.clear()
}
