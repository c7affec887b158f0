package interpreter

import (
	"errors"
	"fmt"

	"github.com/Manu343726/rvsdb/pkg/utils"
)

var (
	ErrOutOfBounds    = errors.New("address out of bounds")
	ErrInvalidSize    = errors.New("invalid access size")
	ErrDeviceOverlaps = errors.New("device overlaps an existing mapping")
)

// AccessKind distinguishes reads from writes
type AccessKind int

const (
	AccessRead AccessKind = iota
	AccessWrite
)

// String returns the string representation of an AccessKind
func (k AccessKind) String() string {
	switch k {
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// MarshalText encodes the access kind by name
func (k AccessKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes an access kind encoded by MarshalText
func (k *AccessKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "read":
		*k = AccessRead
	case "write":
		*k = AccessWrite
	default:
		return fmt.Errorf("unknown access kind %q", text)
	}
	return nil
}

// Device is a memory mapped I/O region. Offsets passed to the callbacks are
// relative to Base.
type Device struct {
	Name  string
	Base  uint32
	Size  uint32
	Read  func(offset uint32, size int) uint32
	Write func(offset uint32, size int, value uint32)
}

func (d *Device) contains(addr uint32, size int) bool {
	return addr >= d.Base && uint64(addr)+uint64(size) <= uint64(d.Base)+uint64(d.Size)
}

// Memory is the physical memory of the machine plus its device map
type Memory struct {
	base    uint32
	data    []byte
	devices []*Device
}

// NewMemory creates size bytes of zeroed physical memory starting at base
func NewMemory(base uint32, size uint32) *Memory {
	return &Memory{
		base: base,
		data: make([]byte, size),
	}
}

// Base returns the first physical address
func (m *Memory) Base() uint32 {
	return m.base
}

// Size returns the physical memory size in bytes
func (m *Memory) Size() uint32 {
	return uint32(len(m.data))
}

// InPhysical reports whether [addr, addr+size) lies within physical memory
func (m *Memory) InPhysical(addr uint32, size int) bool {
	return addr >= m.base && uint64(addr)+uint64(size) <= uint64(m.base)+uint64(len(m.data))
}

// AddDevice maps a device. Mappings may not overlap physical memory or each other.
func (m *Memory) AddDevice(dev *Device) error {
	end := uint64(dev.Base) + uint64(dev.Size)
	if dev.Size == 0 || end > 1<<32 {
		return utils.MakeError(ErrOutOfBounds, "device %s [0x%08x, +0x%x)", dev.Name, dev.Base, dev.Size)
	}
	overlaps := func(base uint32, size uint64) bool {
		return uint64(dev.Base) < uint64(base)+size && uint64(base) < end
	}
	if overlaps(m.base, uint64(len(m.data))) {
		return utils.MakeError(ErrDeviceOverlaps, "%s overlaps physical memory", dev.Name)
	}
	for _, other := range m.devices {
		if overlaps(other.Base, uint64(other.Size)) {
			return utils.MakeError(ErrDeviceOverlaps, "%s overlaps %s", dev.Name, other.Name)
		}
	}
	m.devices = append(m.devices, dev)
	return nil
}

// Devices returns the mapped devices in mapping order
func (m *Memory) Devices() []*Device {
	return append([]*Device(nil), m.devices...)
}

// FindDevice returns the device mapping the access, or nil
func (m *Memory) FindDevice(addr uint32, size int) *Device {
	for _, dev := range m.devices {
		if dev.contains(addr, size) {
			return dev
		}
	}
	return nil
}

func checkSize(size int) error {
	switch size {
	case 1, 2, 4:
		return nil
	}
	return utils.MakeError(ErrInvalidSize, "%d", size)
}

// Read reads a little endian value of 1, 2 or 4 bytes
func (m *Memory) Read(addr uint32, size int) (uint32, error) {
	if err := checkSize(size); err != nil {
		return 0, err
	}

	if m.InPhysical(addr, size) {
		off := addr - m.base
		var value uint32
		for i := 0; i < size; i++ {
			value |= uint32(m.data[off+uint32(i)]) << (8 * i)
		}
		return value, nil
	}

	if dev := m.FindDevice(addr, size); dev != nil {
		if dev.Read == nil {
			return 0, nil
		}
		return dev.Read(addr-dev.Base, size), nil
	}

	return 0, utils.MakeError(ErrOutOfBounds, "0x%08x", addr)
}

// Write writes a little endian value of 1, 2 or 4 bytes
func (m *Memory) Write(addr uint32, size int, value uint32) error {
	if err := checkSize(size); err != nil {
		return err
	}

	if m.InPhysical(addr, size) {
		off := addr - m.base
		for i := 0; i < size; i++ {
			m.data[off+uint32(i)] = byte(value >> (8 * i))
		}
		return nil
	}

	if dev := m.FindDevice(addr, size); dev != nil {
		if dev.Write != nil {
			dev.Write(addr-dev.Base, size, value)
		}
		return nil
	}

	return utils.MakeError(ErrOutOfBounds, "0x%08x", addr)
}

// Load copies a raw image into physical memory at addr
func (m *Memory) Load(addr uint32, image []byte) error {
	if !m.InPhysical(addr, len(image)) {
		return utils.MakeError(ErrOutOfBounds, "image of %d bytes at 0x%08x does not fit in memory", len(image), addr)
	}
	copy(m.data[addr-m.base:], image)
	return nil
}

// Zero clears size bytes of physical memory at addr
func (m *Memory) Zero(addr uint32, size uint32) error {
	if !m.InPhysical(addr, int(size)) {
		return utils.MakeError(ErrOutOfBounds, "0x%08x +0x%x", addr, size)
	}
	clear(m.data[addr-m.base : addr-m.base+size])
	return nil
}
