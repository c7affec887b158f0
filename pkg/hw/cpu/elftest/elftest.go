// Package elftest builds small in-memory ELF32 RISC-V images for tests.
package elftest

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
)

// Segment is a PT_LOAD segment
type Segment struct {
	Addr uint32
	Data []byte
	// MemSize defaults to len(Data) when smaller
	MemSize uint32
}

// Symbol is a global symbol with an absolute value
type Symbol struct {
	Name  string
	Type  elf.SymType
	Value uint32
}

// Image describes the ELF file to build
type Image struct {
	Entry    uint32
	Segments []Segment
	Symbols  []Symbol
}

const (
	headerSize  = 52
	progSize    = 32
	sectionSize = 40
	symSize     = 16
)

type stringTable struct {
	data bytes.Buffer
}

func newStringTable() *stringTable {
	st := &stringTable{}
	st.data.WriteByte(0)
	return st
}

func (st *stringTable) add(s string) uint32 {
	off := uint32(st.data.Len())
	st.data.WriteString(s)
	st.data.WriteByte(0)
	return off
}

func align4(n int) int {
	return (n + 3) &^ 3
}

// Build encodes img as a little endian ELF32 executable for EM_RISCV
func Build(img Image) []byte {
	strtab := newStringTable()
	var symtab bytes.Buffer
	binary.Write(&symtab, binary.LittleEndian, elf.Sym32{})
	for _, sym := range img.Symbols {
		binary.Write(&symtab, binary.LittleEndian, elf.Sym32{
			Name:  strtab.add(sym.Name),
			Value: sym.Value,
			Info:  elf.ST_INFO(elf.STB_GLOBAL, sym.Type),
			Shndx: uint16(elf.SHN_ABS),
		})
	}

	shstrtab := newStringTable()
	strtabName := shstrtab.add(".strtab")
	symtabName := shstrtab.add(".symtab")
	shstrtabName := shstrtab.add(".shstrtab")

	// file layout: header, program headers, segment data, tables, section headers
	offset := headerSize + progSize*len(img.Segments)
	segmentOffsets := make([]int, len(img.Segments))
	for i, seg := range img.Segments {
		offset = align4(offset)
		segmentOffsets[i] = offset
		offset += len(seg.Data)
	}
	strtabOff := offset
	offset += strtab.data.Len()
	offset = align4(offset)
	symtabOff := offset
	offset += symtab.Len()
	shstrtabOff := offset
	offset += shstrtab.data.Len()
	offset = align4(offset)
	shoff := offset

	var out bytes.Buffer
	header := elf.Header32{
		Type:      uint16(elf.ET_EXEC),
		Machine:   uint16(elf.EM_RISCV),
		Version:   uint32(elf.EV_CURRENT),
		Entry:     img.Entry,
		Shoff:     uint32(shoff),
		Ehsize:    headerSize,
		Phentsize: progSize,
		Phnum:     uint16(len(img.Segments)),
		Shentsize: sectionSize,
		Shnum:     4,
		Shstrndx:  3,
	}
	if len(img.Segments) > 0 {
		header.Phoff = headerSize
	}
	copy(header.Ident[:], []byte{0x7f, 'E', 'L', 'F', byte(elf.ELFCLASS32), byte(elf.ELFDATA2LSB), byte(elf.EV_CURRENT)})
	binary.Write(&out, binary.LittleEndian, header)

	for i, seg := range img.Segments {
		memSize := seg.MemSize
		if memSize < uint32(len(seg.Data)) {
			memSize = uint32(len(seg.Data))
		}
		binary.Write(&out, binary.LittleEndian, elf.Prog32{
			Type:   uint32(elf.PT_LOAD),
			Off:    uint32(segmentOffsets[i]),
			Vaddr:  seg.Addr,
			Paddr:  seg.Addr,
			Filesz: uint32(len(seg.Data)),
			Memsz:  memSize,
			Flags:  uint32(elf.PF_R | elf.PF_X),
			Align:  4,
		})
	}

	pad := func(to int) {
		for out.Len() < to {
			out.WriteByte(0)
		}
	}

	for i, seg := range img.Segments {
		pad(segmentOffsets[i])
		out.Write(seg.Data)
	}
	pad(strtabOff)
	out.Write(strtab.data.Bytes())
	pad(symtabOff)
	out.Write(symtab.Bytes())
	pad(shstrtabOff)
	out.Write(shstrtab.data.Bytes())
	pad(shoff)

	sections := []elf.Section32{
		{},
		{Name: strtabName, Type: uint32(elf.SHT_STRTAB), Off: uint32(strtabOff), Size: uint32(strtab.data.Len()), Addralign: 1},
		{Name: symtabName, Type: uint32(elf.SHT_SYMTAB), Off: uint32(symtabOff), Size: uint32(symtab.Len()), Link: 1, Info: 1, Addralign: 4, Entsize: symSize},
		{Name: shstrtabName, Type: uint32(elf.SHT_STRTAB), Off: uint32(shstrtabOff), Size: uint32(shstrtab.data.Len()), Addralign: 1},
	}
	for _, sec := range sections {
		binary.Write(&out, binary.LittleEndian, sec)
	}

	return out.Bytes()
}
