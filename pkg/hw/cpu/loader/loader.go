// Package loader provides high-level APIs for loading guest programs.
//
// It abstracts the details of the supported image formats and places the
// program into the machine memory:
//
//   - ELF32 executables: every PT_LOAD segment is copied to its physical
//     address, the entry point becomes the reset vector and the function and
//     object symbols are loaded into the symbol table
//   - Raw binaries: copied verbatim at the memory base
//   - No image at all: a small builtin program is used
//
// Typical usage:
//
//	result, err := loader.LoadFile("program.elf", mem, symbols, &loader.Options{})
//	if err != nil { ... }
//	interp := interpreter.NewInterpreter(mem, result.Entry)
package loader

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Manu343726/rvsdb/pkg/hw/cpu/interpreter"
	"github.com/Manu343726/rvsdb/pkg/hw/cpu/symtab"
	"github.com/Manu343726/rvsdb/pkg/utils"
)

// BuiltinImage is loaded when no image file is given
var BuiltinImage = []uint32{
	0x800002b7, // lui t0,0x80000
	0x0002a023, // sw  zero,0(t0)
	0x0002a503, // lw  a0,0(t0)
	0x00100073, // ebreak (used as the trap instruction)
}

// Options configures the program loading process
type Options struct {
	// SymbolFile, if not empty, is an ELF file symbols are read from instead of the image
	SymbolFile string

	// Logger receives non fatal loading problems. Defaults to a discarding logger.
	Logger *slog.Logger
}

func (o *Options) logger() *slog.Logger {
	if o == nil || o.Logger == nil {
		return utils.DiscardLogger()
	}
	return o.Logger
}

// FileFormat represents the type of program image
type FileFormat int

const (
	// FormatBuiltin indicates the builtin image was loaded
	FormatBuiltin FileFormat = iota
	// FormatRaw indicates a raw binary image
	FormatRaw
	// FormatELF indicates an ELF executable
	FormatELF
)

// String returns the string representation of a FileFormat
func (f FileFormat) String() string {
	switch f {
	case FormatBuiltin:
		return "builtin"
	case FormatRaw:
		return "raw"
	case FormatELF:
		return "elf"
	default:
		return "unknown"
	}
}

// Result contains the result of a load operation
type Result struct {
	// Path is the loaded image path, empty for the builtin image
	Path string

	// Format is the detected image format
	Format FileFormat

	// Entry is the address execution starts at
	Entry uint32

	// Size is the number of image bytes copied into memory
	Size int

	// Symbols is the number of symbols added to the symbol table
	Symbols int
}

// LoadBuiltin loads the builtin image at the memory base
func LoadBuiltin(mem *interpreter.Memory) (*Result, error) {
	image := make([]byte, 4*len(BuiltinImage))
	for i, word := range BuiltinImage {
		binary.LittleEndian.PutUint32(image[4*i:], word)
	}

	if err := mem.Load(mem.Base(), image); err != nil {
		return nil, err
	}

	return &Result{
		Format: FormatBuiltin,
		Entry:  mem.Base(),
		Size:   len(image),
	}, nil
}

// LoadFile loads a program image from path into memory, detecting its format.
// An empty path loads the builtin image. Symbols go to symbols when not nil;
// symbol loading problems are logged and do not fail the load.
func LoadFile(path string, mem *interpreter.Memory, symbols *symtab.Table, opts *Options) (*Result, error) {
	var result *Result

	if path == "" {
		opts.logger().Warn("no image is given, using the builtin image")
		builtin, err := LoadBuiltin(mem)
		if err != nil {
			return nil, err
		}
		result = builtin
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("cannot read image: %w", err)
		}

		result, err = Load(bytes.NewReader(data), mem)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
		result.Path = path
	}

	if symbols == nil {
		return result, nil
	}

	symbolFile := path
	if opts != nil && opts.SymbolFile != "" {
		symbolFile = opts.SymbolFile
	} else if result.Format != FormatELF {
		return result, nil
	}

	n, err := symtab.LoadELFFile(symbolFile, symbols)
	result.Symbols = n
	if err != nil {
		opts.logger().Warn("symbol table not fully loaded", "file", symbolFile, "symbols", n, "error", err)
	}

	return result, nil
}

// Load loads an ELF or raw image from r into memory. Raw images go to the memory base.
func Load(r *bytes.Reader, mem *interpreter.Memory) (*Result, error) {
	if symtab.MatchELF(r) {
		return loadELF(r, mem)
	}

	data, err := io.ReadAll(io.NewSectionReader(r, 0, r.Size()))
	if err != nil {
		return nil, err
	}
	if err := mem.Load(mem.Base(), data); err != nil {
		return nil, err
	}

	return &Result{
		Format: FormatRaw,
		Entry:  mem.Base(),
		Size:   len(data),
	}, nil
}

func loadELF(r io.ReaderAt, mem *interpreter.Memory) (*Result, error) {
	file, err := elf.NewFile(r)
	if err != nil {
		return nil, fmt.Errorf("invalid elf file: %w", err)
	}
	defer file.Close()

	if file.Class != elf.ELFCLASS32 {
		return nil, fmt.Errorf("unsupported elf class %s, expected ELFCLASS32", file.Class)
	}
	if file.Machine != elf.EM_RISCV {
		return nil, fmt.Errorf("unsupported elf machine %s, expected EM_RISCV", file.Machine)
	}

	result := &Result{
		Format: FormatELF,
		Entry:  uint32(file.Entry),
	}

	for _, prog := range file.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}

		addr := uint32(prog.Paddr)
		data := make([]byte, prog.Filesz)
		if _, err := prog.ReadAt(data, 0); err != nil && err != io.EOF {
			return nil, fmt.Errorf("cannot read segment at 0x%08x: %w", addr, err)
		}
		if err := mem.Load(addr, data); err != nil {
			return nil, err
		}
		if prog.Memsz > prog.Filesz {
			if err := mem.Zero(addr+uint32(prog.Filesz), uint32(prog.Memsz-prog.Filesz)); err != nil {
				return nil, err
			}
		}
		result.Size += len(data)
	}

	return result, nil
}
