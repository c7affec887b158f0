package symtab

import (
	"bytes"
	"debug/elf"
	"io"
	"os"

	"github.com/pkg/errors"
)

var elfMagic = []byte{0x7f, 'E', 'L', 'F'}

// MatchELF reports whether r starts with the ELF magic
func MatchELF(r io.ReaderAt) bool {
	magic := make([]byte, len(elfMagic))
	if _, err := r.ReadAt(magic, 0); err != nil {
		return false
	}
	return bytes.Equal(magic, elfMagic)
}

// LoadELFFile reads the function and object symbols of an ELF file into t
func LoadELFFile(path string, t *Table) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrap(err, "cannot open elf file")
	}
	defer f.Close()

	n, err := LoadELF(f, t)
	return n, errors.Wrapf(err, "loading symbols from %s", path)
}

// LoadELF reads the STT_FUNC and STT_OBJECT symbols of a 32 bit ELF image into t,
// in symbol table order. Returns how many symbols were added. When the table
// fills up the remaining symbols are dropped and an error wrapping ErrTableFull
// is returned together with the count of symbols that did fit.
func LoadELF(r io.ReaderAt, t *Table) (int, error) {
	file, err := elf.NewFile(r)
	if err != nil {
		return 0, errors.Wrap(err, "invalid elf file")
	}
	defer file.Close()

	if file.Class != elf.ELFCLASS32 {
		return 0, errors.Errorf("unsupported elf class %s, expected ELFCLASS32", file.Class)
	}

	symbols, err := file.Symbols()
	if err == elf.ErrNoSymbols {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "cannot read symbol table")
	}

	added := 0
	for _, sym := range symbols {
		var kind Kind
		switch elf.ST_TYPE(sym.Info) {
		case elf.STT_FUNC:
			kind = KindFunc
		case elf.STT_OBJECT:
			kind = KindObject
		default:
			continue
		}

		if err := t.Add(Symbol{Name: sym.Name, Kind: kind, Value: uint32(sym.Value)}); err != nil {
			return added, err
		}
		added++
	}

	return added, nil
}
