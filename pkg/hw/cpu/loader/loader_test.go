package loader

import (
	"debug/elf"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Manu343726/rvsdb/pkg/hw/cpu/elftest"
	"github.com/Manu343726/rvsdb/pkg/hw/cpu/interpreter"
	"github.com/Manu343726/rvsdb/pkg/hw/cpu/symtab"
)

const base uint32 = 0x80000000

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func testELF() []byte {
	return elftest.Build(elftest.Image{
		Entry: base + 4,
		Segments: []elftest.Segment{
			{Addr: base, Data: []byte{0x13, 0x00, 0x00, 0x00, 0x73, 0x00, 0x10, 0x00}, MemSize: 16},
			{Addr: base + 0x100, Data: []byte{0xaa, 0xbb}},
		},
		Symbols: []elftest.Symbol{
			{Name: "_start", Type: elf.STT_FUNC, Value: base + 4},
			{Name: "buffer", Type: elf.STT_OBJECT, Value: base + 0x100},
			{Name: "main.c", Type: elf.STT_FILE, Value: 0},
		},
	})
}

func TestLoadBuiltin(t *testing.T) {
	mem := interpreter.NewMemory(base, 0x1000)

	result, err := LoadFile("", mem, symtab.New(8), nil)
	require.NoError(t, err)

	assert.Equal(t, FormatBuiltin, result.Format)
	assert.Equal(t, base, result.Entry)
	assert.Equal(t, 16, result.Size)
	assert.Equal(t, 0, result.Symbols)

	for i, word := range BuiltinImage {
		value, err := mem.Read(base+uint32(4*i), 4)
		require.NoError(t, err)
		assert.Equal(t, word, value)
	}
}

func TestLoadRaw(t *testing.T) {
	mem := interpreter.NewMemory(base, 0x1000)
	path := writeFile(t, "image.bin", []byte{0x73, 0x00, 0x10, 0x00})

	result, err := LoadFile(path, mem, symtab.New(8), nil)
	require.NoError(t, err)

	assert.Equal(t, FormatRaw, result.Format)
	assert.Equal(t, path, result.Path)
	assert.Equal(t, base, result.Entry)

	value, err := mem.Read(base, 4)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x00100073), value)
}

func TestLoadELF(t *testing.T) {
	mem := interpreter.NewMemory(base, 0x1000)
	require.NoError(t, mem.Write(base+8, 4, 0xdeadbeef))
	symbols := symtab.New(8)
	path := writeFile(t, "image.elf", testELF())

	result, err := LoadFile(path, mem, symbols, nil)
	require.NoError(t, err)

	assert.Equal(t, FormatELF, result.Format)
	assert.Equal(t, base+4, result.Entry)
	assert.Equal(t, 10, result.Size)
	assert.Equal(t, 2, result.Symbols)

	value, err := mem.Read(base+4, 4)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x00100073), value)

	value, err = mem.Read(base+8, 4)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), value, "bss part of the segment is zeroed")

	value, err = mem.Read(base+0x100, 2)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xbbaa), value)

	addr, err := symbols.LookupByName("buffer")
	require.NoError(t, err)
	assert.Equal(t, base+0x100, addr)
}

func TestLoadSymbolFile(t *testing.T) {
	mem := interpreter.NewMemory(base, 0x1000)
	symbols := symtab.New(8)
	image := writeFile(t, "image.bin", []byte{0x73, 0x00, 0x10, 0x00})
	elfPath := writeFile(t, "image.elf", testELF())

	result, err := LoadFile(image, mem, symbols, &Options{SymbolFile: elfPath})
	require.NoError(t, err)

	assert.Equal(t, FormatRaw, result.Format)
	assert.Equal(t, 2, result.Symbols)
	assert.Equal(t, 2, symbols.Len())
}

func TestLoadSymbolFailureIsNotFatal(t *testing.T) {
	mem := interpreter.NewMemory(base, 0x1000)
	symbols := symtab.New(1)
	path := writeFile(t, "image.elf", testELF())

	result, err := LoadFile(path, mem, symbols, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Symbols)
	assert.Equal(t, 1, symbols.Len())
}

func TestLoadErrors(t *testing.T) {
	mem := interpreter.NewMemory(base, 4)

	_, err := LoadFile(filepath.Join(t.TempDir(), "missing"), mem, nil, nil)
	assert.Error(t, err)

	tooBig := writeFile(t, "big.bin", make([]byte, 8))
	_, err = LoadFile(tooBig, mem, nil, nil)
	assert.ErrorIs(t, err, interpreter.ErrOutOfBounds)

	elfPath := writeFile(t, "image.elf", testELF())
	_, err = LoadFile(elfPath, mem, nil, nil)
	assert.ErrorIs(t, err, interpreter.ErrOutOfBounds)
}

func TestFileFormatString(t *testing.T) {
	assert.Equal(t, "elf", FormatELF.String())
	assert.Equal(t, "raw", FormatRaw.String())
	assert.Equal(t, "builtin", FormatBuiltin.String())
}
