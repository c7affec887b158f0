// Package symtab holds the program symbols used to resolve expression
// identifiers and call targets.
//
// The table is filled once when a binary is loaded and never shrinks.
// Lookups are exact: a name resolves to the symbol value and an address
// resolves only when it is exactly the value of a symbol.
package symtab

import (
	"errors"
	"fmt"
	"io"

	"github.com/Manu343726/rvsdb/pkg/utils"
	"github.com/fatih/color"
)

var (
	ErrTableFull     = errors.New("symbol table full")
	ErrUnknownSymbol = errors.New("unknown symbol")
	ErrNoSymbol      = errors.New("no symbol at address")
)

// Kind classifies a symbol
type Kind int

const (
	// KindFunc is a function entry point
	KindFunc Kind = iota
	// KindObject is a global data object
	KindObject
)

// String returns the string representation of a Kind
func (k Kind) String() string {
	switch k {
	case KindFunc:
		return "FUNC"
	case KindObject:
		return "OBJECT"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// MarshalText implements encoding.TextMarshaler
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Symbol is one entry of the table
type Symbol struct {
	Name  string `yaml:"name"`
	Kind  Kind   `yaml:"kind"`
	Value uint32 `yaml:"value"`
}

// Table is a fixed capacity, append-only symbol table
type Table struct {
	symbols  []Symbol
	capacity int
}

// New creates an empty table able to hold up to capacity symbols
func New(capacity int) *Table {
	return &Table{
		symbols:  make([]Symbol, 0, capacity),
		capacity: capacity,
	}
}

// Add appends a symbol. Fails with ErrTableFull once the capacity is reached.
func (t *Table) Add(sym Symbol) error {
	if len(t.symbols) >= t.capacity {
		return utils.MakeError(ErrTableFull, "cannot add %s, capacity is %d", sym.Name, t.capacity)
	}
	t.symbols = append(t.symbols, sym)
	return nil
}

// Len returns the number of loaded symbols
func (t *Table) Len() int {
	return len(t.symbols)
}

// Capacity returns the maximum number of symbols
func (t *Table) Capacity() int {
	return t.capacity
}

// Symbols returns a copy of the loaded symbols in load order
func (t *Table) Symbols() []Symbol {
	return append([]Symbol(nil), t.symbols...)
}

// LookupByName returns the value of the first symbol with the given name
func (t *Table) LookupByName(name string) (uint32, error) {
	for _, sym := range t.symbols {
		if sym.Name == name {
			return sym.Value, nil
		}
	}
	return 0, utils.MakeError(ErrUnknownSymbol, "%s", name)
}

// LookupByAddress returns the name of the first symbol whose value is addr
func (t *Table) LookupByAddress(addr uint32) (string, error) {
	for _, sym := range t.symbols {
		if sym.Value == addr {
			return sym.Name, nil
		}
	}
	return "", utils.MakeError(ErrNoSymbol, "0x%08x", addr)
}

const tableRule = "------------------------------------------------------------------------------------"

// Display writes the table with the value in hexadecimal, unsigned and signed forms
func (t *Table) Display(w io.Writer) {
	if len(t.symbols) == 0 {
		fmt.Fprintln(w, "No symbol table loaded!")
		return
	}

	fmt.Fprintf(w, "Symbol Table\n%s\n", tableRule)
	color.New(color.Bold).Fprintf(w, "%-20s%-10s%-20s%-20s%-20s\n", "symbol", "type", "hexdecimal", "unsigned decimal", "signed decimal")
	fmt.Fprintln(w, tableRule)
	for _, sym := range t.symbols {
		fmt.Fprintf(w, "%-20s%-10s%-20s%-20d%-20d\n", sym.Name, sym.Kind, utils.FormatCHex(sym.Value, 0), sym.Value, int32(sym.Value))
	}
	fmt.Fprintln(w, tableRule)
}
