package debugger

import (
	"errors"
	"fmt"

	"github.com/Manu343726/rvsdb/pkg/hw/cpu/symtab"
)

var (
	// ErrParse is returned when an expression cannot be tokenized
	ErrParse = errors.New("parse error")
	// ErrEval is returned when a tokenized expression cannot be evaluated
	ErrEval = errors.New("evaluation error")
	// ErrDivisionByZero is an ErrEval raised by / and % with a zero divisor
	ErrDivisionByZero = fmt.Errorf("%w: division by zero", ErrEval)
	// ErrPoolExhausted is returned when every watchpoint is in use
	ErrPoolExhausted = errors.New("no free watch points")
	// ErrNotFound is returned when deleting an unknown watchpoint
	ErrNotFound = errors.New("watch point not found")
	// ErrSymbolTableFull is returned when loading more symbols than the table holds
	ErrSymbolTableFull = symtab.ErrTableFull
	// ErrUsage is returned by commands invoked with bad arguments
	ErrUsage = errors.New("usage")
)

func makeError(err error, message string, args ...any) error {
	return fmt.Errorf("%w: "+message, append([]any{err}, args...)...)
}
