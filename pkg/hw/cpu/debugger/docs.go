package debugger

import (
	"fmt"
	"strings"
)

// operatorDocs groups the binary operators by precedence level, loosest first
var operatorDocs = [][]TokenType{
	{TokenLogicOr},
	{TokenLogicAnd},
	{TokenEq, TokenNotEq, TokenGreater, TokenLess, TokenGreaterEq, TokenLessEq},
	{TokenShiftLeft, TokenShiftRight},
	{TokenPlus, TokenMinus},
	{TokenMul, TokenDiv, TokenMod},
	{TokenXor},
	{TokenOr},
	{TokenAnd},
}

// CommandsDocString returns the reference of the monitor commands
func CommandsDocString() string {
	var b strings.Builder

	b.WriteString("# Monitor commands\n\n")
	b.WriteString("An empty line repeats the last command.\n\n")
	for _, cmd := range commandHelp() {
		fmt.Fprintf(&b, "## %s\n\n    %s\n\n%s\n\n", cmd.Name, cmd.Usage, cmd.Description)
	}

	return strings.TrimRight(b.String(), "\n")
}

// ExpressionsDocString returns the reference of the expression language
func ExpressionsDocString() string {
	var b strings.Builder

	b.WriteString("# Expressions\n\n")
	b.WriteString("All arithmetic is unsigned 32 bit and wraps around. Comparisons and\n")
	b.WriteString("logical operators yield 0 or 1. Shift amounts use their low 5 bits.\n\n")

	b.WriteString("## Operands\n\n")
	b.WriteString("    123, 0x7b     decimal and hexadecimal literals\n")
	b.WriteString("    $pc, $a0      registers, by ABI name, xN or CSR name\n")
	b.WriteString("    main          function and object symbols of the loaded image\n\n")

	b.WriteString("## Unary operators\n\n")
	b.WriteString("    -x   negation\n")
	b.WriteString("    *x   4 byte memory read at address x\n")
	b.WriteString("    !x   logical not\n")
	b.WriteString("    ~x   bitwise not\n\n")
	b.WriteString("A '-' or '*' is binary only after a literal, a register or ')'.\n\n")

	b.WriteString("## Binary operators, loosest first\n\n")
	for _, level := range operatorDocs {
		names := make([]string, 0, len(level))
		for _, op := range level {
			names = append(names, op.String())
		}
		fmt.Fprintf(&b, "    %d  %s\n", precedence(level[0]), strings.Join(names, " "))
	}
	b.WriteString("\nOperators of the same precedence associate to the left.\n")
	fmt.Fprintf(&b, "Expressions are limited to %d tokens of less than %d characters each.", MaxTokens, MaxTokenLen)

	return b.String()
}
