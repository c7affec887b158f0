package sdb

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/Manu343726/rvsdb/pkg/hw/cpu/debugger"
	"github.com/Manu343726/rvsdb/pkg/utils"
)

// =============================================================================
// Color definitions for CLI output
// =============================================================================

var (
	colorAddr    = color.New(color.FgCyan)
	colorInstr   = color.New(color.FgYellow)
	colorValue   = color.New(color.FgWhite, color.Bold)
	colorHex     = color.New(color.FgMagenta)
	colorError   = color.New(color.FgRed, color.Bold)
	colorSuccess = color.New(color.FgGreen)
	colorWarning = color.New(color.FgYellow)
	colorHeader  = color.New(color.FgWhite, color.Bold, color.Underline)
	colorHiBlack = color.New(color.FgHiBlack)
)

// =============================================================================
// CLI UI Implementation - Implements debugger.DebuggerUI
// =============================================================================

// cliUI implements the debugger.DebuggerUI interface for terminal output
type cliUI struct {
	out io.Writer
}

// Ensure cliUI implements DebuggerUI
var _ debugger.DebuggerUI = (*cliUI)(nil)

// ShowMessage displays a message with appropriate color based on level
func (ui *cliUI) ShowMessage(level debugger.MessageLevel, format string, args ...any) {
	message := fmt.Sprintf(format, args...)
	switch level {
	case debugger.LevelError:
		colorError.Fprintln(ui.out, message)
	case debugger.LevelWarning:
		colorWarning.Fprintln(ui.out, message)
	case debugger.LevelSuccess:
		colorSuccess.Fprintln(ui.out, message)
	case debugger.LevelDebug:
		colorHiBlack.Fprintln(ui.out, message)
	default:
		fmt.Fprintln(ui.out, message)
	}
}

// Output returns the terminal writer
func (ui *cliUI) Output() io.Writer {
	return ui.out
}

// ShowEvalResult displays a value as hexadecimal, unsigned and signed
func (ui *cliUI) ShowEvalResult(expr string, value uint32) {
	colorSuccess.Fprintf(ui.out, "Valid Expr: %s\n", expr)
	fmt.Fprintf(ui.out, "Value:  %s\n", colorHeader.Sprintf("%-20s%-20s%-20s", "hex", "unsigned", "signed"))
	fmt.Fprintf(ui.out, "        %s%s%s\n",
		colorHex.Sprintf("%-20s", utils.FormatCHex(value, 0)),
		colorValue.Sprintf("%-20d", value),
		colorValue.Sprintf("%-20d", int32(value)))
}

// ShowMemory displays one word per line, prefixed by its address
func (ui *cliUI) ShowMemory(addr uint32, words []uint32) {
	for i, word := range words {
		fmt.Fprintf(ui.out, "%s: %s\n",
			colorAddr.Sprint(utils.FormatCHex(addr+uint32(4*i), 10)),
			colorHex.Sprint(utils.FormatCHex(word, 10)))
	}
}

// ShowHelp displays help information
func (ui *cliUI) ShowHelp(commands []debugger.CommandHelp) {
	for _, cmd := range commands {
		fmt.Fprintf(ui.out, "%s - %s\n", colorInstr.Sprint(cmd.Name), cmd.Description)
	}
	fmt.Fprintln(ui.out, "Press Enter to repeat the last command.")
}
