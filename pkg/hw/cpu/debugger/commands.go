package debugger

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/Manu343726/rvsdb/pkg/utils"
)

// MaxExamineWords is the largest word count accepted by x: the whole 32 bit address space
const MaxExamineWords = 1 << 30

// Usage messages of the monitor commands
const (
	UsageSi    = "Usage: si [N (N > 0)]"
	UsageInfo  = "Usage: info r -> register\n       info w -> watch points\n       info s -> symbol table"
	UsageX     = "Usage: x N Expr (eg. x 10 $sp, N > 0)"
	UsageP     = "Usage: p Expr"
	UsageW     = "Usage: w Expr"
	UsageD     = "Usage: d N"
	UsageTrace = "Usage: trace <m|e|d|f|i> [clear]\n       trace clear\n       trace save FILE"
)

// commandHelp returns the monitor commands in display order
func commandHelp() []CommandHelp {
	return []CommandHelp{
		{Name: "help", Description: "Display information about all supported commands", Usage: "help [cmd]"},
		{Name: "c", Description: "Continue the execution of the program", Usage: "c"},
		{Name: "q", Description: "Exit rvsdb", Usage: "q"},
		{Name: "si", Description: "Single step forward for N(1 by default) instruction", Usage: "si [N]"},
		{Name: "info", Description: "Display information of registers(r) or watch points(w) or symbol tables(s)", Usage: "info r|w|s"},
		{Name: "x", Description: "Print N words of memory started from Expr", Usage: "x N Expr"},
		{Name: "p", Description: "Evaluate the given expression Expr", Usage: "p Expr"},
		{Name: "w", Description: "Set a watch point for Expr", Usage: "w Expr"},
		{Name: "d", Description: "Delete the watch point numbered by N", Usage: "d N"},
		{Name: "bt", Description: "Display function call stack", Usage: "bt"},
		{Name: "trace", Description: "Display or clear the memory(m), exception(e), device(d), function(f) or instruction(i) trace, or save the session", Usage: "trace <m|e|d|f|i> [clear] | trace save FILE"},
	}
}

// CommandNames returns the names of the monitor commands, for completion
func CommandNames() []string {
	cmds := commandHelp()
	names := make([]string, 0, len(cmds))
	for _, cmd := range cmds {
		names = append(names, cmd.Name)
	}
	return names
}

func formatWatchValue(value uint32) string {
	return utils.FormatCHex(value, 8)
}

// parseCount parses an integer argument with C literal prefixes (0x, leading 0).
// Malformed numbers parse as 0.
func parseCount(arg string) int64 {
	n, err := strconv.ParseInt(arg, 0, 64)
	if err != nil {
		return 0
	}
	return n
}

// splitCommand splits line at its first run of whitespace
func splitCommand(line string) (head string, rest string) {
	i := strings.IndexFunc(line, unicode.IsSpace)
	if i < 0 {
		return line, ""
	}
	return line[:i], strings.TrimSpace(line[i:])
}

// Execute runs one monitor command line. It returns false once the user quits.
func (c *Controller) Execute(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return c.running
	}

	cmd, args := splitCommand(line)
	fields := strings.Fields(args)

	switch cmd {
	case "help":
		name := ""
		if len(fields) > 0 {
			name = fields[0]
		}
		c.CmdHelp(name)

	case "c":
		c.CmdContinue()

	case "q":
		c.CmdQuit()

	case "si":
		if len(fields) == 0 {
			c.CmdStep(1)
			break
		}
		if n := parseCount(fields[0]); n > 0 {
			c.CmdStep(int(n))
		} else {
			c.ui.ShowMessage(LevelError, UsageSi)
		}

	case "info":
		if len(fields) == 0 {
			c.ui.ShowMessage(LevelError, UsageInfo)
			break
		}
		switch fields[0][0] {
		case 'r':
			c.CmdInfoRegisters()
		case 'w':
			c.CmdInfoWatchpoints()
		case 's':
			c.CmdInfoSymbols()
		default:
			c.ui.ShowMessage(LevelError, UsageInfo)
		}

	case "x":
		count, expr := splitCommand(args)
		n := parseCount(count)
		if expr == "" || n <= 0 || n > MaxExamineWords {
			c.ui.ShowMessage(LevelError, UsageX)
			break
		}
		c.CmdMemory(int(n), expr)

	case "p":
		if args == "" {
			c.ui.ShowMessage(LevelError, UsageP)
			break
		}
		c.CmdPrint(args)

	case "w":
		if args == "" {
			c.ui.ShowMessage(LevelError, UsageW)
			break
		}
		c.CmdWatch(args)

	case "d":
		if len(fields) == 0 {
			c.ui.ShowMessage(LevelError, UsageD)
			break
		}
		c.CmdDelete(int(parseCount(fields[0])))

	case "bt":
		c.CmdBacktrace()

	case "trace":
		c.executeTrace(fields)

	default:
		c.ui.ShowMessage(LevelError, "Unknown command '%s'", cmd)
	}

	return c.running
}

func (c *Controller) executeTrace(fields []string) {
	if len(fields) == 0 {
		c.ui.ShowMessage(LevelError, UsageTrace)
		return
	}

	switch fields[0] {
	case "clear":
		c.CmdTraceClearAll()
		return
	case "save":
		if len(fields) != 2 {
			c.ui.ShowMessage(LevelError, UsageTrace)
			return
		}
		c.CmdTraceSave(fields[1])
		return
	}

	kind, ok := ParseTraceKind(fields[0])
	if !ok || len(fields) > 2 || (len(fields) == 2 && fields[1] != "clear") {
		c.ui.ShowMessage(LevelError, UsageTrace)
		return
	}
	c.CmdTrace(kind, len(fields) == 2)
}
