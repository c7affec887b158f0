package sdb

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Manu343726/rvsdb/pkg/hw/cpu/debugger"
	"github.com/Manu343726/rvsdb/pkg/hw/cpu/interpreter"
)

var (
	runBatch      bool
	runSymbolFile string
)

var runCmd = &cobra.Command{
	Use:   "run [image]",
	Short: "Run an image under the monitor",
	Long: `Loads an RV32 image into the reference machine and starts the monitor.

The image may be an ELF executable, whose function and object symbols are
loaded too, or a raw binary loaded at the memory base. Without an image a small
builtin program is run.

Monitor commands:
  help [cmd]         - Display information about all supported commands
  c                  - Continue the execution of the program
  q                  - Exit rvsdb
  si [N]             - Single step N instructions (default: 1)
  info r|w|s         - Show registers, watch points or the symbol table
  x N EXPR           - Print N words of memory starting at EXPR
  p EXPR             - Evaluate EXPR
  w EXPR             - Stop when the value of EXPR changes
  d N                - Delete watch point N
  bt                 - Show the function call stack
  trace <m|e|d|f|i> [clear] - Show or clear a trace
  trace clear        - Clear every trace
  trace save FILE    - Save the session to a YAML file

In batch mode the program runs to completion and the exit status reports
whether it hit the good trap. When stdin is not a terminal the monitor reads
commands from it, one per line.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMonitor,
}

func init() {
	SdbCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVarP(&runBatch, "batch", "b", false, "Run the program to completion without the monitor")
	runCmd.Flags().StringVarP(&runSymbolFile, "symbols", "s", "", "ELF file to read symbols from, for raw images")
}

// =============================================================================
// Main monitor entry point
// =============================================================================

func runMonitor(cmd *cobra.Command, args []string) error {
	image := ""
	if len(args) > 0 {
		image = args[0]
	}

	env, err := loadEnvironment(os.Stderr)
	if err != nil {
		return err
	}
	defer closeEnvironment(env)

	backend, err := env.newBackend(image, runSymbolFile, os.Stdout)
	if err != nil {
		return err
	}

	// Set up signal handler for Ctrl+C interrupt during execution
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGINT)
	defer signal.Stop(sigChan)

	go func() {
		for range sigChan {
			backend.Interrupt()
		}
	}()

	ui := &cliUI{out: os.Stdout}
	controller := debugger.NewController(backend, ui)

	if runBatch {
		return runToCompletion(controller)
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		runScript(controller, os.Stdin)
		return nil
	}

	runInteractive(controller)
	return nil
}

// runToCompletion continues the program once and reports a bad exit as an error
func runToCompletion(c *debugger.Controller) error {
	c.Execute("c")

	runner := c.Backend().Runner()
	pc, ret := runner.HaltInfo()
	if runner.State() == interpreter.StateEnd && ret == 0 {
		return nil
	}
	return fmt.Errorf("%w (a0 = %d at pc = 0x%08x)", errBadTrap, ret, pc)
}

// runScript executes the commands read from r until it is exhausted or the user quits
func runScript(c *debugger.Controller, r io.Reader) {
	scanner := bufio.NewScanner(r)
	for c.IsRunning() && scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			input = c.LastCommand()
		}
		if input == "" {
			continue
		}
		c.SetLastCommand(input)
		c.Execute(input)
	}
	if err := scanner.Err(); err != nil {
		colorError.Fprintf(c.UI().Output(), "Error reading input: %v\n", err)
	}
}

func runInteractive(c *debugger.Controller) {
	line := liner.NewLiner()
	defer line.Close()

	// Ctrl+C interrupts the machine, not the prompt
	line.SetCtrlCAborts(false)
	line.SetMultiLineMode(false)
	line.SetCompleter(completeCommand)

	historyFile := getHistoryFilePath()
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}

	colorSuccess.Println("Welcome to rvsdb!")
	fmt.Println("Type 'help' for available commands.")

	for c.IsRunning() {
		input, err := line.Prompt("(rvsdb) ")
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Println()
				break
			}
			if errors.Is(err, liner.ErrPromptAborted) {
				fmt.Println()
				colorWarning.Println("Use 'q' to leave the debugger.")
				continue
			}
			colorError.Printf("Error reading input: %v\n", err)
			break
		}

		input = strings.TrimSpace(input)
		if input == "" {
			input = c.LastCommand()
		}
		if input == "" {
			continue
		}
		if input != c.LastCommand() {
			line.AppendHistory(input)
		}
		c.SetLastCommand(input)
		c.Execute(input)
	}

	if f, err := os.Create(historyFile); err == nil {
		line.WriteHistory(f)
		f.Close()
	}
}

// completeCommand completes the command name being typed
func completeCommand(input string) []string {
	var completions []string
	for _, name := range debugger.CommandNames() {
		if strings.HasPrefix(name, strings.ToLower(input)) {
			completions = append(completions, name)
		}
	}
	return completions
}

// getHistoryFilePath returns the path to the debugger history file
func getHistoryFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".rvsdb_history"
	}
	return filepath.Join(homeDir, ".rvsdb_history")
}
