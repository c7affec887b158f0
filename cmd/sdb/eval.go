package sdb

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Manu343726/rvsdb/pkg/utils"
)

var (
	evalImage  string
	evalBinary bool
)

var evalCmd = &cobra.Command{
	Use:   "eval <expr>",
	Short: "Evaluate an expression over a freshly loaded machine",
	Long: `Loads an image (the builtin one unless --elf is given) and evaluates the
expression over the initial machine state, without running the program.

Example:
  rvsdb sdb eval '$pc + 4'
  rvsdb sdb eval --elf program.elf 'main + 0x10'`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		expr := strings.Join(args, " ")

		env, err := loadEnvironment(os.Stderr)
		if err != nil {
			return err
		}
		defer closeEnvironment(env)

		backend, err := env.newBackend(evalImage, "", nil)
		if err != nil {
			return err
		}

		value, err := backend.Evaluate(expr)
		if err != nil {
			return fmt.Errorf("invalid expression %s: %w", expr, err)
		}

		ui := &cliUI{out: cmd.OutOrStdout()}
		ui.ShowEvalResult(expr, value)
		if evalBinary {
			showBinary(cmd.OutOrStdout(), value)
		}
		return nil
	},
}

func init() {
	SdbCmd.AddCommand(evalCmd)
	evalCmd.Flags().StringVar(&evalImage, "elf", "", "ELF image providing memory contents and symbols")
	evalCmd.Flags().BoolVar(&evalBinary, "binary", false, "Also print the value in binary, one group per byte")
}

func showBinary(w io.Writer, value uint32) {
	fmt.Fprintf(w, "Binary: %s\n", colorHex.Sprint(utils.FormatBinary(value)))
}
