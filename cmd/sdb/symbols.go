package sdb

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Manu343726/rvsdb/pkg/hw/cpu/symtab"
)

var symbolsYAML bool

var symbolsCmd = &cobra.Command{
	Use:   "symbols <elf>",
	Short: "Dump the function and object symbols of an ELF file",
	Long: `Reads the STT_FUNC and STT_OBJECT symbols of a 32 bit ELF file, the same
symbols the monitor resolves in expressions, and prints them as a table or as YAML.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnvironment(os.Stderr)
		if err != nil {
			return err
		}
		defer closeEnvironment(env)

		table := symtab.New(env.cfg.Symbols.Capacity)
		n, err := symtab.LoadELFFile(args[0], table)
		if err != nil {
			if n == 0 {
				return err
			}
			env.logger.Warn("symbol table truncated", "loaded", n, "error", err)
		}

		if !symbolsYAML {
			table.Display(cmd.OutOrStdout())
			return nil
		}

		encoder := yaml.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent(2)
		if err := encoder.Encode(table.Symbols()); err != nil {
			return fmt.Errorf("cannot encode symbols: %w", err)
		}
		return encoder.Close()
	},
}

func init() {
	SdbCmd.AddCommand(symbolsCmd)
	symbolsCmd.Flags().BoolVar(&symbolsYAML, "yaml", false, "Print the symbols as YAML")
}
