package sdb

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Manu343726/rvsdb/pkg/config"
	"github.com/Manu343726/rvsdb/pkg/hw/cpu/debugger"
	"github.com/Manu343726/rvsdb/pkg/utils"
)

// SdbCmd groups the simple debugger commands
var SdbCmd = &cobra.Command{
	Use:   "sdb",
	Short: "Simple debugger for the RV32 reference machine",
}

// errBadTrap is returned by batch runs whose program did not hit the good trap
var errBadTrap = errors.New("program did not exit with a good trap")

// environment is the configuration and logger shared by the sdb commands
type environment struct {
	cfg    *config.Config
	logger *slog.Logger
	close  func() error
}

// loadEnvironment decodes the global viper settings and builds the logger
func loadEnvironment(console io.Writer) (*environment, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	logger, closeFn, err := utils.NewLogger(utils.LoggerOptions{
		Level:   cfg.Log.Level,
		Console: console,
		File:    cfg.Log.File,
	})
	if err != nil {
		return nil, err
	}

	return &environment{cfg: cfg, logger: logger, close: closeFn}, nil
}

// newBackend creates a machine with the image at path loaded. An empty path loads the builtin image.
func (env *environment) newBackend(path string, symbolFile string, serial io.Writer) (*debugger.Backend, error) {
	backend, err := debugger.NewBackend(debugger.BackendOptions{
		Config: env.cfg,
		Logger: env.logger,
		Serial: serial,
	})
	if err != nil {
		return nil, err
	}

	if _, err := backend.LoadProgram(path, symbolFile); err != nil {
		return nil, fmt.Errorf("error loading program: %w", err)
	}

	return backend, nil
}

func closeEnvironment(env *environment) {
	if err := env.close(); err != nil {
		fmt.Fprintf(os.Stderr, "error closing log file: %v\n", err)
	}
}
