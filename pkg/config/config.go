// Package config loads rvsdb settings through viper.
//
// Settings come from (lowest to highest priority) built-in defaults, the
// YAML config file and RVSDB_* environment variables, e.g.
// RVSDB_WATCHPOINTS_CAPACITY=64.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// MemoryConfig describes the physical memory of the reference machine
type MemoryConfig struct {
	Base uint32 `mapstructure:"base"`
	Size uint32 `mapstructure:"size"`
}

// WatchpointsConfig configures the watchpoint pool
type WatchpointsConfig struct {
	Capacity int `mapstructure:"capacity"`
}

// SymbolsConfig configures the symbol table
type SymbolsConfig struct {
	Capacity int `mapstructure:"capacity"`
}

// TraceConfig enables trace recorders and sizes the bounded ones
type TraceConfig struct {
	MTrace         bool `mapstructure:"mtrace"`
	ETrace         bool `mapstructure:"etrace"`
	DTrace         bool `mapstructure:"dtrace"`
	FTrace         bool `mapstructure:"ftrace"`
	IRingBuf       bool `mapstructure:"iringbuf"`
	RingSize       int  `mapstructure:"ringsize"`
	CallStackDepth int  `mapstructure:"callstackdepth"`
}

// LogConfig configures the process logger
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// Config is the complete rvsdb configuration
type Config struct {
	Memory      MemoryConfig      `mapstructure:"memory"`
	Watchpoints WatchpointsConfig `mapstructure:"watchpoints"`
	Symbols     SymbolsConfig     `mapstructure:"symbols"`
	Trace       TraceConfig       `mapstructure:"trace"`
	Log         LogConfig         `mapstructure:"log"`
}

// Default values
const (
	DefaultMemoryBase         uint32 = 0x80000000
	DefaultMemorySize         uint32 = 0x8000000
	DefaultWatchpoints               = 32
	DefaultSymbols                   = 128
	DefaultRingSize                  = 10
	DefaultCallStackDepth            = 256
	EnvPrefix                        = "RVSDB"
	ConfigName                       = ".rvsdb"
	DefaultLogLevel                  = "info"
)

// SetDefaults registers every default value in v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("memory.base", DefaultMemoryBase)
	v.SetDefault("memory.size", DefaultMemorySize)
	v.SetDefault("watchpoints.capacity", DefaultWatchpoints)
	v.SetDefault("symbols.capacity", DefaultSymbols)
	v.SetDefault("trace.mtrace", true)
	v.SetDefault("trace.etrace", true)
	v.SetDefault("trace.dtrace", true)
	v.SetDefault("trace.ftrace", true)
	v.SetDefault("trace.iringbuf", true)
	v.SetDefault("trace.ringsize", DefaultRingSize)
	v.SetDefault("trace.callstackdepth", DefaultCallStackDepth)
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.file", "")
}

// BindEnv makes every key overridable from RVSDB_<SECTION>_<KEY> variables
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Default returns the built-in configuration
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := Load(v)
	if err != nil {
		// defaults are always valid
		panic(err)
	}
	return cfg
}

// Load decodes and validates the configuration held by v
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("cannot decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that every bounded resource has a usable capacity
func (c *Config) Validate() error {
	if c.Memory.Size == 0 {
		return fmt.Errorf("memory.size must be greater than zero")
	}
	if uint64(c.Memory.Base)+uint64(c.Memory.Size) > 1<<32 {
		return fmt.Errorf("memory [0x%08x, +0x%x) does not fit in a 32 bit address space", c.Memory.Base, c.Memory.Size)
	}
	if c.Watchpoints.Capacity <= 0 {
		return fmt.Errorf("watchpoints.capacity must be greater than zero")
	}
	if c.Symbols.Capacity <= 0 {
		return fmt.Errorf("symbols.capacity must be greater than zero")
	}
	if c.Trace.RingSize <= 0 {
		return fmt.Errorf("trace.ringsize must be greater than zero")
	}
	if c.Trace.CallStackDepth <= 0 {
		return fmt.Errorf("trace.callstackdepth must be greater than zero")
	}
	return nil
}
