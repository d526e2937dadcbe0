// Package config provides the thresholds and lookup tables used by the
// analysis passes, loaded from YAML.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"sbfre/internal/analysis"
	"sbfre/internal/pubkey"
)

//go:embed defaults.yaml
var defaultsYAML []byte

var ErrInvalid = errors.New("config: invalid")

// Config is the on-disk configuration. Addresses are hex strings so the
// tables read the way they appear in a disassembly.
type Config struct {
	EntryAddr        uint64 `yaml:"entry_addr" env:"SBFRE_ENTRY_ADDR"`
	SyscallThreshold uint64 `yaml:"syscall_threshold" env:"SBFRE_SYSCALL_THRESHOLD"`
	// DispatchWindow is the number of leading instructions scanned for
	// dispatch compares; 0 scans the whole listing.
	DispatchWindow int    `yaml:"dispatch_window" env:"SBFRE_DISPATCH_WINDOW"`
	StringSection  string `yaml:"string_section" env:"SBFRE_STRING_SECTION"`
	StringMinLen   int    `yaml:"string_min_len" env:"SBFRE_STRING_MIN_LEN"`
	StringMaxScan  int    `yaml:"string_max_scan" env:"SBFRE_STRING_MAX_SCAN"`
	KeySection     string `yaml:"key_section" env:"SBFRE_KEY_SECTION"`

	Syscalls map[string]string `yaml:"syscalls"`
	KeyAddrs []string          `yaml:"key_addrs" env:"SBFRE_KEY_ADDRS"`
	Programs map[string]string `yaml:"programs"`
}

// Default returns the built-in configuration. Every call returns fresh maps.
func Default() *Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return &cfg
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides. Table entries from the file are merged into the
// built-in tables; key_addrs replaces the built-in list. An empty path
// yields the defaults plus environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		//nolint:gosec // G304: path is supplied by the user on purpose.
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := LoadFromEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every address and table entry.
func (c *Config) Validate() error {
	var errs []error
	if c.DispatchWindow < 0 {
		errs = append(errs, fmt.Errorf("dispatch_window %d is negative", c.DispatchWindow))
	}
	if c.StringSection == "" {
		errs = append(errs, errors.New("string_section is empty"))
	}
	if c.KeySection == "" {
		errs = append(errs, errors.New("key_section is empty"))
	}
	if c.StringMaxScan <= 0 {
		errs = append(errs, fmt.Errorf("string_max_scan %d must be positive", c.StringMaxScan))
	}
	if c.StringMinLen < 0 {
		errs = append(errs, fmt.Errorf("string_min_len %d is negative", c.StringMinLen))
	}
	for k := range c.Syscalls {
		if _, err := ParseAddr(k); err != nil {
			errs = append(errs, fmt.Errorf("syscalls: %w", err))
		}
	}
	for _, a := range c.KeyAddrs {
		if _, err := ParseAddr(a); err != nil {
			errs = append(errs, fmt.Errorf("key_addrs: %w", err))
		}
	}
	if err := pubkey.Labels(c.Programs).Validate(); err != nil {
		errs = append(errs, fmt.Errorf("programs: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// ParseAddr parses a "0x"-prefixed hex address.
func ParseAddr(s string) (uint64, error) {
	h, ok := strings.CutPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	if !ok || h == "" {
		return 0, fmt.Errorf("address %q: want 0x-prefixed hex", s)
	}
	v, err := strconv.ParseUint(h, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("address %q: %w", s, err)
	}
	return v, nil
}

// AnalysisOptions converts the config to analysis options. Call Validate
// first; malformed syscall addresses are skipped.
func (c *Config) AnalysisOptions() analysis.Options {
	opts := analysis.Options{
		EntryAddr:        c.EntryAddr,
		SyscallThreshold: c.SyscallThreshold,
		DispatchWindow:   c.DispatchWindow,
		StringSection:    c.StringSection,
		StringMinLen:     c.StringMinLen,
		StringMaxScan:    c.StringMaxScan,
		Syscalls:         make(map[uint64]string, len(c.Syscalls)),
	}
	for k, name := range c.Syscalls {
		if addr, err := ParseAddr(k); err == nil {
			opts.Syscalls[addr] = name
		}
	}
	return opts
}

// KeyAddresses returns the key addresses in file order.
func (c *Config) KeyAddresses() ([]uint64, error) {
	out := make([]uint64, 0, len(c.KeyAddrs))
	for _, a := range c.KeyAddrs {
		v, err := ParseAddr(a)
		if err != nil {
			return nil, fmt.Errorf("%w: key_addrs: %w", ErrInvalid, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// ProgramLabels returns the program label table.
func (c *Config) ProgramLabels() pubkey.Labels {
	return pubkey.Labels(c.Programs)
}
