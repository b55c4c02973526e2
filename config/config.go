// Package config defines the process-wide Config for an rpowcli run:
// defaults, environment-variable seeding, and validation, in the shape of
// node.Config/node.ValidateConfig.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type Config struct {
	SignerAddr   string `json:"signer_addr"`
	DataDir      string `json:"data_dir"`
	WalletPath   string `json:"wallet_path"`
	KeyPath      string `json:"key_path"`
	LedgerPath   string `json:"ledger_path"`
	LogLevel     string `json:"log_level"`
	AnonPeriod   int64  `json:"anon_period_seconds"`
	MaxSwapFanIn int    `json:"max_swap_fan_in"`
}

var allowedLogLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

// DefaultDataDir returns ~/.rpow, falling back to a relative path if the
// home directory cannot be resolved.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".rpow"
	}
	return filepath.Join(home, ".rpow")
}

// DefaultConfig returns the baseline configuration before environment or
// flag overrides are layered on.
func DefaultConfig() Config {
	dataDir := DefaultDataDir()
	return Config{
		SignerAddr:   "",
		DataDir:      dataDir,
		WalletPath:   filepath.Join(dataDir, "wallet.dat"),
		KeyPath:      filepath.Join(dataDir, "key.json"),
		LedgerPath:   filepath.Join(dataDir, "ledger.db"),
		LogLevel:     "info",
		AnonPeriod:   0,
		MaxSwapFanIn: 8,
	}
}

// ApplyEnv layers RPOW_DATADIR, RPOW_SIGNER_ADDR, and RPOW_LOG_LEVEL onto
// cfg when set, re-deriving the datadir-relative paths if DataDir changes.
// Flags applied after ApplyEnv take precedence, matching the layered
// Default -> env -> flag precedence.
func ApplyEnv(cfg Config) Config {
	if v := os.Getenv("RPOW_DATADIR"); v != "" {
		cfg.DataDir = v
		cfg = cfg.WithDerivedPaths()
	}
	if v := os.Getenv("RPOW_SIGNER_ADDR"); v != "" {
		cfg.SignerAddr = v
	}
	if v := os.Getenv("RPOW_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	return cfg
}

// WithDerivedPaths recomputes WalletPath, KeyPath, and LedgerPath from
// DataDir. Callers apply this after any flag or env override that may have
// changed DataDir, so the three stay datadir-relative regardless of which
// layer (default, env, flag) last touched it.
func (c Config) WithDerivedPaths() Config {
	c.WalletPath = filepath.Join(c.DataDir, "wallet.dat")
	c.KeyPath = filepath.Join(c.DataDir, "key.json")
	c.LedgerPath = filepath.Join(c.DataDir, "ledger.db")
	return c
}

// ValidateConfig rejects an empty signer address, a non-positive
// MaxSwapFanIn, or an unrecognized LogLevel.
func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.SignerAddr) == "" {
		return errors.New("signer_addr is required")
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return errors.New("data_dir is required")
	}
	if cfg.MaxSwapFanIn <= 0 {
		return fmt.Errorf("max_swap_fan_in must be positive, got %d", cfg.MaxSwapFanIn)
	}
	if _, ok := allowedLogLevels[cfg.LogLevel]; !ok {
		return fmt.Errorf("invalid log_level %q", cfg.LogLevel)
	}
	return nil
}
