package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadFile loads configuration values from a .conf file. A missing file
// yields no values.
// Format: key = value (one per line, # for comments)
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse key = value
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		values[key] = value
	}

	return values, scanner.Err()
}

// ApplyFileConfig applies file configuration to a Config struct.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	for key, value := range values {
		if err := setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

// setConfigValue sets a config value by key.
func setConfigValue(cfg *Config, key, value string) error {
	switch key {
	// Core
	case "network":
		cfg.Network = value
	case "datadir":
		cfg.DataDir = value
	case "storage":
		cfg.Storage = StorageBackend(strings.ToLower(value))

	// Logging
	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	case "log.json":
		cfg.Log.JSON = parseBool(value)

	// Vault
	case "vault.kdf":
		cfg.Vault.KDF = value
	case "vault.iterations":
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return err
		}
		cfg.Vault.Iterations = uint32(n)
	case "vault.argon_memory":
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return err
		}
		cfg.Vault.ArgonMemory = uint32(n)
	case "vault.argon_threads":
		n, err := strconv.ParseUint(value, 10, 8)
		if err != nil {
			return err
		}
		cfg.Vault.ArgonThreads = uint8(n)

	// TRON
	case "tron.endpoint":
		cfg.Tron.Endpoint = value
	case "tron.apikey":
		cfg.Tron.APIKey = value

	// Explorers
	case "explorer.apikeys":
		keys, err := parseKeyList(value)
		if err != nil {
			return err
		}
		cfg.Explorer.APIKeys = keys
	case "explorer.timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		cfg.Explorer.Timeout = d
	case "explorer.pagesize":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Explorer.PageSize = n

	// Refresh
	case "refresh.interval":
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		cfg.Refresh.Interval = d

	// RPC
	case "rpc":
		cfg.RPC.Enabled = parseBool(value)
	case "rpc.addr":
		cfg.RPC.Addr = value
	case "rpc.port":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.RPC.Port = n
	case "rpc.allowed":
		cfg.RPC.AllowedIPs = parseStringList(value)
	case "rpc.cors":
		cfg.RPC.CORSOrigins = parseStringList(value)

	default:
		// Unknown keys are ignored
	}
	return nil
}

// parseBool parses a boolean value.
func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// parseStringList parses a comma-separated list.
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// parseKeyList parses "id:key,id:key" into a map.
func parseKeyList(s string) (map[string]string, error) {
	out := make(map[string]string)
	for _, item := range parseStringList(s) {
		id, key, ok := strings.Cut(item, ":")
		id, key = strings.TrimSpace(id), strings.TrimSpace(key)
		if !ok || id == "" || key == "" {
			return nil, fmt.Errorf("expected network:key, got %q", item)
		}
		out[id] = key
	}
	return out, nil
}

// WriteDefaultConfig writes a default configuration file.
func WriteDefaultConfig(path string) error {
	content := `# Nova Wallet Configuration
#
# Environment variables (NOVA_*) override values in this file.

# Network selected when none was saved (ethereum, bsc, polygon, tron, ...)
network = ethereum

# Data directory (default: ~/.nova-wallet)
# datadir = ~/.nova-wallet

# Storage backend: badger or memory
storage = badger

# ============================================================================
# Vault
# ============================================================================

# Key derivation for new vaults: pbkdf2-sha256 or argon2id
vault.kdf = pbkdf2-sha256
vault.iterations = 210000
# vault.argon_memory = 65536
# vault.argon_threads = 4

# ============================================================================
# TRON
# ============================================================================

# tron.endpoint = https://api.trongrid.io
# tron.apikey =

# ============================================================================
# Transaction history
# ============================================================================

# Explorer API keys (comma-separated network:key pairs)
# explorer.apikeys = ethereum:YOUR_KEY,bsc:YOUR_KEY
explorer.timeout = 10s
explorer.pagesize = 50

# ============================================================================
# Refresh
# ============================================================================

refresh.interval = 30s

# ============================================================================
# RPC
# ============================================================================

# Local JSON-RPC server for wallet front ends
rpc = true
rpc.addr = 127.0.0.1
rpc.port = 8547
# rpc.allowed = 127.0.0.1
# rpc.cors = http://localhost:5173

# ============================================================================
# Logging
# ============================================================================

log.level = info
# log.file =
log.json = false
`
	return os.WriteFile(path, []byte(content), 0600)
}
