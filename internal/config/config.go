// Package config loads and validates the node's YAML configuration
// file. Callers load first and validate before starting the node.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level node configuration.
type Config struct {
	Node      NodeConfig      `yaml:"node"`
	Ring      RingConfig      `yaml:"ring"`
	Bootstrap BootstrapConfig `yaml:"bootstrap"`
	Logger    LoggerConfig    `yaml:"logger"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type NodeConfig struct {
	Bind string `yaml:"bind"`
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// ID overrides the hash-derived identifier, hex-encoded. Rarely
	// used outside of tests that need deterministic ring positions.
	ID string `yaml:"id"`
}

type RingConfig struct {
	// IDBits is M, the width of the identifier space in bits.
	IDBits int `yaml:"id_bits"`
	// StabilizationInterval is how often stabilize()+fix_fingers()
	// run on this node.
	StabilizationInterval time.Duration `yaml:"stabilization_interval"`
	// RPCTimeout bounds every outbound routing RPC. Recommended 2x
	// StabilizationInterval per the core's error-handling contract.
	RPCTimeout time.Duration `yaml:"rpc_timeout"`
}

type BootstrapConfig struct {
	// Mode is "static" or "route53".
	Mode    string        `yaml:"mode"`
	Peers   []string      `yaml:"peers"`
	Route53 Route53Config `yaml:"route53"`
}

type Route53Config struct {
	HostedZoneID string `yaml:"hosted_zone_id"`
	RecordName   string `yaml:"record_name"`
	TTLSeconds   int64  `yaml:"ttl_seconds"`
}

type LoggerConfig struct {
	Active     bool   `yaml:"active"`
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type TelemetryConfig struct {
	Tracing TracingConfig `yaml:"tracing"`
}

type TracingConfig struct {
	Enabled      bool   `yaml:"enabled"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

// Default returns the configuration applied when no file overrides a
// field; Load starts from this before unmarshalling the file on top.
func Default() Config {
	return Config{
		Node: NodeConfig{Bind: ":4000", Port: 4000},
		Ring: RingConfig{
			IDBits:                256,
			StabilizationInterval: time.Second,
			RPCTimeout:            2 * time.Second,
		},
		Bootstrap: BootstrapConfig{Mode: "static"},
		Logger:    LoggerConfig{Active: true, Level: "info", Format: "json"},
	}
}

// Load reads and parses the YAML configuration file at path, applying
// it on top of Default().
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects configurations the node cannot safely start with.
func (c Config) Validate() error {
	if c.Ring.IDBits <= 0 {
		return fmt.Errorf("config: ring.id_bits must be > 0, got %d", c.Ring.IDBits)
	}
	if c.Ring.StabilizationInterval <= 0 {
		return fmt.Errorf("config: ring.stabilization_interval must be > 0")
	}
	if c.Ring.RPCTimeout <= 0 {
		return fmt.Errorf("config: ring.rpc_timeout must be > 0")
	}
	if c.Node.Port <= 0 || c.Node.Port > 65535 {
		return fmt.Errorf("config: node.port %d out of range", c.Node.Port)
	}
	switch c.Bootstrap.Mode {
	case "static":
		// zero peers is valid: this node becomes the first ring member
	case "route53":
		if c.Bootstrap.Route53.HostedZoneID == "" {
			return fmt.Errorf("config: bootstrap.route53.hosted_zone_id required in route53 mode")
		}
	default:
		return fmt.Errorf("config: unsupported bootstrap.mode %q", c.Bootstrap.Mode)
	}
	return nil
}
