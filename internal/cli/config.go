package cli

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	semver "github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/orizon-lang/arith/internal/errors"
	"github.com/orizon-lang/arith/internal/evaluator"
	"github.com/orizon-lang/arith/internal/parser"
)

// DefaultConfigNames are tried in order by FindConfig.
var DefaultConfigNames = []string{"arith.yaml", "arith.yml", "arith.json"}

// Config represents the configuration shared by every arith subcommand.
type Config struct {
	Verbose       bool         `json:"verbose" yaml:"verbose"`
	Debug         bool         `json:"debug" yaml:"debug"`
	Associativity string       `json:"associativity" yaml:"associativity"`
	Arithmetic    string       `json:"arithmetic" yaml:"arithmetic"`
	MaxDepth      int          `json:"max_depth,omitempty" yaml:"max_depth,omitempty"` // 0 means parser.DefaultMaxDepth
	Format        FormatConfig `json:"format" yaml:"format"`
	Server        ServerConfig `json:"server" yaml:"server"`
	// Requires is a semantic version constraint the running tool must
	// satisfy, e.g. ">= 0.3, < 1".
	Requires string `json:"requires,omitempty" yaml:"requires,omitempty"`

	ConfigFile string `json:"-" yaml:"-"`
}

// FormatConfig configures `arith fmt`.
type FormatConfig struct {
	SpaceAroundOperators bool `json:"space_around_operators" yaml:"space_around_operators"`
}

// ServerConfig configures `arith serve`. Without a certificate pair the
// server generates a self-signed one at startup.
type ServerConfig struct {
	Addr     string `json:"addr" yaml:"addr"`
	CertFile string `json:"cert_file,omitempty" yaml:"cert_file,omitempty"`
	KeyFile  string `json:"key_file,omitempty" yaml:"key_file,omitempty"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Associativity: "left",
		Arithmetic:    "checked",
		Format:        FormatConfig{SpaceAroundOperators: true},
		Server:        ServerConfig{Addr: "localhost:4433"},
	}
}

// LoadConfig loads configuration from file. The format follows the
// extension: .yaml and .yml are YAML, anything else is JSON. A missing
// file yields the defaults. The result is validated.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if configPath == "" {
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil // Default config if file doesn't exist
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	config.ConfigFile = configPath

	if err := decodeConfig(configPath, data, config); err != nil {
		return nil, errors.InvalidConfig("failed to parse config file %s: %v", configPath, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func decodeConfig(path string, data []byte, config *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(config); err != nil && !stderrors.Is(err, io.EOF) {
			return err
		}
		return nil
	default:
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		return decoder.Decode(config)
	}
}

// FindConfig returns the first default config file present in dir, or ""
// when there is none.
func FindConfig(dir string) string {
	for _, name := range DefaultConfigNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// Validate checks enumerated fields and the version constraint.
func (c *Config) Validate() error {
	if _, ok := parser.ParseAssociativity(c.Associativity); !ok {
		return errors.InvalidConfig("associativity must be \"left\" or \"right\", got %q", c.Associativity)
	}
	if _, ok := evaluator.ParseArithmetic(c.Arithmetic); !ok {
		return errors.InvalidConfig("arithmetic must be \"checked\" or \"wrapping\", got %q", c.Arithmetic)
	}
	if c.MaxDepth < 0 {
		return errors.InvalidConfig("max_depth must not be negative, got %d", c.MaxDepth)
	}
	if c.Server.Addr == "" {
		return errors.InvalidConfig("server.addr must not be empty")
	}
	if (c.Server.CertFile == "") != (c.Server.KeyFile == "") {
		return errors.InvalidConfig("server.cert_file and server.key_file must be set together")
	}
	return c.CheckVersion(ToolVersion())
}

// CheckVersion reports whether version satisfies Requires.
func (c *Config) CheckVersion(version *semver.Version) error {
	if c.Requires == "" {
		return nil
	}
	constraint, err := semver.NewConstraint(c.Requires)
	if err != nil {
		return errors.InvalidConfig("requires: %v", err)
	}
	if !constraint.Check(version) {
		return errors.IncompatibleVersion(version.String(), c.Requires)
	}
	return nil
}

// ParserOptions translates the configuration into parser options.
func (c *Config) ParserOptions() []parser.Option {
	assoc, _ := parser.ParseAssociativity(c.Associativity)
	opts := []parser.Option{parser.WithAssociativity(assoc)}
	if c.MaxDepth > 0 {
		opts = append(opts, parser.WithMaxDepth(c.MaxDepth))
	}
	return opts
}

// EvaluatorOptions translates the configuration into evaluator options.
func (c *Config) EvaluatorOptions() []evaluator.Option {
	mode, _ := evaluator.ParseArithmetic(c.Arithmetic)
	return []evaluator.Option{evaluator.WithArithmetic(mode)}
}

// SaveConfig saves configuration to file, as YAML or JSON by extension.
func (c *Config) SaveConfig(configPath string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
