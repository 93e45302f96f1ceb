package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/cloudfoundry/jwt-fixture/keys"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Key sources
const (
	SourceCached = "cached"
	SourceFresh  = "fresh"
	SourceStatic = "static"
)

// ErrInvalid is returned for any configuration that cannot be loaded or used
var ErrInvalid = errors.New("invalid fixture configuration")

// Config represents a fixture profile
type Config struct {
	Key      KeyConfig  `yaml:"key"`
	Header   Overrides  `yaml:"header"`
	Payload  Overrides  `yaml:"payload"`
	Sign     SignConfig `yaml:"sign"`
	Validity int        `yaml:"validity"` // Seconds used by the expired/valid helpers
}

// KeyConfig selects where the signing key pair comes from
type KeyConfig struct {
	Source     string        `yaml:"source"`
	Bits       int           `yaml:"bits"`
	PrivateKey string        `yaml:"private_key"` // PEM-encoded RSA private key, static source only
	keyPair    *keys.KeyPair `yaml:"-"`           // Parsed key (not serialized)
}

// SignConfig contains signing defaults
type SignConfig struct {
	Algorithm string `yaml:"algorithm"`
}

// Overrides is a claim or header mapping. Anything other than a YAML
// mapping is rejected.
type Overrides map[string]interface{}

// UnmarshalYAML implements yaml.Unmarshaler
func (o *Overrides) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: overrides must be a mapping", value.Line)
	}

	m := make(map[string]interface{})
	if err := value.Decode(&m); err != nil {
		return err
	}
	*o = m
	return nil
}

// Loader is the interface for loading fixture profiles
type Loader interface {
	Load(path string) (*Config, error)
}

// defaultLoader is the default implementation of Loader
type defaultLoader struct{}

// NewLoader creates a new Loader
func NewLoader() Loader {
	return &defaultLoader{}
}

// Load reads and validates a profile from a YAML file
func (l *defaultLoader) Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file: %w", ErrInvalid, err)
	}
	return Parse(data)
}

// Load is a convenience function that uses the default loader
func Load(path string) (*Config, error) {
	return NewLoader().Load(path)
}

// Parse parses and validates a profile from YAML bytes
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse YAML: %w", ErrInvalid, err)
	}

	ApplyDefaults(&cfg)

	if err := validateAndProcess(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	return &cfg, nil
}

// ApplyDefaults sets default values for optional fields
func ApplyDefaults(cfg *Config) {
	if cfg.Key.Source == "" {
		cfg.Key.Source = SourceCached
	}
	if cfg.Key.Bits == 0 {
		cfg.Key.Bits = keys.MinBits
	}
	if cfg.Sign.Algorithm == "" {
		cfg.Sign.Algorithm = "RS256"
		if alg, ok := cfg.Header["alg"].(string); ok && alg != "" {
			cfg.Sign.Algorithm = alg
		}
	}
	if cfg.Validity == 0 {
		cfg.Validity = 3600 // 1 hour
	}
}

// validateAndProcess validates the configuration and parses key material
func validateAndProcess(cfg *Config) error {
	if cfg.Validity < 0 {
		return errors.New("validity must be positive")
	}

	if err := validateKey(&cfg.Key); err != nil {
		return fmt.Errorf("key validation failed: %w", err)
	}

	if err := validateHeader(cfg.Header); err != nil {
		return fmt.Errorf("header validation failed: %w", err)
	}

	return nil
}

// validateHeader checks the header fields the fixture reads itself
func validateHeader(header Overrides) error {
	for _, field := range []string{"kid", "alg", "typ"} {
		raw, ok := header[field]
		if !ok {
			continue
		}
		value, isString := raw.(string)
		if !isString {
			return fmt.Errorf("%s must be a string, got %T", field, raw)
		}
		if value == "" && field != "typ" {
			return fmt.Errorf("%s must not be empty", field)
		}
	}
	return nil
}

// validateKey validates the key source and parses static keys
func validateKey(key *KeyConfig) error {
	if key.Bits < keys.MinBits {
		return fmt.Errorf("key bits must be at least %d", keys.MinBits)
	}

	switch key.Source {
	case SourceCached, SourceFresh:
		return nil
	case SourceStatic:
		if key.PrivateKey == "" {
			return errors.New("private_key is required for static key source")
		}
		keyPair, err := keys.FromPrivateKeyPEM(key.PrivateKey)
		if err != nil {
			return fmt.Errorf("failed to parse private_key: %w", err)
		}
		key.keyPair = keyPair
		return nil
	default:
		return fmt.Errorf("unknown key source '%s'", key.Source)
	}
}

// Provider returns a key provider for the configured source
func (k *KeyConfig) Provider(logger *zap.Logger) (keys.Provider, error) {
	switch k.Source {
	case SourceCached:
		if k.Bits == keys.MinBits {
			return keys.Default(), nil
		}
		return keys.NewCachedProvider(k.Bits, logger), nil
	case SourceFresh:
		return keys.NewFreshProvider(k.Bits, logger), nil
	case SourceStatic:
		if k.keyPair == nil {
			return keys.NewStaticProvider(k.PrivateKey)
		}
		return keys.NewProviderFor(k.keyPair), nil
	default:
		return nil, fmt.Errorf("%w: unknown key source '%s'", ErrInvalid, k.Source)
	}
}
