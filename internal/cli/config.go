package cli

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// RedisConfig selects the Redis snapshot store and locker.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// Config contains everything the run command needs.
// Fields can come from a YAML config file and are then overridden by flags.
type Config struct {
	Flow      string         `mapstructure:"flow"`
	State     map[string]any `mapstructure:"state"`
	StateFile string         `mapstructure:"state_file"`
	Input     any            `mapstructure:"input"`
	Instance  string         `mapstructure:"instance"`
	HTTPAddr  string         `mapstructure:"http"`
	JSON      bool           `mapstructure:"json"`
	LogLevel  string         `mapstructure:"log_level"`
	Redis     RedisConfig    `mapstructure:"redis"`

	// EncryptionKey is a base64 AES-256 key sealing stored snapshots.
	EncryptionKey string `mapstructure:"encryption_key"`
	// MaskKeys are regular expressions of state keys masked before storage.
	MaskKeys []string `mapstructure:"mask_keys"`
}

// LoadConfig decodes a YAML config file.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &cfg,
	})
	if err != nil {
		return cfg, err
	}
	if err := decoder.Decode(raw); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// initialState merges the state file under the inline state.
func (c Config) initialState() (map[string]any, error) {
	var merged map[string]any
	if c.StateFile != "" {
		data, err := os.ReadFile(c.StateFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read state file: %w", err)
		}
		if err := yaml.Unmarshal(data, &merged); err != nil {
			return nil, fmt.Errorf("failed to parse state file %s: %w", c.StateFile, err)
		}
	}
	if len(c.State) > 0 && merged == nil {
		merged = make(map[string]any, len(c.State))
	}
	for k, v := range c.State {
		merged[k] = v
	}
	return merged, nil
}

func (c Config) encryptionKey() ([]byte, error) {
	if c.EncryptionKey == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(c.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("encryption key is not base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
	}
	return key, nil
}

// ParseInput decodes a --input flag: JSON when it parses, the raw string otherwise.
func ParseInput(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}
