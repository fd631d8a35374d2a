package workspace

import (
	"errors"
	"fmt"
	"os"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variables that override config
// values: MENTU_SERVER_LISTEN overrides server.listen.
const EnvPrefix = "MENTU"

// Config is the workspace configuration stored in .mentu/config.yaml.
type Config struct {
	Workspace    string           `yaml:"workspace" mapstructure:"workspace"`
	Created      string           `yaml:"created,omitempty" mapstructure:"created"`
	DefaultActor string           `yaml:"default_actor,omitempty" mapstructure:"default_actor"`
	Server       ServerConfig     `yaml:"server,omitempty" mapstructure:"server"`
	Mirror       MirrorConfig     `yaml:"mirror,omitempty" mapstructure:"mirror"`
	Validation   ValidationConfig `yaml:"validation,omitempty" mapstructure:"validation"`
	API          APIConfig        `yaml:"api,omitempty" mapstructure:"api"`
}

// ServerConfig configures `mentu serve`.
type ServerConfig struct {
	Listen string `yaml:"listen,omitempty" mapstructure:"listen"`
}

// MirrorConfig configures the SQLite mirror.
type MirrorConfig struct {
	Path string `yaml:"path,omitempty" mapstructure:"path"`
}

// ValidationConfig configures operation validation.
type ValidationConfig struct {
	PathPrefixes []string `yaml:"path_prefixes,omitempty" mapstructure:"path_prefixes"`
}

// APIConfig holds the HTTP API keys.
type APIConfig struct {
	Keys []APIKey `yaml:"keys,omitempty" mapstructure:"keys"`
}

// NewDefaultConfig returns the configuration used for keys absent from
// config.yaml.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{Listen: "127.0.0.1:3000"},
		Mirror: MirrorConfig{Path: "mirror.db"},
		Validation: ValidationConfig{
			PathPrefixes: []string{"docs/", ".claude/"},
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Workspace, validation.Required),
	); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	for i := range c.API.Keys {
		if err := c.API.Keys[i].Validate(); err != nil {
			return fmt.Errorf("api.keys[%d]: %w", i, err)
		}
	}
	return nil
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Listen, validation.Required),
	)
}

// initViper registers defaults, reads path (if it exists) and binds MENTU_*
// environment variables. Precedence, highest first: environment, file,
// defaults.
func initViper(path string) (*viper.Viper, error) {
	v := viper.New()
	setViperDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, os.ErrNotExist) && !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v, nil
}

func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()
	v.SetDefault("workspace", d.Workspace)
	v.SetDefault("created", d.Created)
	v.SetDefault("default_actor", d.DefaultActor)
	v.SetDefault("server.listen", d.Server.Listen)
	v.SetDefault("mirror.path", d.Mirror.Path)
	v.SetDefault("validation.path_prefixes", d.Validation.PathPrefixes)
}

// LoadConfig reads the config file at path with environment overrides. A
// missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	v, err := initViper(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

// SaveConfig writes cfg to path as YAML.
func SaveConfig(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// readConfigFile decodes config.yaml without defaults or overrides.
func readConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return &cfg, nil
}
