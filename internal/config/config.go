package config

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/aleksaelezovic/rofi-tracker/internal/storage"
	"github.com/aleksaelezovic/rofi-tracker/internal/tracker"
	"github.com/aleksaelezovic/rofi-tracker/pkg/search"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	AppName    = "rofi-tracker"
	FileName   = "config"
	FileType   = "yaml"
	EnvPrefix  = "ROFI_TRACKER"
	historyDir = "history"
	historyDB  = "history.db"
)

type HistoryConfig struct {
	Enabled     bool   `mapstructure:"enabled"       yaml:"enabled"`
	Backend     string `mapstructure:"backend"       yaml:"backend"`
	Path        string `mapstructure:"path"          yaml:"path"`
	ShowOnStart bool   `mapstructure:"show_on_start" yaml:"show_on_start"`
	Size        int    `mapstructure:"size"          yaml:"size"`
}

type ServicesConfig struct {
	Cursor tracker.Service `mapstructure:"cursor" yaml:"cursor"`
	Inline tracker.Service `mapstructure:"inline" yaml:"inline"`
}

type Config struct {
	Protocol  string         `mapstructure:"protocol"   yaml:"protocol"`
	Timeout   time.Duration  `mapstructure:"timeout"    yaml:"-"`
	Limit     int            `mapstructure:"limit"      yaml:"limit"`
	ByteOrder string         `mapstructure:"byte_order" yaml:"byte_order"`
	Prompt    string         `mapstructure:"prompt"     yaml:"prompt"`
	HotKeys   bool           `mapstructure:"hot_keys"   yaml:"hot_keys"`
	Opener    []string       `mapstructure:"opener"     yaml:"opener"`
	History   HistoryConfig  `mapstructure:"history"    yaml:"history"`
	Services  ServicesConfig `mapstructure:"services"   yaml:"services"`
}

var ValidByteOrders = map[string]binary.ByteOrder{
	"native": binary.NativeEndian,
	"little": binary.LittleEndian,
	"big":    binary.BigEndian,
}

// GetConfigPath returns the default config file location under dir, which
// is normally the user's config directory.
func GetConfigPath(dir string) string {
	return filepath.Join(dir, AppName, FileName+"."+FileType)
}

// SetDefaults registers the default value of every key on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("protocol", tracker.ProtocolAuto)
	v.SetDefault("timeout", tracker.DefaultTimeout)
	v.SetDefault("limit", search.DefaultLimit)
	v.SetDefault("byte_order", "native")
	v.SetDefault("prompt", "")
	v.SetDefault("hot_keys", false)
	v.SetDefault("opener", []string{"xdg-open"})

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.backend", storage.BackendBadger)
	v.SetDefault("history.path", "")
	v.SetDefault("history.show_on_start", false)
	v.SetDefault("history.size", 10)

	v.SetDefault("services.cursor.name", tracker.Tracker3.Name)
	v.SetDefault("services.cursor.path", tracker.Tracker3.Path)
	v.SetDefault("services.cursor.interface", tracker.Tracker3.Interface)
	v.SetDefault("services.inline.name", tracker.Tracker2.Name)
	v.SetDefault("services.inline.path", tracker.Tracker2.Path)
	v.SetDefault("services.inline.interface", tracker.Tracker2.Interface)
}

// Load reads the configuration into v. An empty file uses the default
// location, which may be absent; an explicit file must exist.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to locate config directory: %w", err)
		}
		v.AddConfigPath(filepath.Join(dir, AppName))
		v.SetConfigName(FileName)
		v.SetConfigType(FileType)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if cfg.History.Path == "" {
		dir, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("failed to locate cache directory: %w", err)
		}
		name := historyDir
		if strings.EqualFold(cfg.History.Backend, storage.BackendBolt) {
			name = historyDB
		}
		cfg.History.Path = filepath.Join(dir, AppName, name)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that cannot be fixed up silently
func (c *Config) Validate() error {
	if !strings.EqualFold(c.Protocol, tracker.ProtocolAuto) {
		if _, err := search.ParseProtocol(c.Protocol); err != nil {
			return fmt.Errorf("invalid protocol: %q. Please choose from auto, cursor or inline.", c.Protocol)
		}
	}
	if _, ok := ValidByteOrders[strings.ToLower(c.ByteOrder)]; !ok {
		return fmt.Errorf("invalid byte order: %q. Please choose from native, little or big.", c.ByteOrder)
	}
	if !slices.Contains(storage.Backends, strings.ToLower(c.History.Backend)) {
		return fmt.Errorf("invalid history backend: %q. Please choose from %s.", c.History.Backend, strings.Join(storage.Backends, " or "))
	}
	if c.Limit <= 0 {
		return fmt.Errorf("invalid limit: %d", c.Limit)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("invalid timeout: %s", c.Timeout)
	}
	if len(c.Opener) == 0 || c.Opener[0] == "" {
		return errors.New("opener command is empty")
	}
	return nil
}

// Order returns the byte order of cursor frames
func (c *Config) Order() binary.ByteOrder {
	if order, ok := ValidByteOrders[strings.ToLower(c.ByteOrder)]; ok {
		return order
	}
	return binary.NativeEndian
}

// Tracker returns the connection settings for the indexing service
func (c *Config) Tracker() tracker.Settings {
	return tracker.Settings{
		Protocol: c.Protocol,
		Timeout:  c.Timeout,
		Cursor:   c.Services.Cursor,
		Inline:   c.Services.Inline,
	}
}

// MarshalYAML renders the timeout in its human form
func (c Config) MarshalYAML() (interface{}, error) {
	type plain Config
	return struct {
		plain   `yaml:",inline"`
		Timeout string `yaml:"timeout"`
	}{plain: plain(c), Timeout: c.Timeout.String()}, nil
}

// Dump renders the effective configuration as YAML
func (c *Config) Dump() ([]byte, error) {
	return yaml.Marshal(c)
}
