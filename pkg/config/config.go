package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment overrides, e.g.
// USERPERM_IDENTITY_UID=1000 or USERPERM_LOGGING_LEVEL=DEBUG.
const EnvPrefix = "USERPERM"

// Config represents the userperm client configuration.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority, applied by the caller)
//  2. Environment variables (USERPERM_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Identity describes the credential the client acts with
	Identity IdentityConfig `mapstructure:"identity" yaml:"identity"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// IdentityConfig is the configured client identity.
//
// Every id is optional. Unset ids resolve from the process identity when the
// credential is evaluated. User, when set, is looked up in the passwd/group
// files and supplies uid, gid and supplementary groups; explicit GID and
// Groups are then applied on top.
type IdentityConfig struct {
	// User is a "name", "uid", "name:group" or "uid:gid" spec.
	// Mutually exclusive with UID.
	User string `mapstructure:"user" validate:"excluded_with=UID" yaml:"user,omitempty"`

	// UID is the acting user ID
	UID *uint32 `mapstructure:"uid" validate:"omitempty,ne=4294967295" yaml:"uid,omitempty"`

	// GID is the primary group ID
	GID *uint32 `mapstructure:"gid" validate:"omitempty,ne=4294967295" yaml:"gid,omitempty"`

	// Groups lists supplementary group IDs. Accepts a YAML list or a
	// comma-separated string ("4,27,100").
	Groups []uint32 `mapstructure:"groups" validate:"dive,ne=4294967295" yaml:"groups,omitempty"`

	// InodeOwnerUID overrides the user treated as file owner
	InodeOwnerUID *uint32 `mapstructure:"inode_owner_uid" validate:"omitempty,ne=4294967295" yaml:"inode_owner_uid,omitempty"`

	// InodeOwnerGID overrides the group treated as file owner
	InodeOwnerGID *uint32 `mapstructure:"inode_owner_gid" validate:"omitempty,ne=4294967295" yaml:"inode_owner_gid,omitempty"`

	// Squash maps the credential to the anonymous identity
	// Valid values: none, root, all
	// Default: none
	Squash string `mapstructure:"squash" validate:"required,oneof=none root all" yaml:"squash"`

	// AnonUID is the uid squashed credentials map to
	// Default: 65534 (nobody)
	AnonUID *uint32 `mapstructure:"anon_uid" validate:"omitempty,ne=4294967295" yaml:"anon_uid,omitempty"`

	// AnonGID is the gid squashed credentials map to
	// Default: 65534 (nogroup)
	AnonGID *uint32 `mapstructure:"anon_gid" validate:"omitempty,ne=4294967295" yaml:"anon_gid,omitempty"`

	// PasswdFile is the user database used to resolve User
	// Default: /etc/passwd
	PasswdFile string `mapstructure:"passwd_file" validate:"required" yaml:"passwd_file"`

	// GroupFile is the group database used to resolve User
	// Default: /etc/group
	GroupFile string `mapstructure:"group_file" validate:"required" yaml:"group_file"`
}

// envKeys are bound explicitly so environment overrides work even when the
// key is absent from the config file.
var envKeys = []string{
	"logging.level",
	"logging.format",
	"logging.output",
	"identity.user",
	"identity.uid",
	"identity.gid",
	"identity.groups",
	"identity.inode_owner_uid",
	"identity.inode_owner_gid",
	"identity.squash",
	"identity.anon_uid",
	"identity.anon_gid",
	"identity.passwd_file",
	"identity.group_file",
}

// Load loads configuration from file, environment, and defaults.
//
// A missing file is not an error: defaults plus environment overrides are
// returned.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	if err := setupViper(v, configPath); err != nil {
		return nil, err
	}

	if _, err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// SaveConfig writes cfg to path as YAML, creating parent directories.
func SaveConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func setupViper(v *viper.Viper, configPath string) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	return nil
}

// readConfigFile reports whether a config file was read.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		idListDecodeHook(),
	)
}

// idListDecodeHook converts "4,27,100" (or "4 27 100") to []uint32, so group
// lists can come from environment variables and flags.
func idListDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf([]uint32(nil)) {
			return data, nil
		}
		s, ok := data.(string)
		if !ok {
			return data, nil
		}
		return ParseIDList(s)
	}
}

// ParseIDList parses a comma or whitespace separated list of ids.
func ParseIDList(s string) ([]uint32, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	if len(fields) == 0 {
		return nil, nil
	}
	ids := make([]uint32, 0, len(fields))
	for _, f := range fields {
		id, err := strconv.ParseUint(f, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", f, err)
		}
		ids = append(ids, uint32(id))
	}
	return ids, nil
}

// getConfigDir uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls
// back to the current directory.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "userperm")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "userperm")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
