package config

import (
	"strings"

	"github.com/marmos91/userperm/pkg/userdb"
)

// ApplyDefaults fills unspecified fields. Explicit values are preserved;
// identity ids have no defaults since "unset" is meaningful.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyIdentityDefaults(&cfg.Identity)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	cfg.Format = strings.ToLower(cfg.Format)

	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

func applyIdentityDefaults(cfg *IdentityConfig) {
	cfg.User = strings.TrimSpace(cfg.User)
	cfg.Squash = strings.ToLower(strings.TrimSpace(cfg.Squash))
	if cfg.Squash == "" {
		cfg.Squash = "none"
	}
	if cfg.PasswdFile == "" {
		cfg.PasswdFile = userdb.DefaultPasswdPath
	}
	if cfg.GroupFile == "" {
		cfg.GroupFile = userdb.DefaultGroupPath
	}
}

// GetDefaultConfig returns a Config with all defaults applied: the process
// identity, no supplementary groups.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
