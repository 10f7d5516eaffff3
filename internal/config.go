package internal

import (
	"fmt"
	"path/filepath"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/kinship-media/kinship/internal/api"
	"github.com/kinship-media/kinship/internal/database"
	"github.com/mitchellh/go-homedir"
)

// KinshipConfig is the user-supplied configuration, sourced from a
// YAML file with environment variable overrides.
type KinshipConfig struct {
	Database   database.DatabaseConfig `yaml:"database" env-required:"true"`
	Rest       api.RestConfig          `yaml:"api"`
	Auth       AuthConfig              `yaml:"auth" env-required:"true"`
	Reconciler ReconcilerConfig        `yaml:"reconciler"`
}

type AuthConfig struct {
	AuthTokenSecret    string `yaml:"auth_token_secret" env:"AUTH_TOKEN_SECRET" env-required:"true"`
	RefreshTokenSecret string `yaml:"refresh_token_secret" env:"REFRESH_TOKEN_SECRET" env-required:"true"`
}

// ReconcilerConfig bounds the number of playlists reconciled
// concurrently when entitlement changes fan out.
type ReconcilerConfig struct {
	Parallelism int `yaml:"parallelism" env:"RECONCILER_THREADS" env-default:"2"`
}

// LoadFromFile reads YAML configuration from the given path, applying
// any environment variable overrides on top.
func (config *KinshipConfig) LoadFromFile(configPath string) error {
	if err := cleanenv.ReadConfig(configPath, config); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	return nil
}

// DefaultConfigPath returns the conventional location of the config
// file inside the users home directory.
func DefaultConfigPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("cannot determine user home directory: %w", err)
	}

	return filepath.Join(home, ".config", "kinship", "config.yaml"), nil
}
