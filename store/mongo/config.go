package mongo

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the MongoDB connection settings shared by tenant stores and
// the provisioner. Fields can be set programmatically or loaded from a YAML
// file via LoadConfig.
type Config struct {
	// URI is the mongodb:// connection string, without credentials. Tenant
	// credentials are supplied per Open call and admin credentials via the
	// Admin* fields.
	URI string `json:"uri" mapstructure:"uri" yaml:"uri"`

	// DatabasePrefix is prepended to the account name to form the tenant
	// database name (default: "shield_").
	DatabasePrefix string `json:"database_prefix" mapstructure:"database_prefix" yaml:"database_prefix"`

	// AdminUsername/AdminPassword authenticate the provisioner's
	// administrative connection against the admin database.
	AdminUsername string `json:"admin_username" mapstructure:"admin_username" yaml:"admin_username"`
	AdminPassword string `json:"admin_password" mapstructure:"admin_password" yaml:"admin_password"`

	// ConnectTimeout bounds the initial dial (default: 10s).
	ConnectTimeout time.Duration `json:"connect_timeout" mapstructure:"connect_timeout" yaml:"connect_timeout"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		URI:            "mongodb://localhost:27017",
		DatabasePrefix: "shield_",
		ConnectTimeout: 10 * time.Second,
	}
}

// LoadConfig reads a YAML config file, applying defaults for unset fields.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("shield/mongo: read config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("shield/mongo: parse config %s: %w", path, err)
	}
	return cfg, nil
}

// databaseName returns the tenant database name for an account.
func (c Config) databaseName(name string) string {
	prefix := c.DatabasePrefix
	if prefix == "" {
		prefix = "shield_"
	}
	return prefix + name
}

// roleName returns the tenant-scoped role name for an account.
func (c Config) roleName(name string) string {
	return name + "_ledger"
}
