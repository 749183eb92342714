package config

import (
	"fmt"
	"reflect"
	"strings"

	"schema-manager/core/database"
	"schema-manager/core/dialect"
	"schema-manager/core/logger"
	"schema-manager/core/reconcile"
	"schema-manager/core/server"
	"schema-manager/core/storage"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the schema-manager configuration, one section per concern.
// Environment keys are the section and field tags joined by "_".
type Config struct {
	// Server is the provisioning HTTP API.
	Server server.Config `mapstructure:"server"`
	// Storage is the optional script archive bucket.
	Storage storage.Config `mapstructure:"storage"`
	Log     logger.Config  `mapstructure:"log"`
	// Database is the default target database.
	Database database.Config `mapstructure:"database"`
	// Manager tunes schema reconciliation.
	Manager reconcile.Config `mapstructure:"manager"`
}

// LoadConfig reads the .env file in path, if any, then the environment, and
// checks the database and manager sections.
func LoadConfig(path string) (*Config, error) {
	envPath := path + "/.env"
	if path == "." {
		envPath = ".env"
	}
	// A missing .env is normal outside development.
	_ = godotenv.Overload(envPath)

	v := viper.New()
	bindValues(v, Config{}, "")

	// MANAGER_TRANSIENT_RETRIES -> manager.transient_retries
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate rejects settings the manager cannot run with.
func (c *Config) Validate() error {
	if _, err := dialect.For(c.Database.Driver); err != nil {
		return fmt.Errorf("database.driver: %w", err)
	}
	if _, err := c.Manager.Truncation(); err != nil {
		return fmt.Errorf("manager.default_truncation: %w", err)
	}
	if c.Manager.TransientRetries < 0 {
		return fmt.Errorf("manager.transient_retries must not be negative, got %d", c.Manager.TransientRetries)
	}
	if c.Manager.MaxTableNameLength < 0 {
		return fmt.Errorf("manager.max_table_name_length must not be negative, got %d", c.Manager.MaxTableNameLength)
	}
	return nil
}

// bindValues registers every mapstructure key of iface with its default tag, so
// AutomaticEnv can resolve keys that have no default.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")

		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		v.SetDefault(key, field.Tag.Get("default"))
	}
}
