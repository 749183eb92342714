// Package config provides configuration management for the schema manager.
//
// It utilizes Viper for loading configuration from environment variables
// and a .env file (loaded with godotenv, overriding the process environment).
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Server: HTTP server settings (port, API key)
//   - Database: driver (mysql, postgres, sqlite) and connection details
//   - Storage: S3/MinIO credentials and the script archive bucket
//   - Log: Logging level and format
//   - Manager: reconciliation settings (name length warning, name case, truncation, retries)
//
// Every key maps to an environment variable named SECTION_KEY, for example
// DATABASE_DRIVER or MANAGER_DEFAULT_TRUNCATION. LoadConfig rejects an unknown
// driver or truncation behavior and negative manager limits.
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Server.Port)
package config
