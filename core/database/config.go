package database

import "fmt"

// Config holds configuration for the database connection.
type Config struct {
	// Driver is the database driver (mysql, postgres, sqlite).
	Driver string `mapstructure:"driver" default:"mysql"`
	// Host is the database host.
	Host string `mapstructure:"host" default:"localhost"`
	// Port is the database port.
	Port int `mapstructure:"port" default:"3306"`
	// User is the database user.
	User string `mapstructure:"user" default:"root"`
	// Password is the database password.
	Password string `mapstructure:"password" default:""`
	// Name is the database name. For sqlite it is the file name or DSN.
	Name string `mapstructure:"name" default:"test"`
	// TimeoutSeconds bounds connection setup and socket I/O.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
}

// Identity names one physical database. Two configs with the same Identity
// reach the same tables, so a schema cache is valid for exactly one Identity.
type Identity struct {
	Driver string
	Host   string
	Port   int
	Name   string
	User   string
}

// Identity returns the identity of the database this config connects to.
func (c Config) Identity() Identity {
	return Identity{Driver: c.Driver, Host: c.Host, Port: c.Port, Name: c.Name, User: c.User}
}

// WithName returns a copy of the config pointing at another database on the same server.
func (c Config) WithName(name string) Config {
	c.Name = name
	return c
}

func (i Identity) String() string {
	if i.Driver == DriverSQLite {
		return fmt.Sprintf("%s:%s", i.Driver, i.Name)
	}
	return fmt.Sprintf("%s://%s@%s:%d/%s", i.Driver, i.User, i.Host, i.Port, i.Name)
}

// IsZero reports whether the identity is unset.
func (i Identity) IsZero() bool {
	return i == Identity{}
}
