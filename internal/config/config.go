package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strings"
)

// Store drivers accepted in STORE_DRIVER.
const (
	DriverMySQL  = "mysql"
	DriverMemory = "memory"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The DB fields are only read when the MySQL
// store is selected.
type Config struct {
	Env         string // application environment (e.g. "dev", "prod")
	Port        string // HTTP port to listen on
	StoreDriver string // "mysql" or "memory"
	DBUser      string // database username
	DBPass      string // database password (optional)
	DBHost      string // database host address
	DBPort      string // database port number
	DBName      string // database name
	DBMigrate   bool   // create tables at startup when missing
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	cfg := Config{
		Env:         must("APP_ENV"),  // environment (dev/test/prod)
		Port:        must("APP_PORT"), // port to bind the HTTP server
		StoreDriver: strings.ToLower(envStr("STORE_DRIVER", DriverMySQL)),
	}
	switch cfg.StoreDriver {
	case DriverMySQL:
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS") // empty allowed
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
		cfg.DBMigrate = envBool("DB_MIGRATE", true)
	case DriverMemory:
	default:
		log.Fatalf("invalid STORE_DRIVER %q: want %s or %s", cfg.StoreDriver, DriverMySQL, DriverMemory)
	}
	return cfg
}

// IsProd reports whether the service runs in production.
func (c Config) IsProd() bool {
	return strings.EqualFold(c.Env, "prod") || strings.EqualFold(c.Env, "production")
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
