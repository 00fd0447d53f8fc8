package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strings" // strings normalises backend names
    "time"    // time parses the shutdown budget
)

// Counter store backends understood by the server.
const (
    BackendRedis = "redis"
    BackendMySQL = "mysql"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Every value has a default so that the service
// starts with no configuration at all next to a store reachable as "db".
type Config struct {
    Env             string        // application environment (e.g. "dev", "prod")
    Host            string        // address to bind the HTTP listener to
    Port            string        // HTTP port to listen on
    CounterKey      string        // key of the hit counter in the store
    Backend         string        // counter store backend ("redis" or "mysql")
    LogLevel        string        // echo logger level
    ShutdownTimeout time.Duration // time allowed for in-flight requests on shutdown
    ViewEvents      bool          // publish a page.viewed event after each increment
    ViewConsumer    bool          // run the page.viewed consumer in-process
    TrustProxy      bool          // take the client IP from X-Forwarded-For set by private-network proxies
}

// Load reads configuration values from environment variables and returns a
// Config.  Unknown backends cause the program to exit with a fatal log message.
func Load() Config {
    cfg := Config{
        Env:             envStr("APP_ENV", "dev"),                 // environment (dev/test/prod)
        Host:            envStr("APP_HOST", "0.0.0.0"),            // bind address
        Port:            envStr("APP_PORT", "8000"),               // port to bind the HTTP server
        CounterKey:      envStr("COUNTER_KEY", "hits"),            // counter key
        Backend:         strings.ToLower(envStr("COUNTER_BACKEND", BackendRedis)),
        LogLevel:        strings.ToLower(envStr("LOG_LEVEL", "info")),
        ShutdownTimeout: envDur("SHUTDOWN_TIMEOUT", 10*time.Second),
        ViewEvents:      envBool("VIEW_EVENTS_ENABLED", false),
        ViewConsumer:    envBool("VIEW_CONSUMER_ENABLED", false),
        TrustProxy:      envBool("APP_TRUST_PROXY", false),
    }
    switch cfg.Backend {
    case BackendRedis, BackendMySQL:
    default:
        log.Fatalf("invalid COUNTER_BACKEND: %q", cfg.Backend)
    }
    return cfg
}

// Addr returns the host:port the HTTP server binds to.
func (c Config) Addr() string { return c.Host + ":" + c.Port }

// DBConfig holds the MySQL connection settings used by the mysql backend.
type DBConfig struct {
    User string // database username
    Pass string // database password (optional)
    Host string // database host address
    Port string // database port number
    Name string // database name
}

// LoadDBConfig reads the MySQL settings.  It is only called when the mysql
// backend is selected, so every value except the password is required.
func LoadDBConfig() DBConfig {
    return DBConfig{
        User: must("DB_USER"),
        Pass: os.Getenv("DB_PASS"),
        Host: must("DB_HOST"),
        Port: must("DB_PORT"),
        Name: must("DB_NAME"),
    }
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
