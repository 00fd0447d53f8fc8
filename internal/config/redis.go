package config

// Redis holds the hit counter and, when enabled, the rate limiter buckets.
// The client is built once at startup and shared by every request.

import (
	"context"
	"crypto/tls"
	"net"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig describes how to reach the counter store.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	TLS         bool
	TLSInsecure bool // skip certificate verification; never the default
	DialTimeout time.Duration
}

// LoadRedisConfig reads the Redis settings from the environment:
//
//	REDIS_HOST and REDIS_PORT – hostname and port (default db:6379)
//	REDIS_ADDR – host:port shorthand, used when host/port are not both set
//	REDIS_PASSWORD – optional password
//	REDIS_DB – database number (default 0)
//	REDIS_TLS – enable TLS when "true" or "1"
//	REDIS_TLS_INSECURE – skip certificate verification (default false)
//	REDIS_DIAL_TIMEOUT – connect timeout (default 2s)
func LoadRedisConfig() RedisConfig {
	host := os.Getenv("REDIS_HOST")
	port := os.Getenv("REDIS_PORT")
	addr := os.Getenv("REDIS_ADDR")
	switch {
	case host != "" || port != "":
		addr = envStr("REDIS_HOST", "db") + ":" + envStr("REDIS_PORT", "6379")
	case addr == "":
		addr = "db:6379"
	}
	return RedisConfig{
		Addr:        addr,
		Password:    os.Getenv("REDIS_PASSWORD"),
		DB:          envInt("REDIS_DB", 0),
		TLS:         envBool("REDIS_TLS", false),
		TLSInsecure: envBool("REDIS_TLS_INSECURE", false),
		DialTimeout: envDur("REDIS_DIAL_TIMEOUT", 2*time.Second),
	}
}

// NewRedisClient builds the shared client and pings it.  The client is
// always returned: a failed ping only means the store is not reachable yet,
// and requests will report it as unavailable until it is.
func NewRedisClient(cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		TLSConfig:   cfg.tlsConfig(),
		DialTimeout: cfg.DialTimeout,
		// INCR must not be replayed: a retried command could count one view twice.
		MaxRetries: -1,
	})
	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	return client, client.Ping(ctx).Err()
}

// tlsConfig verifies the server certificate against the host part of Addr
// unless TLSInsecure is set.  It is nil when TLS is off.
func (cfg RedisConfig) tlsConfig() *tls.Config {
	if !cfg.TLS {
		return nil
	}
	host, _, err := net.SplitHostPort(cfg.Addr)
	if err != nil {
		host = cfg.Addr
	}
	return &tls.Config{
		ServerName:         host,
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.TLSInsecure,
	}
}
