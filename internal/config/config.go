package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`

	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`

	JWTSecret   string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	TokenTTL    time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`

	// Relay liveness settings.
	IdleTimeout   time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	SweepInterval time.Duration `mapstructure:"sweep_interval" yaml:"sweep_interval"`
	EventBuffer   int           `mapstructure:"event_buffer" yaml:"event_buffer"`
	SinkBuffer    int           `mapstructure:"sink_buffer" yaml:"sink_buffer"`

	// LoginRateLimit caps login attempts per minute. Zero disables limiting.
	LoginRateLimit int `mapstructure:"login_rate_limit" yaml:"login_rate_limit"`

	// Redis notification ingress; disabled when addr is empty.
	RedisAddr     string `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password" yaml:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db" yaml:"redis_db"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		DatabasePath:      "relay.db",
		JWTIssuer:         "relay-server",
		JWTAudience:       "relay-clients",
		TokenTTL:          24 * time.Hour,
		IdleTimeout:       30 * time.Minute,
		SweepInterval:     5 * time.Minute,
		EventBuffer:       32,
		SinkBuffer:        256,
		LoginRateLimit:    30,
	}
}
