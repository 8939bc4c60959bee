package config

import "time"

// Config holds client configuration values.
type Config struct {
	ServerWSURL   string `mapstructure:"server_ws_url" yaml:"server_ws_url"`
	ServerHTTPURL string `mapstructure:"server_http_url" yaml:"server_http_url"`
	TokenFile     string `mapstructure:"token_file" yaml:"token_file"`
	LogLevel      string `mapstructure:"log_level" yaml:"log_level"`
	CachePath     string `mapstructure:"cache_path" yaml:"cache_path"`

	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout" yaml:"handshake_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`

	MaxReconnectTries int           `mapstructure:"max_reconnect_tries" yaml:"max_reconnect_tries"`
	ReconnectInterval time.Duration `mapstructure:"reconnect_interval" yaml:"reconnect_interval"`
	MaxReconnectDelay time.Duration `mapstructure:"max_reconnect_delay" yaml:"max_reconnect_delay"`

	TypingExpiry time.Duration `mapstructure:"typing_expiry" yaml:"typing_expiry"`

	STUNServers []string `mapstructure:"stun_servers" yaml:"stun_servers"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		ServerWSURL:       "ws://localhost:8080/ws",
		ServerHTTPURL:     "http://localhost:8080/api",
		TokenFile:         "token",
		LogLevel:          "info",
		CachePath:         "wirechat-cache.db",
		HandshakeTimeout:  10 * time.Second,
		WriteTimeout:      10 * time.Second,
		MaxReconnectTries: 5,
		ReconnectInterval: time.Second,
		MaxReconnectDelay: 5 * time.Second,
		TypingExpiry:      10 * time.Second,
		STUNServers:       []string{"stun:stun.l.google.com:19302"},
	}
}
