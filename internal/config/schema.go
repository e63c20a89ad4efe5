package config

import "fmt"

// Config holds promptvault configuration.
// Stored at: ~/.promptvault/config.yaml
type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// DatabaseConfig configures the catalog database.
type DatabaseConfig struct {
	// Path is the sqlite file location. Empty means the default location
	// under the promptvault home directory.
	Path string `mapstructure:"path" yaml:"path"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`   // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text", "json"
}

// BrowserConfig tunes client-side browsing behavior.
type BrowserConfig struct {
	// PageSize is the list page length used by the view coordinator.
	PageSize int `mapstructure:"page_size" yaml:"page_size"`
	// ToastSeconds is how long a notification stays visible.
	ToastSeconds int `mapstructure:"toast_seconds" yaml:"toast_seconds"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8080,
		},
		Database: DatabaseConfig{},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Browser: BrowserConfig{
			PageSize:     20,
			ToastSeconds: 4,
		},
	}
}

// ServerURL returns the base URL clients use to reach the server.
func (c *Config) ServerURL() string {
	host := c.Server.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := c.Server.Port
	if port == 0 {
		port = 8080
	}
	return fmt.Sprintf("http://%s:%d", host, port)
}
