package httpd

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config is the complete server configuration, loaded from HCL.
type Config struct {
	Server ServerSettings `hcl:"server,block"`
	Game   GameSettings   `hcl:"game,block"`
	Auth   AuthSettings   `hcl:"auth,block"`
}

// ServerSettings contains listener-level configuration.
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// GameSettings contains registry and engine defaults.
type GameSettings struct {
	DefaultDecks      int `hcl:"default_decks,optional"`
	MaxPlayers        int `hcl:"max_players,optional"`
	SessionTTLMinutes int `hcl:"session_ttl_minutes,optional"`
}

// AuthSettings controls the account store.
type AuthSettings struct {
	OpenRegistration bool `hcl:"open_registration,optional"`
	AllowAll         bool `hcl:"allow_all,optional"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8000,
			LogLevel: "info",
		},
		Game: GameSettings{
			DefaultDecks:      2,
			MaxPlayers:        8,
			SessionTTLMinutes: 0, // sessions never expire by default
		},
		Auth: AuthSettings{
			OpenRegistration: true,
		},
	}
}

// LoadConfig loads configuration from an HCL file, falling back to
// defaults when the file is absent.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	// Apply defaults for missing values
	if config.Server.Address == "" {
		config.Server.Address = "localhost"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8000
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = "info"
	}
	if config.Game.DefaultDecks == 0 {
		config.Game.DefaultDecks = 2
	}
	if config.Game.MaxPlayers == 0 {
		config.Game.MaxPlayers = 8
	}

	return &config, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Game.DefaultDecks < 1 {
		return fmt.Errorf("default_decks must be at least 1, got %d", c.Game.DefaultDecks)
	}
	if c.Game.MaxPlayers < 1 {
		return fmt.Errorf("max_players must be at least 1, got %d", c.Game.MaxPlayers)
	}
	if c.Game.SessionTTLMinutes < 0 {
		return fmt.Errorf("session_ttl_minutes cannot be negative, got %d", c.Game.SessionTTLMinutes)
	}
	return nil
}

// ListenAddress returns the full host:port to bind.
func (c *Config) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// SessionTTL returns the session time-to-live, zero meaning no expiry.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Game.SessionTTLMinutes) * time.Minute
}
