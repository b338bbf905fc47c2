// Package config loads stocktake configuration from an optional YAML file,
// applies environment variable overrides, and validates the result before the
// bot is allowed to start.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all stocktake configuration.
type Config struct {
	Discord   DiscordConfig   `yaml:"discord"`
	Vision    VisionConfig    `yaml:"vision"`
	Sheet     SheetConfig     `yaml:"sheet"`
	MACLookup MACLookupConfig `yaml:"mac_lookup"`
	Logging   LoggingConfig   `yaml:"logging"`

	// Timezone is the fixed zone used to render row timestamps
	// ("America/Chicago", "UTC", ...). Empty or "Local" uses the host zone.
	Timezone string `yaml:"timezone"`
}

// DiscordConfig configures the bot connection and the watched channel.
type DiscordConfig struct {
	Token     string `yaml:"token"`
	ChannelID string `yaml:"channel_id"`
}

// VisionConfig configures the inference provider used to read device labels.
type VisionConfig struct {
	Provider string `yaml:"provider"` // openai, gemini
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"` // empty = no client-side deadline
}

// SheetConfig configures the Google Sheets ledger.
type SheetConfig struct {
	SpreadsheetID   string `yaml:"spreadsheet_id"`
	SheetName       string `yaml:"sheet_name"`
	CredentialsFile string `yaml:"credentials_file"`
}

// MACLookupConfig configures the MAC vendor lookup service.
type MACLookupConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Vision: VisionConfig{
			Provider: "openai",
		},
		Sheet: SheetConfig{
			SheetName:       "Sheet1",
			CredentialsFile: "credentials.json",
		},
		MACLookup: MACLookupConfig{
			BaseURL: "https://api.macaddress.io/v1",
			Timeout: "10s",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Timezone: "Local",
	}
}

// Load reads the config file at path (when it exists), layers environment
// overrides on top, and returns the merged configuration. A missing file is
// not an error; defaults plus environment are enough to run.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DISCORD_BOT_TOKEN"); v != "" {
		c.Discord.Token = v
	}
	if v := os.Getenv("DISCORD_CHANNEL_ID"); v != "" {
		c.Discord.ChannelID = v
	}
	if v := os.Getenv("GOOGLE_SHEET_ID"); v != "" {
		c.Sheet.SpreadsheetID = v
	}
	if v := os.Getenv("GOOGLE_CREDENTIALS_FILE"); v != "" {
		c.Sheet.CredentialsFile = v
	}
	if v := os.Getenv("MACLOOKUP_API_KEY"); v != "" {
		c.MACLookup.APIKey = v
	}

	// Provider API keys only apply to the selected provider so that a host
	// with both keys set does not feed an OpenAI key to Gemini.
	switch strings.ToLower(c.Vision.Provider) {
	case "gemini":
		if v := os.Getenv("GEMINI_API_KEY"); v != "" {
			c.Vision.APIKey = v
		}
	default:
		if v := os.Getenv("OPENAI_API_KEY"); v != "" {
			c.Vision.APIKey = v
		}
	}
}

// Validate checks everything the process cannot run without. Failures here
// are fatal startup errors; the event loop is never started on a config that
// does not validate.
func (c *Config) Validate() error {
	if c.Discord.Token == "" {
		return fmt.Errorf("discord token is required (discord.token or DISCORD_BOT_TOKEN)")
	}
	if c.Discord.ChannelID == "" {
		return fmt.Errorf("discord channel id is required (discord.channel_id or DISCORD_CHANNEL_ID)")
	}
	if _, err := strconv.ParseUint(c.Discord.ChannelID, 10, 64); err != nil {
		return fmt.Errorf("discord channel id %q is not a valid snowflake", c.Discord.ChannelID)
	}

	switch strings.ToLower(c.Vision.Provider) {
	case "openai", "gemini":
	default:
		return fmt.Errorf("unknown vision provider %q (want openai or gemini)", c.Vision.Provider)
	}
	if c.Vision.APIKey == "" {
		return fmt.Errorf("vision api key is required (vision.api_key, OPENAI_API_KEY, or GEMINI_API_KEY)")
	}

	if c.Sheet.SpreadsheetID == "" {
		return fmt.Errorf("spreadsheet id is required (sheet.spreadsheet_id or GOOGLE_SHEET_ID)")
	}
	if _, err := os.Stat(c.Sheet.CredentialsFile); err != nil {
		return fmt.Errorf("google credentials file %q not readable: %w", c.Sheet.CredentialsFile, err)
	}

	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return nil
}

// Location resolves the configured display timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "Local") {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Duration parses a config duration string, falling back to def when the
// value is empty or malformed.
func Duration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
