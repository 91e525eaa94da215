package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
)

// MailAccount holds the credentials and endpoints for the real mail
// provider. AuthType selects password login or OAuth2 (XOAUTH2).
type MailAccount struct {
	Address           string `json:"address"` // mailbox address, also the From for outgoing mail
	IMAPHost          string `json:"imap_host"`
	IMAPPort          int    `json:"imap_port"`
	SMTPHost          string `json:"smtp_host"`
	SMTPPort          int    `json:"smtp_port"`
	Username          string `json:"username"`
	Password          string `json:"password"`
	UseSSL            bool   `json:"use_ssl"`
	AuthType          string `json:"auth_type"` // password, oauth2
	OAuthClientID     string `json:"oauth_client_id"`
	OAuthClientSecret string `json:"oauth_client_secret"`
	OAuthRefreshToken string `json:"oauth_refresh_token"`
}

// AISettings holds the language model client configuration.
type AISettings struct {
	Provider string `json:"provider"` // openai, claude, custom
	APIKey   string `json:"api_key"`
	Model    string `json:"model"`
	BaseURL  string `json:"base_url"`
}

// Config holds the application configuration
type Config struct {
	DatabasePath string      `json:"database_path"`
	APIPort      string      `json:"api_port"`
	LogLevel     string      `json:"log_level"`
	DataDir      string      `json:"data_dir"`
	CORSOrigins  string      `json:"cors_origins"` // comma separated, * for all
	DemoMode     bool        `json:"demo_mode"`    // use the simulated mail provider
	Mail         MailAccount `json:"mail"`
	AI           AISettings  `json:"ai"`
}

// Default configuration values
const (
	DefaultDatabasePath = "data/momail.db"
	DefaultAPIPort      = "8000"
	DefaultLogLevel     = "INFO"
	DefaultDataDir      = "data"
	DefaultCORSOrigins  = "*"
)

// Load loads configuration from environment variables and config file
// Priority: Environment variables > Config file > Default values
func Load() (*Config, error) {
	cfg := &Config{
		DatabasePath: DefaultDatabasePath,
		APIPort:      DefaultAPIPort,
		LogLevel:     DefaultLogLevel,
		DataDir:      DefaultDataDir,
		CORSOrigins:  DefaultCORSOrigins,
		Mail: MailAccount{
			IMAPPort: 993,
			SMTPPort: 465,
			UseSSL:   true,
			AuthType: "password",
		},
	}

	// Config file is optional
	if err := cfg.loadFromFile(); err != nil {
		return nil, err
	}

	cfg.loadFromEnv()

	return cfg, nil
}

// ConfigFileName is the file Load looks for and Save writes.
const ConfigFileName = "config.json"

// loadFromFile loads configuration from config.json
func (c *Config) loadFromFile() error {
	configPaths := []string{
		ConfigFileName,
		filepath.Join(c.DataDir, ConfigFileName),
	}

	for _, path := range configPaths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		return json.Unmarshal(data, c)
	}

	return nil
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() {
	if val := os.Getenv("MOMAIL_DATABASE_PATH"); val != "" {
		c.DatabasePath = val
	}
	if val := os.Getenv("MOMAIL_API_PORT"); val != "" {
		c.APIPort = val
	}
	if val := os.Getenv("MOMAIL_LOG_LEVEL"); val != "" {
		c.LogLevel = val
	}
	if val := os.Getenv("MOMAIL_DATA_DIR"); val != "" {
		c.DataDir = val
	}
	if val := os.Getenv("MOMAIL_CORS_ORIGINS"); val != "" {
		c.CORSOrigins = val
	}
	if val := os.Getenv("MOMAIL_DEMO_MODE"); val != "" {
		c.DemoMode, _ = strconv.ParseBool(val)
	}
	if val := os.Getenv("MOMAIL_MAIL_ADDRESS"); val != "" {
		c.Mail.Address = val
	}
	if val := os.Getenv("MOMAIL_MAIL_PASSWORD"); val != "" {
		c.Mail.Password = val
	}
	if val := os.Getenv("MOMAIL_AI_PROVIDER"); val != "" {
		c.AI.Provider = val
	}
	if val := os.Getenv("MOMAIL_AI_API_KEY"); val != "" {
		c.AI.APIKey = val
	}
	if val := os.Getenv("MOMAIL_AI_MODEL"); val != "" {
		c.AI.Model = val
	}
	if val := os.Getenv("MOMAIL_AI_BASE_URL"); val != "" {
		c.AI.BaseURL = val
	}
}

// Save saves the current configuration to a file
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
