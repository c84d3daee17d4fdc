// SPDX-License-Identifier: GPL-3.0-or-later
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// secretsDir is where Docker mounts secrets. Overridden in tests.
var secretsDir = "/run/secrets"

// MailAccount describes one side of the round trip: the SMTP server the
// account sends through, the IMAP server its inbox lives on, and the
// credentials. Passwords never come from the config file, only from Docker
// secrets or the environment.
type MailAccount struct {
	SmtpHost   string
	SmtpPort   int
	SmtpUseTLS bool
	ImapHost   string
	ImapPort   int
	ImapUseSSL bool
	Address    string
	Password   string `toml:"-"`
}

type Config struct {
	Internal MailAccount
	External MailAccount

	SpamTestAddress           string
	SpamTestURL               string
	SpamScoreMinIntervalHours int

	CheckIntervalSeconds int
	TimeoutSeconds       int
	PollIntervalSeconds  int

	HTTPPort       int
	StatusHTMLFile string

	Loglevel *string
}

// ReadConfig builds the configuration from defaults, an optional toml file,
// environment variables and Docker secrets, in that order of precedence.
// An empty filename skips the file entirely.
func ReadConfig(filename string) (*Config, error) {
	config := &Config{
		Internal:                  MailAccount{SmtpPort: 465, SmtpUseTLS: true, ImapPort: 993, ImapUseSSL: true},
		External:                  MailAccount{SmtpPort: 465, SmtpUseTLS: true, ImapPort: 993, ImapUseSSL: true},
		SpamScoreMinIntervalHours: 8,
		CheckIntervalSeconds:      300,
		TimeoutSeconds:            60,
		PollIntervalSeconds:       10,
		HTTPPort:                  9091,
	}

	if filename != "" {
		_, err := toml.DecodeFile(filename, config)
		if err != nil {
			return nil, fmt.Errorf("could not read config file: %w", err)
		}
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	config.readSecrets()

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalSeconds) * time.Second
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

func (c *Config) SpamScoreMinInterval() time.Duration {
	return time.Duration(c.SpamScoreMinIntervalHours) * time.Hour
}

func (c *Config) applyEnv() error {
	e := &envReader{}

	e.stringVar(&c.Internal.SmtpHost, "INTERNAL_SMTP_SERVER")
	e.intVar(&c.Internal.SmtpPort, "INTERNAL_SMTP_PORT")
	e.boolVar(&c.Internal.SmtpUseTLS, "INTERNAL_SMTP_USE_TLS")
	e.stringVar(&c.Internal.ImapHost, "INTERNAL_IMAP_SERVER")
	e.intVar(&c.Internal.ImapPort, "INTERNAL_IMAP_PORT")
	e.boolVar(&c.Internal.ImapUseSSL, "INTERNAL_IMAP_USE_SSL")
	e.stringVar(&c.Internal.Address, "INTERNAL_EMAIL_ADDRESS")

	e.stringVar(&c.External.SmtpHost, "EXTERNAL_SMTP_SERVER")
	e.intVar(&c.External.SmtpPort, "EXTERNAL_SMTP_PORT")
	e.boolVar(&c.External.SmtpUseTLS, "EXTERNAL_SMTP_USE_TLS")
	e.stringVar(&c.External.ImapHost, "EXTERNAL_IMAP_SERVER")
	e.intVar(&c.External.ImapPort, "EXTERNAL_IMAP_PORT")
	e.boolVar(&c.External.ImapUseSSL, "EXTERNAL_IMAP_USE_SSL")
	e.stringVar(&c.External.Address, "EXTERNAL_EMAIL_ADDRESS")

	e.stringVar(&c.SpamTestAddress, "SPAM_SCORE_TEST_EMAIL_ADDRESS")
	e.stringVar(&c.SpamTestURL, "SPAM_SCORE_TEST_URL")
	e.intVar(&c.SpamScoreMinIntervalHours, "SPAM_SCORE_MIN_INTERVAL_HOURS")

	e.intVar(&c.CheckIntervalSeconds, "CHECK_INTERVAL_SECONDS")
	e.intVar(&c.TimeoutSeconds, "TIMEOUT_SECONDS")
	e.intVar(&c.PollIntervalSeconds, "POLL_INTERVAL_SECONDS")

	e.intVar(&c.HTTPPort, "HTTP_PORT")
	e.stringVar(&c.StatusHTMLFile, "STATUS_HTML_FILE")

	if v, ok := os.LookupEnv("LOG_LEVEL"); ok && v != "" {
		c.Loglevel = &v
	}

	return e.err
}

func (c *Config) readSecrets() {
	c.Internal.Password = readSecret("internal_email_password")
	c.External.Password = readSecret("external_email_password")
}

// readSecret reads a Docker secret, falling back to the upper-cased
// environment variable of the same name for development setups.
func readSecret(name string) string {
	path := filepath.Join(secretsDir, name)
	if content, err := os.ReadFile(path); err == nil {
		return strings.TrimSpace(string(content))
	}

	return os.Getenv(strings.ToUpper(name))
}

func (c *Config) validate() error {
	missing := []string{}
	requireString := func(value, name string) {
		if len(strings.TrimSpace(value)) == 0 {
			missing = append(missing, name)
		}
	}

	requireString(c.Internal.SmtpHost, "INTERNAL_SMTP_SERVER")
	requireString(c.Internal.ImapHost, "INTERNAL_IMAP_SERVER")
	requireString(c.Internal.Address, "INTERNAL_EMAIL_ADDRESS")
	requireString(c.External.SmtpHost, "EXTERNAL_SMTP_SERVER")
	requireString(c.External.ImapHost, "EXTERNAL_IMAP_SERVER")
	requireString(c.External.Address, "EXTERNAL_EMAIL_ADDRESS")
	requireString(c.SpamTestAddress, "SPAM_SCORE_TEST_EMAIL_ADDRESS")
	requireString(c.SpamTestURL, "SPAM_SCORE_TEST_URL")

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if len(strings.TrimSpace(c.Internal.Password)) == 0 {
		return fmt.Errorf("missing required secret: internal_email_password")
	}
	if len(strings.TrimSpace(c.External.Password)) == 0 {
		return fmt.Errorf("missing required secret: external_email_password")
	}

	for _, setting := range []struct {
		value int
		name  string
	}{
		{c.CheckIntervalSeconds, "CHECK_INTERVAL_SECONDS"},
		{c.TimeoutSeconds, "TIMEOUT_SECONDS"},
		{c.PollIntervalSeconds, "POLL_INTERVAL_SECONDS"},
		{c.SpamScoreMinIntervalHours, "SPAM_SCORE_MIN_INTERVAL_HOURS"},
		{c.HTTPPort, "HTTP_PORT"},
	} {
		if setting.value <= 0 {
			return fmt.Errorf("%s must be positive, got %d", setting.name, setting.value)
		}
	}

	return nil
}

// envReader applies environment overrides and keeps the first parse error.
type envReader struct {
	err error
}

func (e *envReader) stringVar(target *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*target = v
	}
}

func (e *envReader) intVar(target *int, key string) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}

	parsed, err := strconv.Atoi(v)
	if err != nil {
		if e.err == nil {
			e.err = fmt.Errorf("could not parse %s: %w", key, err)
		}
		return
	}
	*target = parsed
}

func (e *envReader) boolVar(target *bool, key string) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}

	switch strings.ToLower(v) {
	case "true", "1", "yes":
		*target = true
	default:
		*target = false
	}
}
