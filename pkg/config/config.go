// Package config holds the process-wide configuration for the Takeoff bot.
// It is loaded once at startup and treated as immutable for the process
// lifetime.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// defaultListenAddr is where the webhook server binds when nothing else is
// configured.
const defaultListenAddr = ":8080"

// Config is the full configuration surface. Credentials come from the
// environment only; the optional YAML file carries the non-secret knobs.
type Config struct {
	// ListenAddr is the webhook server bind address.
	ListenAddr string
	// SlackBotToken authenticates replies to Slack.
	SlackBotToken string
	// SlackSigningSecret verifies inbound event deliveries.
	SlackSigningSecret string
	// GitHubToken authenticates PR-state fetches and merge calls.
	GitHubToken string
	// AuthorizedSlackUserIDs is the comma-separated allow-list, e.g.
	// "U012AB3CD,U056EF7GH". Empty means nobody may trigger merges.
	AuthorizedSlackUserIDs string
	// MergeKeywords overrides the merge-intent phrases. Empty keeps the
	// built-in defaults.
	MergeKeywords []string
}

// fileConfig is the YAML-file subset of Config.
type fileConfig struct {
	ListenAddr    string   `yaml:"listen_addr"`
	MergeKeywords []string `yaml:"merge_keywords"`
}

// Load assembles the configuration: defaults, then the optional YAML file at
// path (empty path skips it), then environment variables on top.
func Load(path string) (*Config, error) {
	cfg := &Config{ListenAddr: defaultListenAddr}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
		if fc.ListenAddr != "" {
			cfg.ListenAddr = fc.ListenAddr
		}
		cfg.MergeKeywords = fc.MergeKeywords
	}

	if addr := os.Getenv("TAKEOFF_LISTEN_ADDR"); addr != "" {
		cfg.ListenAddr = addr
	}
	cfg.SlackBotToken = os.Getenv("SLACK_BOT_TOKEN")
	cfg.SlackSigningSecret = os.Getenv("SLACK_SIGNING_SECRET")
	cfg.GitHubToken = os.Getenv("GITHUB_TOKEN")
	cfg.AuthorizedSlackUserIDs = os.Getenv("AUTHORIZED_SLACK_USER_IDS")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var missing []string
	if c.SlackBotToken == "" {
		missing = append(missing, "SLACK_BOT_TOKEN")
	}
	if c.SlackSigningSecret == "" {
		missing = append(missing, "SLACK_SIGNING_SECRET")
	}
	if c.GitHubToken == "" {
		missing = append(missing, "GITHUB_TOKEN")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %v", missing)
	}
	return nil
}
