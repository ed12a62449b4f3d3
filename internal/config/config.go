package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration for the application.
type Config struct {
	// Port is the HTTP server port.
	Port int

	// DatabaseURL is the Postgres connection string.
	DatabaseURL string

	// SlackWebhookURL enables the chat notifier when set.
	SlackWebhookURL string

	// JiraBaseURL, JiraEmail and JiraAPIToken together enable the issue
	// tracker client. All three must be set.
	JiraBaseURL  string
	JiraEmail    string
	JiraAPIToken string

	// JiraProjectKey is the project that receives automated issues.
	JiraProjectKey string

	// NotifyNewPosts sends a chat message for every created post.
	NotifyNewPosts bool

	// NotifyIssueCreated sends a chat message when a keyword alert opened a
	// tracker issue.
	NotifyIssueCreated bool

	// Environment is a deployment tag reported in status payloads.
	Environment string
}

// SlackEnabled reports whether the chat webhook is configured.
func (c *Config) SlackEnabled() bool {
	return c.SlackWebhookURL != ""
}

// JiraEnabled reports whether all issue tracker credentials are configured.
func (c *Config) JiraEnabled() bool {
	return c.JiraBaseURL != "" && c.JiraEmail != "" && c.JiraAPIToken != ""
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	port := 3001
	if p := os.Getenv("PORT"); p != "" {
		var err error
		port, err = strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %w", err)
		}
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		dbURL = "postgres://user:password@db:5432/socialapp?sslmode=disable"
	}

	projectKey := os.Getenv("JIRA_PROJECT_KEY")
	if projectKey == "" {
		projectKey = "DEMO"
	}

	environment := os.Getenv("ENVIRONMENT")
	if environment == "" {
		environment = "development"
	}

	return &Config{
		Port:               port,
		DatabaseURL:        dbURL,
		SlackWebhookURL:    os.Getenv("SLACK_WEBHOOK_URL"),
		JiraBaseURL:        os.Getenv("JIRA_BASE_URL"),
		JiraEmail:          os.Getenv("JIRA_EMAIL"),
		JiraAPIToken:       os.Getenv("JIRA_API_TOKEN"),
		JiraProjectKey:     projectKey,
		NotifyNewPosts:     os.Getenv("NOTIFY_NEW_POSTS") == "true",
		NotifyIssueCreated: envBool("NOTIFY_ISSUE_CREATED", true),
		Environment:        environment,
	}, nil
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
