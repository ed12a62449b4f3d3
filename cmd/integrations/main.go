// Command integrations smoke-tests the Slack and Jira credentials from the
// command line, without starting the backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/socialclone/server/internal/jira"
	"github.com/socialclone/server/internal/slack"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		webhookURL string
		jiraURL    string
		jiraEmail  string
		jiraToken  string
		message    string
	)

	flag.StringVar(&webhookURL, "slack-webhook", envOrDefault("SLACK_WEBHOOK_URL", ""), "Slack incoming-webhook URL")
	flag.StringVar(&jiraURL, "jira-url", envOrDefault("JIRA_BASE_URL", ""), "Jira base URL (e.g. https://yourteam.atlassian.net)")
	flag.StringVar(&jiraEmail, "jira-email", envOrDefault("JIRA_EMAIL", ""), "Jira account email")
	flag.StringVar(&jiraToken, "jira-token", envOrDefault("JIRA_API_TOKEN", ""), "Jira API token")
	flag.StringVar(&message, "message", "Integration test from SocialClone backend", "Test message to send to Slack")
	flag.Parse()

	if webhookURL == "" && jiraURL == "" {
		return fmt.Errorf("nothing to test: set --slack-webhook and/or --jira-url (or the matching env vars)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if webhookURL != "" {
		fmt.Println("Testing Slack webhook...")
		client := slack.NewClient(webhookURL)
		if err := client.SendSimpleMessage(ctx, message); err != nil {
			return fmt.Errorf("slack test failed: %w", err)
		}
		fmt.Println("Slack webhook OK")
	}

	if jiraURL != "" {
		if jiraEmail == "" || jiraToken == "" {
			return fmt.Errorf("--jira-email and --jira-token are required with --jira-url")
		}

		fmt.Println("Testing Jira connection...")
		client := jira.NewClient(jiraURL, jiraEmail, jiraToken)

		result := client.TestConnection(ctx)
		if !result.OK {
			return fmt.Errorf("jira connection failed: %s", result.Detail)
		}
		fmt.Printf("Jira connection OK, authenticated as %s\n", result.DisplayName)

		projects, err := client.GetProjects(ctx)
		if err != nil {
			return fmt.Errorf("list projects: %w", err)
		}
		fmt.Printf("Visible projects: %d\n", len(projects))
		for _, p := range projects {
			fmt.Printf("  %s  %s\n", p.Key, p.Name)
		}
	}

	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
