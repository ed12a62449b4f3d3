package domain

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// alertKeywords are matched case-insensitively as substrings of post content.
// Any hit turns the post into a user report worth a tracker issue.
var alertKeywords = []string{"bug", "error", "broken", "issue", "problem", "help"}

const summaryMaxLen = 50

// PostServiceConfig carries the orchestration knobs resolved at startup.
type PostServiceConfig struct {
	// ProjectKey is the issue tracker project that receives user reports.
	ProjectKey string

	// NotifyNewPosts sends a chat message for every created post.
	NotifyNewPosts bool

	// NotifyIssueCreated sends a chat message naming the issue key after a
	// keyword alert opened a tracker issue. The original app sent both this
	// and the new-post message for the same post, so the two stay
	// independently toggleable.
	NotifyIssueCreated bool
}

// PostService is the core domain service. It owns the create-post flow:
// validation, persistence, metrics, and best-effort fan-out to the chat and
// issue tracker integrations.
//
// The notifier and tracker are optional capabilities resolved once at
// startup; a nil value means the integration is not configured. Their
// failures are logged and swallowed, never surfaced to the caller.
type PostService struct {
	repo     PostRepository
	notifier Notifier     // nil when chat webhook is not configured
	tracker  IssueTracker // nil when issue tracker is not configured
	metrics  PostMetrics  // nil in tests that don't assert on metrics
	logger   *slog.Logger
	cfg      PostServiceConfig
}

// NewPostService creates a PostService. notifier, tracker and metrics may be
// nil.
func NewPostService(repo PostRepository, notifier Notifier, tracker IssueTracker, metrics PostMetrics, logger *slog.Logger, cfg PostServiceConfig) *PostService {
	return &PostService{
		repo:     repo,
		notifier: notifier,
		tracker:  tracker,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
	}
}

// NotifierEnabled reports whether a chat notifier is configured.
func (s *PostService) NotifierEnabled() bool { return s.notifier != nil }

// TrackerEnabled reports whether an issue tracker is configured.
func (s *PostService) TrackerEnabled() bool { return s.tracker != nil }

// CreatePost validates and persists a post, then drives the integrations.
// Only validation and storage failures are returned; everything after the
// insert is best-effort and the persisted post is returned regardless.
func (s *PostService) CreatePost(ctx context.Context, content, author string) (*Post, error) {
	if content == "" || author == "" {
		return nil, &ValidationError{Msg: "content and author required"}
	}

	post, err := s.repo.CreatePost(ctx, content, author)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.PostCreated(author)
	}

	if s.notifier != nil && s.cfg.NotifyNewPosts {
		msg := fmt.Sprintf("New post by @%s: %q", author, content)
		if err := s.notifier.SendSimpleMessage(ctx, msg); err != nil {
			s.logger.Error("new-post notification failed", "author", author, "error", err)
		} else {
			s.logger.Info("new-post notification sent", "author", author)
		}
	}

	if s.tracker != nil && ContainsAlertKeyword(content) {
		s.createReportIssue(ctx, post)
	}

	return post, nil
}

// createReportIssue opens a tracker issue for a keyword-flagged post and
// optionally announces it in chat. All failures end here.
func (s *PostService) createReportIssue(ctx context.Context, post *Post) {
	summary := "User Report: " + truncate(post.Content, summaryMaxLen)
	description := fmt.Sprintf("User @%s reported: %q\n\nPosted at: %s\nPost ID: %d",
		post.Author, post.Content, post.CreatedAt.Format(time.RFC3339), post.ID)

	issue, err := s.tracker.CreateIssue(ctx, s.cfg.ProjectKey, summary, description, "Task", "")
	if err != nil {
		s.logger.Error("issue creation failed", "author", post.Author, "post_id", post.ID, "error", err)
		return
	}
	s.logger.Info("issue created for user report", "key", issue.Key, "author", post.Author, "post_id", post.ID)

	if s.notifier != nil && s.cfg.NotifyIssueCreated {
		msg := fmt.Sprintf("Issue %s created for user report by @%s", issue.Key, post.Author)
		if err := s.notifier.SendSimpleMessage(ctx, msg); err != nil {
			s.logger.Error("issue-created notification failed", "key", issue.Key, "error", err)
		}
	}
}

// ListRecent returns up to limit posts, newest first.
func (s *PostService) ListRecent(ctx context.Context, limit int) ([]Post, error) {
	return s.repo.ListRecent(ctx, limit)
}

// CountPosts returns the total number of stored posts.
func (s *PostService) CountPosts(ctx context.Context) (int64, error) {
	return s.repo.CountPosts(ctx)
}

// Ready reports whether the post store is reachable.
func (s *PostService) Ready(ctx context.Context) error {
	return s.repo.Ready(ctx)
}

// TriggerAlert sends a chat alert and, for critical severity, opens a tracker
// issue. Unlike the create-post flow, failures here are returned to the
// caller: the endpoint exists to exercise the integrations.
func (s *PostService) TriggerAlert(ctx context.Context, alertType, severity, description string) (*AlertResult, error) {
	if alertType == "" {
		alertType = "Test Alert"
	}
	if severity == "" {
		severity = "warning"
	}
	if description == "" {
		description = "This is a test alert triggered from the web app"
	}

	result := &AlertResult{Slack: "disabled", Jira: "not triggered"}

	if s.notifier != nil {
		if err := s.notifier.SendAlertNotification(ctx, alertType, severity, description); err != nil {
			return nil, fmt.Errorf("send alert notification: %w", err)
		}
		result.Slack = "notified"
	}

	if s.tracker != nil && severity == "critical" {
		detail := fmt.Sprintf("Alert Details:\nType: %s\nSeverity: %s\nDescription: %s\n\nTriggered at: %s",
			alertType, severity, description, time.Now().UTC().Format(time.RFC3339))
		issue, err := s.tracker.CreateIssue(ctx, s.cfg.ProjectKey, "Critical Alert: "+alertType, detail, "Bug", "")
		if err != nil {
			return nil, fmt.Errorf("create alert issue: %w", err)
		}
		s.logger.Info("critical alert issue created", "key", issue.Key)
		result.Jira = "issue created"
	}

	return result, nil
}

// ContainsAlertKeyword reports whether the content matches any alert keyword,
// case-insensitively and on substrings.
func ContainsAlertKeyword(content string) bool {
	lowered := strings.ToLower(content)
	for _, kw := range alertKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

// truncate caps s at max runes and marks the cut with an ellipsis. The marker
// is appended even for short content, matching the issue summaries the
// original app produced.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) > max {
		return string(runes[:max]) + "..."
	}
	return s + "..."
}
