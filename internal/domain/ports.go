package domain

import "context"

// PostRepository defines persistence operations for posts.
type PostRepository interface {
	// CreatePost assigns an id and timestamp, persists the post and returns
	// the full record. Empty content or author yields a *ValidationError;
	// storage unavailability yields a *StorageError.
	CreatePost(ctx context.Context, content, author string) (*Post, error)

	// ListRecent retrieves up to limit posts ordered by creation time
	// descending (newest first).
	ListRecent(ctx context.Context, limit int) ([]Post, error)

	// CountPosts returns the total number of stored posts.
	CountPosts(ctx context.Context) (int64, error)

	// Ready reports whether the underlying store is reachable.
	Ready(ctx context.Context) error
}

// Notifier sends messages to the external chat channel. Implementations fail
// with a delivery error when the outbound call does not succeed; callers must
// treat that as non-fatal.
type Notifier interface {
	SendSimpleMessage(ctx context.Context, text string) error
	SendAlertNotification(ctx context.Context, name, severity, description string) error
}

// IssueTracker creates work items in the external ticketing system.
type IssueTracker interface {
	// CreateIssue opens an issue in the given project. issueType is a hint
	// resolved against the project's configured types; priority defaults to
	// Medium when empty.
	CreateIssue(ctx context.Context, projectKey, summary, description, issueType, priority string) (*Issue, error)
}

// PostMetrics records domain events on the process-wide metrics registry.
type PostMetrics interface {
	PostCreated(author string)
}
