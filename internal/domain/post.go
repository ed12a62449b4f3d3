package domain

import "time"

// Post is a user-authored message. Posts are immutable once created; the
// store assigns ID and CreatedAt at insertion time.
type Post struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

// Issue identifies a work item created in the external issue tracker.
type Issue struct {
	// Key is the human-readable identifier (e.g. DEMO-123).
	Key string `json:"key"`

	// ID is the tracker's numeric identifier.
	ID string `json:"id"`

	// URL is the browsable link to the issue.
	URL string `json:"url"`

	// IssueType is the name of the issue type the tracker resolved for
	// the created issue.
	IssueType string `json:"issueType"`
}

// AlertResult reports which integrations reacted to a triggered alert.
type AlertResult struct {
	// Slack is "notified" when a chat alert was sent, "disabled" otherwise.
	Slack string `json:"slack"`

	// Jira is "issue created" when a tracker issue was opened,
	// "not triggered" otherwise.
	Jira string `json:"jira"`
}
