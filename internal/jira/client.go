// Package jira is a minimal Jira Cloud REST client covering the calls the
// backend needs: connection checks, project/issue-type discovery, issue
// creation with rich-text bodies, comments, and JQL search.
package jira

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/socialclone/server/internal/domain"
)

const defaultTimeout = 15 * time.Second

// issueLabels are attached to every issue this service creates.
var issueLabels = []string{"devops", "automated", "social-app"}

// fallbackIssueTypes is the preference order used when the caller's hint does
// not match any of the project's configured types.
var fallbackIssueTypes = []string{"Story", "Task", "Bug", "Epic", "Improvement"}

// ErrNoIssueType is returned when the target project has no usable issue
// types at all.
var ErrNoIssueType = errors.New("no suitable issue type found for project")

// APIError reports a failed REST call, carrying the upstream status and
// response body.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("jira API error (status %d): %s", e.StatusCode, e.Body)
}

// Project is a Jira project as returned by the project listing.
type Project struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
}

// IssueType is an issue type configured on a project.
type IssueType struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SearchIssue is a single hit from a JQL search.
type SearchIssue struct {
	Key    string `json:"key"`
	Fields struct {
		Summary string `json:"summary"`
		Status  struct {
			Name string `json:"name"`
		} `json:"status"`
		Created string `json:"created"`
		Updated string `json:"updated"`
	} `json:"fields"`
}

// ConnectionResult is the outcome of TestConnection. It never carries an
// error so callers can branch without unwrapping.
type ConnectionResult struct {
	OK          bool
	DisplayName string // authenticated user, when OK
	Detail      string // failure detail, when not OK
}

// Client talks to a Jira Cloud instance using basic auth (email + API token).
type Client struct {
	baseURL    string
	authHeader string
	httpClient *http.Client
}

// NewClient creates a Jira client for the given base URL and credentials.
func NewClient(baseURL, email, apiToken string) *Client {
	token := base64.StdEncoding.EncodeToString([]byte(email + ":" + apiToken))
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		authHeader: "Basic " + token,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// TestConnection verifies the credentials against the current-user endpoint.
func (c *Client) TestConnection(ctx context.Context) ConnectionResult {
	var me struct {
		DisplayName string `json:"displayName"`
	}
	if err := c.get(ctx, "/rest/api/3/myself", &me); err != nil {
		return ConnectionResult{Detail: err.Error()}
	}
	return ConnectionResult{OK: true, DisplayName: me.DisplayName}
}

// GetProjects lists the projects visible to the authenticated user.
func (c *Client) GetProjects(ctx context.Context) ([]Project, error) {
	var projects []Project
	if err := c.get(ctx, "/rest/api/3/project", &projects); err != nil {
		return nil, fmt.Errorf("get projects: %w", err)
	}
	return projects, nil
}

// GetIssueTypes returns the issue types configured on a project.
func (c *Client) GetIssueTypes(ctx context.Context, projectKey string) ([]IssueType, error) {
	var project struct {
		IssueTypes []IssueType `json:"issueTypes"`
	}
	if err := c.get(ctx, "/rest/api/3/project/"+projectKey, &project); err != nil {
		return nil, fmt.Errorf("get issue types: %w", err)
	}
	return project.IssueTypes, nil
}

// CreateIssue opens an issue in the given project. issueTypeName is a hint
// resolved against the project's configured types; priority defaults to
// Medium when empty. The description is wrapped in a single-paragraph
// rich-text document.
func (c *Client) CreateIssue(ctx context.Context, projectKey, summary, description, issueTypeName, priority string) (*domain.Issue, error) {
	issueTypes, err := c.GetIssueTypes(ctx, projectKey)
	if err != nil {
		return nil, err
	}
	issueType, err := resolveIssueType(issueTypes, issueTypeName)
	if err != nil {
		return nil, err
	}

	if priority == "" {
		priority = "Medium"
	}

	body := map[string]any{
		"fields": map[string]any{
			"project":     map[string]string{"key": projectKey},
			"summary":     summary,
			"description": adfDocument(description),
			"issuetype":   map[string]string{"id": issueType.ID},
			"labels":      issueLabels,
			"priority":    map[string]string{"name": priority},
		},
	}

	var created struct {
		ID  string `json:"id"`
		Key string `json:"key"`
	}
	if err := c.post(ctx, "/rest/api/3/issue", body, &created); err != nil {
		return nil, fmt.Errorf("create issue: %w", err)
	}

	return &domain.Issue{
		Key:       created.Key,
		ID:        created.ID,
		URL:       c.baseURL + "/browse/" + created.Key,
		IssueType: issueType.Name,
	}, nil
}

// AddComment appends a rich-text comment to an existing issue.
func (c *Client) AddComment(ctx context.Context, issueKey, text string) error {
	body := map[string]any{
		"body": adfDocument(text),
	}
	if err := c.post(ctx, "/rest/api/3/issue/"+issueKey+"/comment", body, nil); err != nil {
		return fmt.Errorf("add comment to %s: %w", issueKey, err)
	}
	return nil
}

// UpdateDeploymentStatus records a deployment outcome as a templated comment
// on the given issue.
func (c *Client) UpdateDeploymentStatus(ctx context.Context, issueKey, version, environment, status string) error {
	comment := fmt.Sprintf(`Deployment Update:
- Version: %s
- Environment: %s
- Status: %s
- Timestamp: %s
- Automated via DevOps pipeline`,
		version, environment, status, time.Now().UTC().Format(time.RFC3339))
	return c.AddComment(ctx, issueKey, comment)
}

// SearchIssues runs a JQL query and returns up to 50 hits.
func (c *Client) SearchIssues(ctx context.Context, jql string) ([]SearchIssue, error) {
	body := map[string]any{
		"jql":        jql,
		"maxResults": 50,
		"fields":     []string{"summary", "status", "assignee", "created", "updated"},
	}
	var result struct {
		Issues []SearchIssue `json:"issues"`
	}
	if err := c.post(ctx, "/rest/api/3/search", body, &result); err != nil {
		return nil, fmt.Errorf("search issues: %w", err)
	}
	return result.Issues, nil
}

// GetRecentIssues returns issues created in the project within the last
// `days` days, newest first.
func (c *Client) GetRecentIssues(ctx context.Context, projectKey string, days int) ([]SearchIssue, error) {
	jql := fmt.Sprintf("project = %s AND created >= -%dd ORDER BY created DESC", projectKey, days)
	return c.SearchIssues(ctx, jql)
}

// resolveIssueType picks the concrete issue type to use: an exact
// case-insensitive match on the hint, then the first hit in the fallback
// ordering, then the project's first type.
func resolveIssueType(types []IssueType, hint string) (*IssueType, error) {
	if hint != "" {
		for i := range types {
			if strings.EqualFold(types[i].Name, hint) {
				return &types[i], nil
			}
		}
	}
	for _, name := range fallbackIssueTypes {
		for i := range types {
			if strings.EqualFold(types[i].Name, name) {
				return &types[i], nil
			}
		}
	}
	if len(types) > 0 {
		return &types[0], nil
	}
	return nil, ErrNoIssueType
}

// adfDocument wraps plain text in a one-paragraph Atlassian Document Format
// body, the only rich-text shape this service produces.
func adfDocument(text string) map[string]any {
	return map[string]any{
		"type":    "doc",
		"version": 1,
		"content": []map[string]any{
			{
				"type": "paragraph",
				"content": []map[string]any{
					{"type": "text", "text": text},
				},
			},
		},
	}
}

func (c *Client) get(ctx context.Context, path string, result any) error {
	return c.do(ctx, http.MethodGet, path, nil, result)
}

func (c *Client) post(ctx context.Context, path string, body, result any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, payload, result)
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, result any) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}
