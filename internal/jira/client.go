// Package jira provides a narrow HTTP client for the JQL search interface
// the Tool Registry's search_issues tool depends on. It
// follows the shape of a typical REST ticketing client: a thin wrapper
// posting a structured query to a search endpoint and decoding a typed
// result page, adapted here to Jira's /rest/api/2/search.
package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/skylarklabs/reportloom/pkg/models"
)

// Client is a Jira REST API client scoped to issue search.
type Client struct {
	baseURL    string
	email      string
	apiToken   string
	httpClient *http.Client
}

// Config holds Jira client configuration.
type Config struct {
	// BaseURL is the Jira site root, e.g. https://yourcompany.atlassian.net.
	BaseURL string
	// Email identifies the account for HTTP basic auth against the Jira Cloud API.
	Email string
	// APIToken is the basic-auth password counterpart.
	APIToken string
	// Timeout bounds every request made by this client.
	Timeout time.Duration
}

// NewClient creates a new Jira API client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:  cfg.BaseURL,
		email:    cfg.Email,
		apiToken: cfg.APIToken,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type searchRequest struct {
	JQL        string   `json:"jql"`
	Fields     []string `json:"fields,omitempty"`
	MaxResults int      `json:"maxResults,omitempty"`
}

type searchResponseIssue struct {
	Key    string `json:"key"`
	Fields struct {
		Summary string `json:"summary"`
		Status  struct {
			Name string `json:"name"`
		} `json:"status"`
		Assignee *struct {
			DisplayName string `json:"displayName"`
		} `json:"assignee"`
		Created  string `json:"created"`
		Updated  string `json:"updated"`
		Priority *struct {
			Name string `json:"name"`
		} `json:"priority"`
		IssueType struct {
			Name string `json:"name"`
		} `json:"issuetype"`
		Labels []string `json:"labels"`
	} `json:"fields"`
}

type searchResponse struct {
	Issues []searchResponseIssue `json:"issues"`
}

// Search runs a JQL query and returns the matching issues.
func (c *Client) Search(ctx context.Context, jql string, fields []string, maxResults int) ([]models.Issue, error) {
	if maxResults <= 0 {
		maxResults = 50
	}

	body, err := json.Marshal(searchRequest{JQL: jql, Fields: fields, MaxResults: maxResults})
	if err != nil {
		return nil, fmt.Errorf("encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rest/api/2/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.email, c.apiToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			respBody = []byte("(failed to read response body)")
		}
		return nil, fmt.Errorf("jira API error %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	issues := make([]models.Issue, 0, len(parsed.Issues))
	for _, raw := range parsed.Issues {
		issue := models.Issue{
			Key:       raw.Key,
			Summary:   raw.Fields.Summary,
			Status:    raw.Fields.Status.Name,
			Created:   raw.Fields.Created,
			Updated:   raw.Fields.Updated,
			IssueType: raw.Fields.IssueType.Name,
			Labels:    raw.Fields.Labels,
		}
		if raw.Fields.Assignee != nil {
			issue.Assignee = raw.Fields.Assignee.DisplayName
		}
		if raw.Fields.Priority != nil {
			issue.Priority = raw.Fields.Priority.Name
		}
		issues = append(issues, issue)
	}
	return issues, nil
}

// Searcher is the narrow interface search_issues depends on, letting tests
// substitute a stub in place of a live Jira client.
type Searcher interface {
	Search(ctx context.Context, jql string, fields []string, maxResults int) ([]models.Issue, error)
}
