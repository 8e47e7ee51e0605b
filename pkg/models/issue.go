package models

// Issue is the shape the core expects from the issue-tracking client:
// at minimum these fields, regardless of which tracker backs it.
type Issue struct {
	Key       string   `json:"key"`
	Summary   string   `json:"summary"`
	Status    string   `json:"status"`
	Assignee  string   `json:"assignee"`
	Created   string   `json:"created"`
	Updated   string   `json:"updated"`
	Priority  string   `json:"priority"`
	IssueType string   `json:"issuetype"`
	Labels    []string `json:"labels"`
}
