// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"pokerbot/models"
)

var issueKeyRe = regexp.MustCompile(`^[A-Z][A-Z0-9]+-\d+$`)

// Client talks to the Jira REST API (v3) and implements the engine's
// TaskSource: resolving task references into queueable tasks and writing
// story points back per issue.
type Client struct {
	baseURL     string
	username    string
	apiToken    string
	pointsField string
	http        *http.Client
}

// New creates a client for the Jira instance at baseURL. pointsField is
// the custom field ID holding story points (e.g. customfield_10022).
func New(baseURL, username, apiToken, pointsField string) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		username:    username,
		apiToken:    apiToken,
		pointsField: pointsField,
		http:        &http.Client{Timeout: 15 * time.Second},
	}
}

// Resolve turns a query into candidate tasks. Two forms are accepted:
//
//	key=FLEX-365 FLEX-366    issue keys, fetched individually
//	jql=project = FLEX ...   a JQL search
//
// Unknown forms yield an error; the caller falls back to manual task text.
func (c *Client) Resolve(ctx context.Context, query string) ([]*models.Task, error) {
	query = strings.TrimSpace(query)
	switch {
	case strings.HasPrefix(query, "key="):
		return c.resolveKeys(ctx, strings.TrimPrefix(query, "key="))
	case strings.HasPrefix(query, "jql="):
		return c.search(ctx, strings.TrimPrefix(query, "jql="))
	}
	return nil, fmt.Errorf("unrecognized task query %q", query)
}

func (c *Client) resolveKeys(ctx context.Context, raw string) ([]*models.Task, error) {
	var tasks []*models.Task
	for _, field := range strings.FieldsFunc(raw, func(r rune) bool { return r == ' ' || r == ',' }) {
		key := strings.ToUpper(strings.TrimSpace(field))
		if !issueKeyRe.MatchString(key) {
			continue
		}
		summary, err := c.issueSummary(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("fetch issue %s: %w", key, err)
		}
		tasks = append(tasks, models.NewTask(key, summary, c.IssueURL(key)))
	}
	if len(tasks) == 0 {
		return nil, fmt.Errorf("no valid issue keys in %q", raw)
	}
	return tasks, nil
}

func (c *Client) search(ctx context.Context, jql string) ([]*models.Task, error) {
	q := url.Values{}
	q.Set("jql", jql)
	q.Set("maxResults", "100")
	q.Set("fields", "summary")

	var out struct {
		Issues []struct {
			Key    string `json:"key"`
			Fields struct {
				Summary string `json:"summary"`
			} `json:"fields"`
		} `json:"issues"`
	}
	if err := c.call(ctx, http.MethodGet, "search?"+q.Encode(), nil, &out); err != nil {
		return nil, fmt.Errorf("jql search: %w", err)
	}

	var tasks []*models.Task
	for _, issue := range out.Issues {
		tasks = append(tasks, models.NewTask(issue.Key, issue.Fields.Summary, c.IssueURL(issue.Key)))
	}
	return tasks, nil
}

// WriteBack sets the story points field on the issue.
func (c *Client) WriteBack(ctx context.Context, taskKey string, points int) error {
	body := map[string]any{
		"fields": map[string]any{c.pointsField: points},
	}
	if err := c.call(ctx, http.MethodPut, "issue/"+taskKey, body, nil); err != nil {
		return fmt.Errorf("update story points for %s: %w", taskKey, err)
	}
	return nil
}

// IssueURL returns the browse link for an issue key.
func (c *Client) IssueURL(key string) string {
	return c.baseURL + "/browse/" + key
}

func (c *Client) issueSummary(ctx context.Context, key string) (string, error) {
	var out struct {
		Fields struct {
			Summary string `json:"summary"`
		} `json:"fields"`
	}
	if err := c.call(ctx, http.MethodGet, "issue/"+key+"?fields=summary", nil, &out); err != nil {
		return "", err
	}
	return out.Fields.Summary, nil
}

func (c *Client) call(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/rest/api/3/"+endpoint, reader)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.username, c.apiToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("jira returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
