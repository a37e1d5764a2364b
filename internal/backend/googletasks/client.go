// Package googletasks implements the service.Service interface using Google Tasks API.
//
// A schedule lives in the task list whose title matches the session
// username, or in the default list when there is none. The task's due date
// is its schedule date and its notes hold the "HH:MM-HH:MM" time range.
package googletasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"daysched/internal/config"
	"daysched/internal/service"
)

const (
	// DefaultListID is the special ID for the default list.
	DefaultListID = "@default"

	// Scope is the OAuth scope for Google Tasks.
	Scope = "https://www.googleapis.com/auth/tasks"

	statusNeedsAction = "needsAction"
	statusCompleted   = "completed"

	dueLayout = "2006-01-02T15:04:05.000Z"
)

// Client implements service.Service using Google Tasks API.
type Client struct {
	svc *tasks.Service

	mu    sync.Mutex
	lists map[string]string // username -> list ID
}

// New creates a new Google Tasks client.
// Requires oauth_client.json and token.json to exist.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	oauthConfig, err := OAuthConfig(cfg)
	if err != nil {
		return nil, err
	}

	tokenData, err := os.ReadFile(cfg.TokenPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read token.json: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(tokenData, &token); err != nil {
		return nil, fmt.Errorf("invalid token.json: %w", err)
	}

	// Token source refreshes the access token as needed.
	httpClient := oauth2.NewClient(ctx, oauthConfig.TokenSource(ctx, &token))

	svc, err := tasks.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks service: %w", err)
	}
	return &Client{svc: svc, lists: make(map[string]string)}, nil
}

// OAuthConfig loads the desktop OAuth client from the config directory.
func OAuthConfig(cfg *config.Config) (*oauth2.Config, error) {
	clientJSON, err := os.ReadFile(cfg.OAuthClientPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read oauth_client.json: %w", err)
	}
	oauthConfig, err := google.ConfigFromJSON(clientJSON, Scope)
	if err != nil {
		return nil, fmt.Errorf("invalid oauth_client.json: %w", err)
	}
	return oauthConfig, nil
}

// NewWithHTTPClient creates a client with a custom HTTP client and
// endpoint (for testing).
func NewWithHTTPClient(ctx context.Context, httpClient *http.Client, endpoint string) (*Client, error) {
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	svc, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{svc: svc, lists: make(map[string]string)}, nil
}

// LoadSchedule implements service.Service.
func (c *Client) LoadSchedule(ctx context.Context, sess service.Session, date string) ([]service.Task, error) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil, err
	}
	listID, err := c.listFor(ctx, sess)
	if err != nil {
		return nil, err
	}

	var result []service.Task
	err = c.svc.Tasks.List(listID).
		DueMin(day.Format(time.RFC3339)).
		DueMax(day.AddDate(0, 0, 1).Format(time.RFC3339)).
		ShowCompleted(true).
		ShowHidden(true).
		ShowDeleted(false).
		MaxResults(100).
		Pages(ctx, func(resp *tasks.Tasks) error {
			for _, t := range resp.Items {
				task := fromAPI(t)
				// DueMax is exclusive in the API but guard anyway.
				if task.Date != date {
					continue
				}
				result = append(result, task)
			}
			return nil
		})
	if err != nil {
		return nil, wrapError(err)
	}
	if result == nil {
		result = []service.Task{}
	}
	return result, nil
}

// SaveSchedule implements service.Service.
func (c *Client) SaveSchedule(ctx context.Context, sess service.Session, inputs []service.TaskInput) error {
	listID, err := c.listFor(ctx, sess)
	if err != nil {
		return err
	}
	for _, in := range inputs {
		t, err := toAPI(in)
		if err != nil {
			return err
		}
		if _, err := c.svc.Tasks.Insert(listID, t).Context(ctx).Do(); err != nil {
			return wrapError(err)
		}
	}
	return nil
}

// UpdateStatus implements service.Service.
func (c *Client) UpdateStatus(ctx context.Context, sess service.Session, taskID string, status service.Status) error {
	listID, err := c.listFor(ctx, sess)
	if err != nil {
		return err
	}
	patch := &tasks.Task{Status: statusNeedsAction}
	if status.Done() {
		patch.Status = statusCompleted
	} else {
		// Reopening requires clearing the completion timestamp.
		patch.NullFields = []string{"Completed"}
	}
	if _, err := c.svc.Tasks.Patch(listID, taskID, patch).Context(ctx).Do(); err != nil {
		return wrapError(err)
	}
	return nil
}

// DeleteTask implements service.Service. The returned list is empty:
// Google Tasks has no "remaining tasks" response and callers must not
// rely on one.
func (c *Client) DeleteTask(ctx context.Context, sess service.Session, taskID string) ([]service.Task, error) {
	listID, err := c.listFor(ctx, sess)
	if err != nil {
		return nil, err
	}
	if err := c.svc.Tasks.Delete(listID, taskID).Context(ctx).Do(); err != nil {
		return nil, wrapError(err)
	}
	return []service.Task{}, nil
}

// listFor resolves the task list for a user, caching the result.
// A list titled like the username (case-insensitive, trimmed) wins;
// otherwise the default list is used.
func (c *Client) listFor(ctx context.Context, sess service.Session) (string, error) {
	name := strings.ToLower(strings.TrimSpace(sess.Username))

	c.mu.Lock()
	id, ok := c.lists[name]
	c.mu.Unlock()
	if ok {
		return id, nil
	}

	id = DefaultListID
	if name != "" {
		var matches []string
		err := c.svc.Tasklists.List().MaxResults(100).Pages(ctx, func(resp *tasks.TaskLists) error {
			for _, list := range resp.Items {
				if strings.ToLower(strings.TrimSpace(list.Title)) == name {
					matches = append(matches, list.Id)
				}
			}
			return nil
		})
		if err != nil {
			return "", wrapError(err)
		}
		switch len(matches) {
		case 0:
		case 1:
			id = matches[0]
		default:
			return "", fmt.Errorf("ambiguous list name: %s", sess.Username)
		}
	}

	c.mu.Lock()
	c.lists[name] = id
	c.mu.Unlock()
	return id, nil
}

func fromAPI(t *tasks.Task) service.Task {
	task := service.Task{
		ID:     t.Id,
		Title:  t.Title,
		Status: service.StatusPending,
	}
	if t.Status == statusCompleted {
		task.Status = service.StatusCompleted
	}
	if len(t.Due) >= 10 {
		task.Date = t.Due[:10]
	}
	task.StartTime, task.EndTime = parseRange(t.Notes)
	return task
}

func toAPI(in service.TaskInput) (*tasks.Task, error) {
	day, err := time.Parse("2006-01-02", in.Date)
	if err != nil {
		return nil, err
	}
	return &tasks.Task{
		Title:  in.Title,
		Due:    day.Format(dueLayout),
		Notes:  in.StartTime + "-" + in.EndTime,
		Status: statusNeedsAction,
	}, nil
}

// parseRange reads "HH:MM-HH:MM" from the first line of notes.
func parseRange(notes string) (start, end string) {
	line, _, _ := strings.Cut(notes, "\n")
	start, end, ok := strings.Cut(strings.TrimSpace(line), "-")
	if !ok {
		return "", ""
	}
	return strings.TrimSpace(start), strings.TrimSpace(end)
}

// wrapError wraps API errors with user-friendly messages.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("token expired or revoked (run: daysched login): %w", service.ErrUnauthorized)
		case http.StatusNotFound:
			return fmt.Errorf("not found: %w", err)
		}
	}
	return err
}
