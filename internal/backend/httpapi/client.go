// Package httpapi implements the service.Service interface against the
// schedule server's JSON HTTP API.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"daysched/internal/service"
)

const (
	pathView         = "/schedule/view"
	pathSave         = "/save-schedule"
	pathUpdateStatus = "/schedule/update-status/"
	pathDelete       = "/taskdelete"

	// maxBody caps how much of a response is read.
	maxBody = 4 << 20
)

// StatusError is a non-2xx response from the server.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("server returned %d %s", e.Code, http.StatusText(e.Code))
}

// Is matches service.ErrUnauthorized for 401 and 403 responses.
func (e *StatusError) Is(target error) bool {
	return target == service.ErrUnauthorized &&
		(e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden)
}

// Client implements service.Service over HTTP.
type Client struct {
	base *url.URL
	// base transport; the bearer token is layered on per session
	http *http.Client
	log  *log.Logger
}

// New creates a client for the server at baseURL. A nil httpClient uses
// http.DefaultClient as the underlying transport.
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url %q: scheme must be http or https", baseURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{base: u, http: httpClient, log: log.New(io.Discard)}, nil
}

// SetLogger sets the logger for response problems that do not fail a call.
func (c *Client) SetLogger(l *log.Logger) {
	if l != nil {
		c.log = l
	}
}

type viewRequest struct {
	Username string `json:"username"`
	Mode     string `json:"mode"`
	Date     string `json:"date"`
}

type saveRequest struct {
	Username string              `json:"username"`
	Tasks    []service.TaskInput `json:"tasks"`
}

type statusRequest struct {
	TaskID string         `json:"taskId"`
	Status service.Status `json:"status"`
}

type deleteRequest struct {
	Username string `json:"username"`
	TaskID   string `json:"taskId"`
}

type taskListResponse struct {
	Tasks []service.Task `json:"tasks"`
}

// LoadSchedule implements service.Service.
func (c *Client) LoadSchedule(ctx context.Context, sess service.Session, date string) ([]service.Task, error) {
	body, err := c.do(ctx, sess, http.MethodPost, pathView, viewRequest{
		Username: sess.Username,
		Mode:     "specific",
		Date:     date,
	})
	if err != nil {
		return nil, err
	}
	return decodeTaskList(body)
}

// SaveSchedule implements service.Service.
func (c *Client) SaveSchedule(ctx context.Context, sess service.Session, tasks []service.TaskInput) error {
	_, err := c.do(ctx, sess, http.MethodPost, pathSave, saveRequest{
		Username: sess.Username,
		Tasks:    tasks,
	})
	return err
}

// UpdateStatus implements service.Service.
func (c *Client) UpdateStatus(ctx context.Context, sess service.Session, taskID string, status service.Status) error {
	_, err := c.do(ctx, sess, http.MethodPut, pathUpdateStatus+url.PathEscape(sess.Username), statusRequest{
		TaskID: taskID,
		Status: status,
	})
	return err
}

// DeleteTask implements service.Service.
func (c *Client) DeleteTask(ctx context.Context, sess service.Session, taskID string) ([]service.Task, error) {
	body, err := c.do(ctx, sess, http.MethodPost, pathDelete, deleteRequest{
		Username: sess.Username,
		TaskID:   taskID,
	})
	if err != nil {
		return nil, err
	}
	// A 2xx confirms the delete; the remaining-tasks listing is extra.
	tasks, err := decodeTaskList(body)
	if err != nil {
		c.log.Warn("ignoring unreadable delete response", "task", taskID, "err", err)
		return []service.Task{}, nil
	}
	return tasks, nil
}

// do sends a JSON request with the session's bearer token and returns the
// response body of a 2xx response.
func (c *Client) do(ctx context.Context, sess service.Session, method, path string, payload any) ([]byte, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	endpoint := c.base.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.clientFor(ctx, sess).Do(req)
	if err != nil {
		return nil, wrapError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Message: serverMessage(body)}
	}
	return body, nil
}

// clientFor returns an HTTP client that attaches sess.Token as a bearer
// credential on top of the configured base client.
func (c *Client) clientFor(ctx context.Context, sess service.Session) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	src := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: sess.Token,
		TokenType:   "Bearer",
	})
	return oauth2.NewClient(ctx, src)
}

func decodeTaskList(body []byte) ([]service.Task, error) {
	if err := validateTaskList(body); err != nil {
		return nil, err
	}
	var resp taskListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.Tasks == nil {
		resp.Tasks = []service.Task{}
	}
	return resp.Tasks, nil
}

// serverMessage extracts a human-readable message from an error body.
func serverMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	if strings.HasPrefix(msg, "<") {
		// HTML error pages are not useful to show.
		return ""
	}
	return msg
}

// wrapError turns transport errors into shorter messages.
func wrapError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s %s: %w", strings.ToUpper(urlErr.Op), urlErr.URL, urlErr.Err)
	}
	return err
}
