package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"daysched/internal/backend/httpapi"
	"daysched/internal/service"
)

var sess = service.Session{Username: "ada lovelace", Token: "tok-123"}

// recorded is one request seen by the test server.
type recorded struct {
	method string
	path   string
	auth   string
	body   map[string]any
}

func newServer(t *testing.T, status int, response string) (*httpapi.Client, func() []recorded) {
	t.Helper()
	var (
		mu   sync.Mutex
		seen []recorded
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(data, &body)
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, recorded{
			method: r.Method,
			path:   r.URL.EscapedPath(),
			auth:   r.Header.Get("Authorization"),
			body:   body,
		})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)

	client, err := httpapi.New(srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client, func() []recorded {
		mu.Lock()
		defer mu.Unlock()
		return append([]recorded(nil), seen...)
	}
}

const twoTasks = `{"tasks":[
  {"id":"b","title":"Gym","date":"2024-03-10","startTime":"07:00","endTime":"08:00","status":"completed"},
  {"id":"a","title":"Write","date":"2024-03-10","startTime":"23:30","endTime":"00:15","status":"pending"}
]}`

func TestLoadSchedule(t *testing.T) {
	client, seen := newServer(t, http.StatusOK, twoTasks)

	tasks, err := client.LoadSchedule(context.Background(), sess, "2024-03-10")
	if err != nil {
		t.Fatalf("LoadSchedule: %v", err)
	}
	if len(tasks) != 2 || tasks[0].ID != "b" || tasks[1].ID != "a" {
		t.Fatalf("unexpected tasks: %+v", tasks)
	}
	if tasks[0].Status != service.StatusCompleted || tasks[1].EndTime != "00:15" {
		t.Errorf("fields not decoded: %+v", tasks)
	}

	req := seen()[0]
	if req.method != http.MethodPost || req.path != "/schedule/view" {
		t.Errorf("request = %s %s", req.method, req.path)
	}
	if req.auth != "Bearer tok-123" {
		t.Errorf("Authorization = %q", req.auth)
	}
	if req.body["username"] != "ada lovelace" || req.body["mode"] != "specific" || req.body["date"] != "2024-03-10" {
		t.Errorf("body = %v", req.body)
	}
}

func TestLoadSchedule_EmptyList(t *testing.T) {
	client, _ := newServer(t, http.StatusOK, `{"tasks":[]}`)
	tasks, err := client.LoadSchedule(context.Background(), sess, "2024-03-10")
	if err != nil {
		t.Fatalf("LoadSchedule: %v", err)
	}
	if tasks == nil || len(tasks) != 0 {
		t.Errorf("expected empty non-nil list, got %#v", tasks)
	}
}

func TestLoadSchedule_InvalidPayload(t *testing.T) {
	tests := map[string]string{
		"not json":       `<html>`,
		"missing tasks":  `{}`,
		"bad status":     `{"tasks":[{"id":"a","title":"x","date":"2024-03-10","startTime":"07:00","endTime":"08:00","status":"done"}]}`,
		"missing id":     `{"tasks":[{"title":"x","date":"2024-03-10","startTime":"07:00","endTime":"08:00","status":"pending"}]}`,
		"tasks not list": `{"tasks":"nope"}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			client, _ := newServer(t, http.StatusOK, body)
			_, err := client.LoadSchedule(context.Background(), sess, "2024-03-10")
			var respErr *httpapi.ResponseError
			if !errors.As(err, &respErr) {
				t.Fatalf("expected ResponseError, got %v", err)
			}
		})
	}
}

func TestLoadSchedule_OddTimesKeepTheDay(t *testing.T) {
	body := `{"tasks":[
  {"id":"a","title":"Gym","date":"2024-03-10","startTime":"07:00","endTime":"08:00","status":"pending"},
  {"id":"b","title":"Walk","date":"2024-03-10","startTime":"9:00","endTime":"","status":"pending"}
]}`
	client, _ := newServer(t, http.StatusOK, body)

	tasks, err := client.LoadSchedule(context.Background(), sess, "2024-03-10")
	if err != nil {
		t.Fatalf("LoadSchedule: %v", err)
	}
	if len(tasks) != 2 || tasks[1].StartTime != "9:00" || tasks[1].EndTime != "" {
		t.Errorf("tasks = %+v", tasks)
	}
}

func TestSaveSchedule(t *testing.T) {
	client, seen := newServer(t, http.StatusOK, `{}`)

	err := client.SaveSchedule(context.Background(), sess, []service.TaskInput{
		{Title: "Read", Date: "2024-03-10", StartTime: "20:00", EndTime: "21:00"},
	})
	if err != nil {
		t.Fatalf("SaveSchedule: %v", err)
	}

	req := seen()[0]
	if req.method != http.MethodPost || req.path != "/save-schedule" {
		t.Errorf("request = %s %s", req.method, req.path)
	}
	tasks, ok := req.body["tasks"].([]any)
	if !ok || len(tasks) != 1 {
		t.Fatalf("tasks = %v", req.body["tasks"])
	}
	first := tasks[0].(map[string]any)
	if first["title"] != "Read" || first["startTime"] != "20:00" {
		t.Errorf("task body = %v", first)
	}
}

func TestUpdateStatus_AddressesTaskByID(t *testing.T) {
	client, seen := newServer(t, http.StatusOK, ``)

	if err := client.UpdateStatus(context.Background(), sess, "a", service.StatusCompleted); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	req := seen()[0]
	if req.method != http.MethodPut {
		t.Errorf("method = %s, want PUT", req.method)
	}
	if req.path != "/schedule/update-status/ada%20lovelace" {
		t.Errorf("path = %s", req.path)
	}
	if req.body["taskId"] != "a" || req.body["status"] != "completed" {
		t.Errorf("body = %v", req.body)
	}
	if _, ok := req.body["index"]; ok {
		t.Error("positional index must not be sent")
	}
}

func TestDeleteTask(t *testing.T) {
	client, seen := newServer(t, http.StatusOK, `{"tasks":[]}`)

	if _, err := client.DeleteTask(context.Background(), sess, "a"); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	req := seen()[0]
	if req.method != http.MethodPost || req.path != "/taskdelete" {
		t.Errorf("request = %s %s", req.method, req.path)
	}
	if req.body["username"] != "ada lovelace" || req.body["taskId"] != "a" {
		t.Errorf("body = %v", req.body)
	}
}

func TestDeleteTask_ConfirmedDespiteUnreadableListing(t *testing.T) {
	tests := map[string]string{
		"odd time":   `{"tasks":[{"id":"c","title":"x","date":"2024-03-11","startTime":"9:00","endTime":"10:00","status":"pending"}]}`,
		"missing id": `{"tasks":[{"title":"x","status":"pending"}]}`,
		"not json":   `ok`,
		"empty":      ``,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			client, seen := newServer(t, http.StatusOK, body)
			var logs bytes.Buffer
			client.SetLogger(log.New(&logs))

			if _, err := client.DeleteTask(context.Background(), sess, "a"); err != nil {
				t.Fatalf("DeleteTask: %v", err)
			}
			if len(seen()) != 1 {
				t.Errorf("requests = %d", len(seen()))
			}
			if name != "odd time" && !strings.Contains(logs.String(), "ignoring unreadable delete response") {
				t.Errorf("expected a warning, got %q", logs.String())
			}
		})
	}
}

func TestStatusErrors(t *testing.T) {
	tests := []struct {
		status       int
		body         string
		wantMsg      string
		unauthorized bool
	}{
		{http.StatusInternalServerError, `{"message":"database down"}`, "database down", false},
		{http.StatusBadRequest, `{"error":"bad date"}`, "bad date", false},
		{http.StatusUnauthorized, `{"message":"token expired"}`, "token expired", true},
		{http.StatusForbidden, ``, "", true},
		{http.StatusBadGateway, `<html>bad gateway</html>`, "", false},
	}

	for _, tt := range tests {
		client, _ := newServer(t, tt.status, tt.body)
		err := client.UpdateStatus(context.Background(), sess, "a", service.StatusPending)

		var statusErr *httpapi.StatusError
		if !errors.As(err, &statusErr) {
			t.Fatalf("status %d: expected StatusError, got %v", tt.status, err)
		}
		if statusErr.Code != tt.status || statusErr.Message != tt.wantMsg {
			t.Errorf("status %d: got %+v", tt.status, statusErr)
		}
		if errors.Is(err, service.ErrUnauthorized) != tt.unauthorized {
			t.Errorf("status %d: ErrUnauthorized match = %v", tt.status, !tt.unauthorized)
		}
	}
}

func TestMissingSessionSendsNothing(t *testing.T) {
	client, seen := newServer(t, http.StatusOK, `{"tasks":[]}`)
	_, err := client.LoadSchedule(context.Background(), service.Session{Username: "ada"}, "2024-03-10")
	if !errors.Is(err, service.ErrMissingSession) {
		t.Fatalf("expected ErrMissingSession, got %v", err)
	}
	if len(seen()) != 0 {
		t.Error("request sent without a credential")
	}
}

func TestContextDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	client, err := httpapi.New(srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = client.LoadSchedule(ctx, sess, "2024-03-10")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("error should mention the timeout: %v", err)
	}
}

func TestNew_RejectsBadBaseURL(t *testing.T) {
	for _, u := range []string{"", "localhost:5000", "ftp://example.com", "://"} {
		if _, err := httpapi.New(u, nil); err == nil {
			t.Errorf("New(%q): expected error", u)
		}
	}
}

func TestNew_BasePathIsKept(t *testing.T) {
	paths := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths <- r.URL.Path
		_, _ = io.WriteString(w, `{"tasks":[]}`)
	}))
	defer srv.Close()

	client, err := httpapi.New(srv.URL+"/api/", srv.Client())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := client.LoadSchedule(context.Background(), sess, "2024-03-10"); err != nil {
		t.Fatalf("LoadSchedule: %v", err)
	}
	if path := <-paths; path != "/api/schedule/view" {
		t.Errorf("path = %q", path)
	}
}
