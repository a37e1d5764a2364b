package commands_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"

	"daysched/internal/commands"
	"daysched/internal/config"
	"daysched/internal/exitcode"
	"daysched/internal/service"
	"daysched/internal/testutil"
)

func init() {
	color.NoColor = true
}

var sess = service.Session{Username: "ada", Token: "tok"}

const day = "2024-03-10"

// runCommand is a helper to run a command with FakeService.
func runCommand(t *testing.T, cmd commands.Command, svc *testutil.FakeService, args []string, quiet bool) (stdout, stderr string, code int) {
	t.Helper()

	var outBuf, errBuf bytes.Buffer
	env := &commands.Env{
		Config:  &config.Config{Dir: t.TempDir(), Quiet: quiet},
		Session: sess,
		Out:     &outBuf,
		ErrOut:  &errBuf,
	}
	if svc != nil {
		env.Service = svc
	}

	code = cmd.Run(context.Background(), env, args)
	return outBuf.String(), errBuf.String(), code
}

func seeded() *testutil.FakeService {
	svc := testutil.NewFakeService()
	svc.AddTask(day, "a", "Gym", "07:00", "08:00")
	svc.AddTask(day, "b", "Write", "23:30", "00:15")
	return svc
}

func TestVersionCommand(t *testing.T) {
	stdout, stderr, code := runCommand(t, &commands.VersionCmd{}, nil, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if !strings.Contains(stdout, commands.Version) {
		t.Errorf("expected version in output, got %q", stdout)
	}
}

func TestHelpCommand(t *testing.T) {
	stdout, stderr, code := runCommand(t, &commands.HelpCmd{}, nil, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	testutil.GoldenString(t, "help", stdout)
}

func TestViewCommand(t *testing.T) {
	cmd := &commands.ViewCmd{}
	cmd.SetDate(day)

	stdout, stderr, code := runCommand(t, cmd, seeded(), nil, false)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	lines := strings.Split(strings.TrimRight(stdout, "\n"), "\n")
	if len(lines) != 3 || lines[0] != day {
		t.Fatalf("unexpected output:\n%s", stdout)
	}
	if !strings.Contains(lines[1], "Gym") || !strings.Contains(lines[1], "1h 0m") {
		t.Errorf("first row = %q", lines[1])
	}
	if !strings.Contains(lines[2], "Write") || !strings.Contains(lines[2], "45m") {
		t.Errorf("second row = %q", lines[2])
	}
}

func TestViewCommand_Empty(t *testing.T) {
	cmd := &commands.ViewCmd{}
	cmd.SetDate("2024-01-01")

	stdout, _, code := runCommand(t, cmd, seeded(), nil, false)
	if code != exitcode.Success {
		t.Fatalf("exit code %d", code)
	}
	if stdout != "2024-01-01\n(no tasks)\n" {
		t.Errorf("got %q", stdout)
	}
}

func TestViewCommand_InvalidDate(t *testing.T) {
	svc := seeded()
	cmd := &commands.ViewCmd{}
	cmd.SetDate("2024-02-30")

	_, stderr, code := runCommand(t, cmd, svc, nil, false)
	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if !strings.Contains(stderr, "invalid date") {
		t.Errorf("stderr = %q", stderr)
	}
	if svc.LoadCalls != 0 {
		t.Errorf("invalid date fetched %d times", svc.LoadCalls)
	}
}

func TestViewCommand_PreviousAndDateConflict(t *testing.T) {
	cmd := &commands.ViewCmd{}
	cmd.SetDate(day)
	cmd.SetPrevious(true)

	_, stderr, code := runCommand(t, cmd, seeded(), nil, false)
	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: cannot use both --previous and --date\n" {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestViewCommand_BackendError(t *testing.T) {
	svc := seeded()
	svc.LoadScheduleErr[day] = errors.New("connection refused")
	cmd := &commands.ViewCmd{}
	cmd.SetDate(day)

	_, stderr, code := runCommand(t, cmd, svc, nil, false)
	if code != exitcode.BackendError {
		t.Errorf("expected exit code %d, got %d", exitcode.BackendError, code)
	}
	if !strings.HasPrefix(stderr, "error: backend error: ") || !strings.Contains(stderr, "connection refused") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestViewCommand_Unauthorized(t *testing.T) {
	svc := seeded()
	svc.LoadScheduleErr[day] = service.ErrUnauthorized
	cmd := &commands.ViewCmd{}
	cmd.SetDate(day)

	_, stderr, code := runCommand(t, cmd, svc, nil, false)
	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if !strings.Contains(stderr, "daysched login") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestAddCommand_Success(t *testing.T) {
	svc := seeded()
	cmd := &commands.AddCmd{}
	cmd.SetDate(day)

	stdout, stderr, code := runCommand(t, cmd, svc, []string{"20:00", "21:30", "Read", "a", "book"}, false)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if stdout != "added: Read a book (20:00-21:30, 1h 30m)\n" {
		t.Errorf("stdout = %q", stdout)
	}
	tasks := svc.Tasks(day)
	if len(tasks) != 3 || tasks[2].Title != "Read a book" || tasks[2].Status != service.StatusPending {
		t.Errorf("stored tasks = %+v", tasks)
	}
}

func TestAddCommand_Quiet(t *testing.T) {
	cmd := &commands.AddCmd{}
	cmd.SetDate(day)

	stdout, _, code := runCommand(t, cmd, seeded(), []string{"20:00", "21:00", "Read"}, true)
	if code != exitcode.Success {
		t.Errorf("exit code %d", code)
	}
	if stdout != "" {
		t.Errorf("expected no stdout in quiet mode, got %q", stdout)
	}
}

func TestAddCommand_BadInput(t *testing.T) {
	tests := map[string][]string{
		"missing title": {"20:00", "21:00"},
		"bad start":     {"8pm", "21:00", "Read"},
		"bad end":       {"20:00", "24:00", "Read"},
		"blank title":   {"20:00", "21:00", " "},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			svc := seeded()
			cmd := &commands.AddCmd{}
			cmd.SetDate(day)

			_, stderr, code := runCommand(t, cmd, svc, args, false)
			if code != exitcode.UserError {
				t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
			}
			if !strings.HasPrefix(stderr, "error: ") {
				t.Errorf("stderr = %q", stderr)
			}
			if svc.SaveCalls != 0 {
				t.Errorf("invalid input was sent")
			}
		})
	}
}

func TestDoneCommand_ByPosition(t *testing.T) {
	svc := seeded()
	cmd := &commands.DoneCmd{}
	cmd.SetDate(day)

	stdout, stderr, code := runCommand(t, cmd, svc, []string{"2"}, false)
	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if stdout != "completed: Write (23:30-00:15, 45m)\n" {
		t.Errorf("stdout = %q", stdout)
	}
	if got, _ := svc.Lookup("b"); got.Status != service.StatusCompleted {
		t.Errorf("status = %s", got.Status)
	}
}

func TestDoneCommand_ReopensByID(t *testing.T) {
	svc := seeded()
	cmd := &commands.DoneCmd{}
	cmd.SetDate(day)
	cmd.SetID("a")

	if _, _, code := runCommand(t, cmd, svc, nil, true); code != exitcode.Success {
		t.Fatalf("first toggle: exit code %d", code)
	}
	stdout, _, code := runCommand(t, cmd, svc, nil, false)
	if code != exitcode.Success {
		t.Fatalf("second toggle: exit code %d", code)
	}
	if !strings.HasPrefix(stdout, "reopened: Gym") {
		t.Errorf("stdout = %q", stdout)
	}
	if got, _ := svc.Lookup("a"); got.Status != service.StatusPending {
		t.Errorf("status = %s", got.Status)
	}
}

func TestDoneCommand_BadRef(t *testing.T) {
	tests := []struct {
		name string
		args []string
		id   string
		want string
	}{
		{"no ref", nil, "", "error: task reference required\n"},
		{"not a number", []string{"a1"}, "", "error: invalid task reference: a1\n"},
		{"out of range", []string{"3"}, "", "error: task number out of range: 3\n"},
		{"unknown id", nil, "zzz", "error: task not found: zzz\n"},
		{"both", []string{"1"}, "a", "error: cannot use both --id and a task number\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := seeded()
			cmd := &commands.DoneCmd{}
			cmd.SetDate(day)
			cmd.SetID(tt.id)

			_, stderr, code := runCommand(t, cmd, svc, tt.args, false)
			if code != exitcode.UserError {
				t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
			}
			if stderr != tt.want {
				t.Errorf("stderr = %q, want %q", stderr, tt.want)
			}
			if svc.UpdateCalls != 0 {
				t.Errorf("update sent for a bad reference")
			}
		})
	}
}

func TestDoneCommand_BackendErrorRollsBack(t *testing.T) {
	svc := seeded()
	svc.UpdateStatusErr = errors.New("server returned 500")
	cmd := &commands.DoneCmd{}
	cmd.SetDate(day)

	_, stderr, code := runCommand(t, cmd, svc, []string{"1"}, false)
	if code != exitcode.BackendError {
		t.Errorf("expected exit code %d, got %d", exitcode.BackendError, code)
	}
	if !strings.Contains(stderr, "server returned 500") {
		t.Errorf("stderr = %q", stderr)
	}
	if got, _ := svc.Lookup("a"); got.Status != service.StatusPending {
		t.Errorf("remote status changed: %s", got.Status)
	}
}

func TestRmCommand_Success(t *testing.T) {
	svc := seeded()
	cmd := &commands.RmCmd{}
	cmd.SetDate(day)

	stdout, stderr, code := runCommand(t, cmd, svc, []string{"1"}, false)
	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if stdout != "deleted: Gym (07:00-08:00, 1h 0m)\n" {
		t.Errorf("stdout = %q", stdout)
	}
	if _, ok := svc.Lookup("a"); ok {
		t.Error("task still stored")
	}
}

func TestRmCommand_BackendError(t *testing.T) {
	svc := seeded()
	svc.DeleteTaskErr = errors.New("server returned 503")
	cmd := &commands.RmCmd{}
	cmd.SetDate(day)
	cmd.SetID("b")

	_, _, code := runCommand(t, cmd, svc, nil, false)
	if code != exitcode.BackendError {
		t.Errorf("expected exit code %d, got %d", exitcode.BackendError, code)
	}
	if _, ok := svc.Lookup("b"); !ok {
		t.Error("task removed despite failure")
	}
}

func TestCommandsWithoutSession(t *testing.T) {
	svc := seeded()
	cmd := &commands.ViewCmd{}
	cmd.SetDate(day)

	var outBuf, errBuf bytes.Buffer
	env := &commands.Env{
		Config:  &config.Config{Dir: t.TempDir()},
		Service: svc,
		Out:     &outBuf,
		ErrOut:  &errBuf,
	}
	code := cmd.Run(context.Background(), env, nil)
	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if errBuf.String() != "error: not logged in (run: daysched login)\n" {
		t.Errorf("stderr = %q", errBuf.String())
	}
	if svc.LoadCalls != 0 {
		t.Error("request sent without a session")
	}
}

func TestRegistry_Aliases(t *testing.T) {
	for alias, name := range map[string]string{"ls": "view", "toggle": "done", "delete": "rm"} {
		cmd, ok := commands.DefaultRegistry.Find(alias)
		if !ok || cmd.Name() != name {
			t.Errorf("alias %s: got %v", alias, cmd)
		}
	}
}

func TestRegistry_DuplicateName(t *testing.T) {
	reg := commands.NewRegistry()
	if err := reg.Register(&commands.ViewCmd{}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := reg.Register(&commands.ViewCmd{}); err == nil {
		t.Error("expected duplicate registration error")
	}
}
