// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"daysched/internal/schedule"
	"daysched/internal/service"
)

const (
	markDone    = "[x]"
	markPending = "[ ]"
)

var (
	headerStyle = color.New(color.Bold, color.Underline)
	doneStyle   = color.New(color.Faint)
	timeStyle   = color.New(color.FgCyan)
	noticeStyle = color.New(color.FgYellow)
)

// FormatSchedule writes the tasks of one date as a table:
// position, status mark, time range, duration, title.
// Positions are 1-based and follow the server order.
func FormatSchedule(w io.Writer, date string, tasks []service.Task) {
	fmt.Fprintln(w, headerStyle.Sprint(date))
	if len(tasks) == 0 {
		fmt.Fprintln(w, "(no tasks)")
		return
	}

	tbl := uitable.New()
	tbl.Separator = "  "
	for i, task := range tasks {
		tbl.AddRow(taskRow(i+1, task)...)
	}
	fmt.Fprintln(w, tbl)
}

func taskRow(num int, task service.Task) []interface{} {
	mark := markPending
	title := normalizeTitle(task.Title)
	if task.Status.Done() {
		mark = markDone
		title = doneStyle.Sprint(title)
	}
	return []interface{}{
		strconv.Itoa(num),
		mark,
		timeStyle.Sprint(TimeRange(task)),
		schedule.Duration(task.StartTime, task.EndTime).String(),
		title,
	}
}

// TimeRange renders "07:00-08:00".
func TimeRange(task service.Task) string {
	return task.StartTime + "-" + task.EndTime
}

// FormatTaskLine writes a one-line summary used after add, done and rm.
func FormatTaskLine(w io.Writer, verb string, task service.Task) {
	fmt.Fprintf(w, "%s: %s (%s, %s)\n", verb, normalizeTitle(task.Title), TimeRange(task),
		schedule.Duration(task.StartTime, task.EndTime))
}

// FormatNotice writes a transient failure notice.
func FormatNotice(w io.Writer, n schedule.Notice) {
	fmt.Fprintln(w, noticeStyle.Sprint("! "+n.String()))
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	// Replace newlines with spaces
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")

	// Trim and check for empty
	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}
