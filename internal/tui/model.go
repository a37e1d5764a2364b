// Package tui is the interactive schedule view. It renders controller
// snapshots and turns keys into controller calls; all schedule state lives
// in the controller.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"daysched/internal/schedule"
	"daysched/internal/service"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	cursorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	doneStyle    = lipgloss.NewStyle().Faint(true).Strikethrough(true)
	busyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	footerStyle  = lipgloss.NewStyle().Faint(true)
	timeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	confirmStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

const footerHelp = "t: today  p: previous  d: date  a: add  space: toggle  x: delete  r: reload  q: quit"

type loadedMsg struct{ err error }

type mutatedMsg struct {
	op  schedule.Op
	id  string
	err error
}

type eventMsg schedule.Event

type noticeMsg schedule.Notice

// Model is the Bubble Tea model.
type Model struct {
	ctx  context.Context
	ctrl *schedule.Controller
	sess service.Session
	init schedule.Selection

	view   schedule.View
	cursor int
	status string

	editingDate bool
	dateInput   textinput.Model

	// addInput reads "HH:MM HH:MM title" for a new task on the shown date.
	adding   bool
	addInput textinput.Model

	// confirmID is the task awaiting delete confirmation.
	confirmID string

	spinner  spinner.Model
	quitting bool
}

// New returns a model that starts on sel.
func New(ctx context.Context, ctrl *schedule.Controller, sess service.Session, sel schedule.Selection) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot

	in := textinput.New()
	in.Placeholder = schedule.DateLayout
	in.CharLimit = len(schedule.DateLayout)
	in.Width = 12
	in.Prompt = "date: "

	add := textinput.New()
	add.Placeholder = "07:00 08:00 title"
	add.Width = 40
	add.Prompt = "add: "

	return Model{
		ctx:       ctx,
		ctrl:      ctrl,
		sess:      sess,
		init:      sel,
		view:      ctrl.Snapshot(),
		dateInput: in,
		addInput:  add,
		spinner:   s,
	}
}

// Run starts the interactive program and blocks until the user quits.
func Run(ctx context.Context, ctrl *schedule.Controller, sess service.Session, sel schedule.Selection) error {
	_, err := tea.NewProgram(New(ctx, ctrl, sess, sel), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.selectCmd(m.init),
		m.waitEvent(),
		m.waitNotice(),
	)
}

func (m Model) selectCmd(sel schedule.Selection) tea.Cmd {
	return func() tea.Msg {
		return loadedMsg{err: m.ctrl.Select(m.ctx, m.sess, sel)}
	}
}

func (m Model) reloadCmd() tea.Cmd {
	return func() tea.Msg {
		return loadedMsg{err: m.ctrl.Reload(m.ctx, m.sess)}
	}
}

func (m Model) toggleCmd(id string) tea.Cmd {
	return func() tea.Msg {
		return mutatedMsg{op: schedule.OpUpdate, id: id, err: m.ctrl.Toggle(m.ctx, m.sess, id)}
	}
}

func (m Model) deleteCmd(id string) tea.Cmd {
	return func() tea.Msg {
		return mutatedMsg{op: schedule.OpDelete, id: id, err: m.ctrl.Delete(m.ctx, m.sess, id)}
	}
}

func (m Model) addCmd(in service.TaskInput) tea.Cmd {
	return func() tea.Msg {
		return mutatedMsg{op: schedule.OpSave, err: m.ctrl.Add(m.ctx, m.sess, []service.TaskInput{in})}
	}
}

func (m Model) waitEvent() tea.Cmd {
	events := m.ctrl.Events()
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return eventMsg(ev)
	}
}

func (m Model) waitNotice() tea.Cmd {
	notices := m.ctrl.Notices()
	return func() tea.Msg {
		n, ok := <-notices
		if !ok {
			return nil
		}
		return noticeMsg(n)
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.editingDate {
			return m.updateDateInput(msg)
		}
		if m.adding {
			return m.updateAddInput(msg)
		}
		return m.handleKey(msg)

	case loadedMsg:
		m.refresh()
		if msg.err != nil && !isRemote(msg.err) {
			// Remote failures arrive as notices.
			m.status = msg.err.Error()
		}
		return m, nil

	case mutatedMsg:
		m.refresh()
		if errors.Is(msg.err, schedule.ErrMutationInFlight) {
			m.status = "still saving, try again"
		} else if msg.err != nil && !isRemote(msg.err) {
			m.status = msg.err.Error()
		} else if msg.err == nil && msg.op == schedule.OpSave {
			m.status = "task added"
		}
		return m, nil

	case eventMsg:
		m.refresh()
		return m, m.waitEvent()

	case noticeMsg:
		m.status = schedule.Notice(msg).String()
		return m, m.waitNotice()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if m.confirmID != "" {
		id := m.confirmID
		m.confirmID = ""
		if key == "y" || key == "Y" {
			m.status = ""
			return m, m.deleteCmd(id)
		}
		m.status = "delete cancelled"
		return m, nil
	}

	switch key {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "t":
		m.status = ""
		return m, m.selectCmd(schedule.Today())
	case "p":
		m.status = ""
		return m, m.selectCmd(schedule.Previous())
	case "d":
		m.editingDate = true
		m.dateInput.SetValue(m.view.Selection.ExplicitDate)
		m.dateInput.CursorEnd()
		return m, m.dateInput.Focus()
	case "a":
		if m.view.Date == "" {
			m.status = "no date selected"
			return m, nil
		}
		m.adding = true
		m.addInput.SetValue("")
		return m, m.addInput.Focus()
	case "r":
		m.status = ""
		return m, m.reloadCmd()
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.view.Tasks)-1 {
			m.cursor++
		}
	case " ":
		if task, ok := m.selected(); ok {
			m.status = ""
			return m, m.toggleCmd(task.ID)
		}
	case "x":
		if task, ok := m.selected(); ok {
			m.confirmID = task.ID
			m.status = fmt.Sprintf("delete %q? (y/n)", task.Title)
		}
	}
	return m, nil
}

func (m Model) updateDateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.editingDate = false
		m.dateInput.Blur()
		return m, nil
	case tea.KeyEnter:
		value := strings.TrimSpace(m.dateInput.Value())
		if err := schedule.ValidateDate(value); err != nil {
			// Keep editing; nothing is fetched for an invalid date.
			m.status = err.Error()
			return m, nil
		}
		m.editingDate = false
		m.dateInput.Blur()
		m.status = ""
		return m, m.selectCmd(schedule.Specific(value))
	}

	var cmd tea.Cmd
	m.dateInput, cmd = m.dateInput.Update(msg)
	return m, cmd
}

func (m Model) updateAddInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.adding = false
		m.addInput.Blur()
		return m, nil
	case tea.KeyEnter:
		in, err := parseAddInput(m.addInput.Value(), m.view.Date)
		if err != nil {
			// Keep editing; nothing is sent for bad input.
			m.status = err.Error()
			return m, nil
		}
		m.adding = false
		m.addInput.Blur()
		m.status = ""
		return m, m.addCmd(in)
	}

	var cmd tea.Cmd
	m.addInput, cmd = m.addInput.Update(msg)
	return m, cmd
}

// parseAddInput reads "HH:MM HH:MM title words" into a task for date.
func parseAddInput(value, date string) (service.TaskInput, error) {
	fields := strings.Fields(value)
	if len(fields) < 3 {
		return service.TaskInput{}, errors.New("want: start end title")
	}
	start, err := schedule.ParseClock(fields[0])
	if err != nil {
		return service.TaskInput{}, err
	}
	end, err := schedule.ParseClock(fields[1])
	if err != nil {
		return service.TaskInput{}, err
	}
	return service.TaskInput{
		Title:     strings.Join(fields[2:], " "),
		Date:      date,
		StartTime: start.String(),
		EndTime:   end.String(),
	}, nil
}

// refresh re-reads the controller snapshot and clamps the cursor.
func (m *Model) refresh() {
	m.view = m.ctrl.Snapshot()
	if m.cursor >= len(m.view.Tasks) {
		m.cursor = len(m.view.Tasks) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// selected returns the task under the cursor. Nothing is selectable while
// the list still belongs to another date.
func (m Model) selected() (service.Task, bool) {
	if m.view.TasksDate != m.view.Date {
		return service.Task{}, false
	}
	if m.cursor < 0 || m.cursor >= len(m.view.Tasks) {
		return service.Task{}, false
	}
	return m.view.Tasks[m.cursor], true
}

func isRemote(err error) bool {
	var opErr *schedule.OpError
	return errors.As(err, &opErr)
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	title := "daysched"
	if m.view.Date != "" {
		title = fmt.Sprintf("daysched  %s  %s", m.view.Selection.Mode, m.view.Date)
	}
	header := headerStyle.Render(title)
	if m.view.State == schedule.StateLoading {
		header += " " + m.spinner.View()
	}

	var b strings.Builder
	switch {
	case m.view.State == schedule.StateFailed && m.view.TasksDate != m.view.Date:
		b.WriteString(errorStyle.Render("could not load " + m.view.Date))
	case m.view.TasksDate != m.view.Date:
		b.WriteString(footerStyle.Render("loading " + m.view.Date + " " + m.spinner.View()))
	case len(m.view.Tasks) == 0 && m.view.State != schedule.StateLoading:
		b.WriteString(footerStyle.Render("no tasks"))
	default:
		inFlight := make(map[string]bool, len(m.view.InFlight))
		for _, id := range m.view.InFlight {
			inFlight[id] = true
		}
		for i, task := range m.view.Tasks {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(m.renderTask(i, task, inFlight[task.ID]))
		}
	}

	parts := []string{header, b.String()}
	if m.editingDate {
		parts = append(parts, m.dateInput.View())
	}
	if m.adding {
		parts = append(parts, m.addInput.View())
	}
	if m.status != "" {
		style := errorStyle
		if m.confirmID != "" {
			style = confirmStyle
		}
		parts = append(parts, style.Render(m.status))
	}
	parts = append(parts, footerStyle.Render(footerHelp))
	return strings.Join(parts, "\n\n")
}

func (m Model) renderTask(i int, task service.Task, busy bool) string {
	pointer := "  "
	if i == m.cursor {
		pointer = cursorStyle.Render("> ")
	}
	mark := "[ ]"
	title := task.Title
	if task.Status.Done() {
		mark = "[x]"
		title = doneStyle.Render(title)
	}
	line := fmt.Sprintf("%s%s %s %6s  %s",
		pointer,
		mark,
		timeStyle.Render(task.StartTime+"-"+task.EndTime),
		schedule.Duration(task.StartTime, task.EndTime),
		title,
	)
	if busy {
		line += " " + busyStyle.Render("…")
	}
	return line
}
