package tui

import (
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/retox/internal/dashboard"
	"github.com/aristath/retox/internal/events"
)

// maxOutputLines bounds the output pane buffer.
const maxOutputLines = 500

// headerRows is the number of rows reserved above the panels for status lines.
const headerRows = 5

// Messages sent by Screen into the program
type printMsg struct {
	text string
	x, y int
}

type refreshMsg struct{}

type redrawMsg struct{}

// busMsg carries an event together with the subscription it came from.
type busMsg struct {
	event events.Event
	sub   <-chan events.Event
}

type placedLine struct {
	x    int
	text string
}

// Model is the root Bubble Tea model: status lines at fixed rows, the
// environment panels, and a scrollable pane with worker output.
type Model struct {
	dash     *dashboard.Dashboard
	redraws  <-chan struct{}
	runSub   <-chan events.Event
	outSub   <-chan events.Event
	keys     chan<- string
	height   *atomic.Int64
	// interrupt is called on ctrl+c before the quit key is forwarded
	interrupt func()

	// lines holds header rows by row number, bottom holds rows placed below
	// the header by distance from the last row
	lines   map[int]placedLine
	bottom  map[int]placedLine
	output  []string
	vp      viewport.Model
	spinner spinner.Model

	running  bool
	envsDone int
	envTotal int

	width int
	rows  int
}

func newModel(dash *dashboard.Dashboard, runSub, outSub <-chan events.Event, keys chan<- string, height *atomic.Int64) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = StyleSpinner

	return Model{
		dash:     dash,
		redraws:  dash.Redraws(),
		runSub:   runSub,
		outSub:   outSub,
		keys:     keys,
		height:   height,
		lines:    make(map[int]placedLine),
		bottom:   make(map[int]placedLine),
		vp:       viewport.New(0, 0),
		spinner:  s,
	}
}

// Init starts listening for redraw requests and run events.
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForRedraw(m.redraws), waitForEvent(m.runSub), waitForEvent(m.outSub))
}

// waitForRedraw returns a command that waits for the next dashboard redraw request.
func waitForRedraw(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return redrawMsg{}
	}
}

// waitForEvent returns a command that waits for the next event on sub.
func waitForEvent(sub <-chan events.Event) tea.Cmd {
	if sub == nil {
		return nil
	}
	return func() tea.Msg {
		event, ok := <-sub
		if !ok {
			return nil // bus closed
		}
		return busMsg{event: event, sub: sub}
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		key := msg.String()
		switch key {
		case KeyCtrlC:
			if m.interrupt != nil {
				m.interrupt()
			}
			key = KeyQuit
		case KeyJ, KeyK, KeyUp, KeyDown:
			// The viewport keymap scrolls on these
			var cmd tea.Cmd
			m.vp, cmd = m.vp.Update(msg)
			cmds = append(cmds, cmd)
			return m, tea.Batch(cmds...)
		}
		m.forwardKey(key)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.rows = msg.Height
		if m.height != nil {
			m.height.Store(int64(msg.Height))
		}
		m.resizeOutput()

	case printMsg:
		l := placedLine{x: msg.x, text: msg.text}
		if msg.y < headerRows {
			m.lines[msg.y] = l
		} else {
			// Keep the distance from the bottom so the row follows resizes
			m.bottom[max(m.currentRows()-1-msg.y, 0)] = l
		}

	case refreshMsg:
		// Nothing to do: every message is followed by a render

	case redrawMsg:
		cmds = append(cmds, waitForRedraw(m.redraws))

	case spinner.TickMsg:
		if m.running {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case busMsg:
		cmds = append(cmds, m.handleEvent(msg.event), waitForEvent(msg.sub))
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleEvent(event events.Event) tea.Cmd {
	switch e := event.(type) {
	case events.RunStartedEvent:
		m.running = true
		m.envsDone = 0
		m.envTotal = len(e.Envs)
		m.appendOutput(fmt.Sprintf("--- run %s", shortID(e.ID)))
		return m.spinner.Tick

	case events.EnvFinishedEvent:
		m.envsDone++
		m.appendOutput(fmt.Sprintf("--- %s finished: %s (%s)", e.Env, e.Status, e.Duration.Round(10*time.Millisecond)))

	case events.RunFinishedEvent:
		m.running = false
		m.appendOutput("--- " + e.Summary)

	case events.OutputEvent:
		m.appendOutput(e.Env + ": " + e.Line)
	}
	return nil
}

// forwardKey hands a key to the main loop without blocking the UI.
func (m Model) forwardKey(key string) {
	select {
	case m.keys <- key:
	default:
	}
}

func (m *Model) appendOutput(line string) {
	m.output = append(m.output, line)
	if len(m.output) > maxOutputLines {
		m.output = m.output[len(m.output)-maxOutputLines:]
	}
	atBottom := m.vp.AtBottom()
	m.vp.SetContent(strings.Join(m.output, "\n"))
	if atBottom {
		m.vp.GotoBottom()
	}
}

// currentRows is the terminal height the surface reports for placed rows.
func (m Model) currentRows() int {
	if m.rows > 0 {
		return m.rows
	}
	if m.height != nil && m.height.Load() > 0 {
		return int(m.height.Load())
	}
	return defaultHeight
}

func (m Model) panelRows() int {
	return max(m.rows/2, 4)
}

// outputRows is the outer height of the output pane, 0 when it does not fit.
func (m Model) outputRows() int {
	h := m.rows - headerRows - m.panelRows() - 2 // help + legend
	if h < 3 {
		return 0
	}
	return h
}

func (m *Model) resizeOutput() {
	m.vp.Width = max(m.width-2, 1)
	m.vp.Height = max(m.outputRows()-2, 1)
	m.vp.GotoBottom()
}

// View renders the status lines, the panels and the output pane.
func (m Model) View() string {
	if m.width == 0 || m.rows == 0 {
		return "Initializing..."
	}

	rows := make([]string, 0, m.rows)
	for y := 0; y < headerRows; y++ {
		rows = append(rows, m.statusLine(y))
	}

	rows = append(rows, m.dash.View(m.width, m.panelRows()))

	if h := m.outputRows(); h > 0 {
		rows = append(rows, StyleOutputBorder.
			Width(m.width-2).
			Height(h-2).
			Render(m.vp.View()))
		rows = append(rows, HelpView())
	}

	out := strings.Split(lipgloss.JoinVertical(lipgloss.Left, rows...), "\n")
	for len(out) < m.rows {
		out = append(out, "")
	}
	for off, l := range m.bottom {
		if y := m.rows - 1 - off; y >= headerRows && y < len(out) {
			out[y] = l.render()
		}
	}
	return strings.Join(out, "\n")
}

// statusLine renders the text placed at row y, if any.
func (m Model) statusLine(y int) string {
	l, ok := m.lines[y]
	if !ok {
		return ""
	}
	text := l.render()
	if y == 1 && m.running {
		text += m.spinner.View() + StyleProgress.Render(fmt.Sprintf(" %d/%d", m.envsDone, m.envTotal))
	}
	if y == 1 {
		return StyleStatus.Render(text)
	}
	return text
}

func (l placedLine) render() string {
	return strings.Repeat(" ", max(l.x, 0)) + l.text
}

// PlacedRows returns the rows that currently hold placed text, in order.
func (m Model) PlacedRows() []int {
	out := make([]int, 0, len(m.lines)+len(m.bottom))
	for y := range m.lines {
		out = append(out, y)
	}
	for off := range m.bottom {
		out = append(out, m.currentRows()-1-off)
	}
	sort.Ints(out)
	return out
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
