package tui

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/aristath/retox/internal/dashboard"
	"github.com/aristath/retox/internal/events"
)

// defaultHeight is reported until the terminal sends its first size.
const defaultHeight = 24

// shutdownTimeout bounds how long Close waits for the program to exit.
const shutdownTimeout = 10 * time.Second

// Screen runs the Bubble Tea program in the background and exposes it as a
// simple status surface: text placed at rows, a redraw hook and a key queue.
type Screen struct {
	p      *tea.Program
	keys   chan string
	height *atomic.Int64

	exited chan struct{}
	runErr error

	closeOnce sync.Once
	closeErr  error
}

// Option configures a Screen.
type Option func(*screenOptions)

type screenOptions struct {
	interrupt func()
	program   []tea.ProgramOption
}

// WithInterrupt sets the function called when ctrl+c is pressed.
func WithInterrupt(fn func()) Option {
	return func(o *screenOptions) { o.interrupt = fn }
}

// WithProgramOptions passes extra options to tea.NewProgram.
func WithProgramOptions(opts ...tea.ProgramOption) Option {
	return func(o *screenOptions) { o.program = append(o.program, opts...) }
}

// Open starts the program on the alternate screen. The dashboard's redraw
// requests and the bus's events are rendered until Close is called.
func Open(dash *dashboard.Dashboard, bus *events.EventBus, opts ...Option) *Screen {
	var o screenOptions
	for _, opt := range opts {
		opt(&o)
	}

	s := &Screen{
		keys:   make(chan string, 16),
		height: &atomic.Int64{},
		exited: make(chan struct{}),
	}
	s.height.Store(defaultHeight)

	// Separate buffers so bursts of output cannot crowd out run progress
	var runSub, outSub <-chan events.Event
	if bus != nil {
		runSub = bus.Subscribe(events.TopicRun, 64)
		outSub = bus.Subscribe(events.TopicOutput, 512)
	}
	model := newModel(dash, runSub, outSub, s.keys, s.height)
	model.interrupt = o.interrupt

	progOpts := append([]tea.ProgramOption{tea.WithAltScreen()}, o.program...)
	s.p = tea.NewProgram(model, progOpts...)

	go func() {
		defer close(s.exited)
		if _, err := s.p.Run(); err != nil {
			log.Printf("ERROR: TUI exited: %v", err)
			s.runErr = err
		}
	}()
	return s
}

// PrintAt places text at column x of row y, replacing what the row held.
func (s *Screen) PrintAt(text string, x, y int) {
	s.p.Send(printMsg{text: text, x: x, y: y})
}

// Refresh asks the program to render.
func (s *Screen) Refresh() {
	s.p.Send(refreshMsg{})
}

// PollEvent returns the next pending key without blocking. Once the program
// has exited on its own every poll reports the quit key.
func (s *Screen) PollEvent() (string, bool) {
	select {
	case k := <-s.keys:
		return k, true
	default:
	}
	select {
	case <-s.exited:
		return KeyQuit, true
	default:
		return "", false
	}
}

// Height returns the terminal height in rows.
func (s *Screen) Height() int {
	return int(s.height.Load())
}

// Close quits the program and waits for the terminal to be restored.
func (s *Screen) Close() error {
	s.closeOnce.Do(func() {
		s.p.Quit()
		select {
		case <-s.exited:
			s.closeErr = s.runErr
		case <-time.After(shutdownTimeout):
			log.Println("WARNING: TUI shutdown timeout exceeded, killing program")
			s.p.Kill()
			s.closeErr = fmt.Errorf("tui did not exit within %s", shutdownTimeout)
		}
	})
	return s.closeErr
}
