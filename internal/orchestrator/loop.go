// Package orchestrator runs the main loop: it triggers runs, watches the
// configured roots for changes and reacts to keyboard commands.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"strings"
	"time"

	"github.com/aristath/retox/internal/engine"
	"github.com/aristath/retox/internal/watch"
)

// IdleInterval is how long an iteration sleeps when no run was needed.
const IdleInterval = 500 * time.Millisecond

// Keyboard commands
const (
	KeyQuit    = "q"
	KeyBuild   = "b"
	KeyRebuild = "r"
)

// Runner executes one full pass over the environment list.
type Runner interface {
	RunAll(ctx context.Context, envs []string) engine.RunResult
}

// Surface is the terminal the loop draws its status lines on.
type Surface interface {
	PrintAt(text string, x, y int)
	Refresh()
	// PollEvent returns the next pending key without blocking.
	PollEvent() (string, bool)
	Height() int
	// Close restores the terminal. It is called exactly once by Run.
	Close() error
}

// Config configures a Loop.
type Config struct {
	Envs   []string
	Watch  []string
	Ignore []string
	Idle   time.Duration // default IdleInterval
}

// Loop is the single-threaded main loop.
type Loop struct {
	cfg     Config
	runner  Runner
	surface Surface

	needsUpdate bool
	running     bool
	watches     []watch.Snapshot
	last        engine.RunResult
	runs        int
}

// New creates a loop that will run immediately on start.
func New(cfg Config, runner Runner, surface Surface) *Loop {
	if cfg.Idle <= 0 {
		cfg.Idle = IdleInterval
	}
	if cfg.Ignore == nil {
		cfg.Ignore = watch.DefaultIgnore
	}
	return &Loop{
		cfg:         cfg,
		runner:      runner,
		surface:     surface,
		needsUpdate: true,
		running:     true,
	}
}

// Run drives the loop until the quit key is pressed, ctx is cancelled or an
// iteration fails. The surface is closed exactly once on every path.
func (l *Loop) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: Process crash: %v\n%s", r, debug.Stack())
			err = fmt.Errorf("crashed: %v", r)
		}
		log.Printf("DEBUG: Finished and exiting")
		if cerr := l.surface.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("restoring terminal: %w", cerr)
		}
	}()

	l.printHeader()
	l.watches = watch.TakeEach(l.cfg.Watch, l.cfg.Ignore)

	for l.running {
		if ctx.Err() != nil {
			return nil
		}
		l.iterate(ctx)
	}
	return nil
}

func (l *Loop) printHeader() {
	l.surface.PrintAt("Status : Starting  ", 1, 1)
	if len(l.cfg.Watch) > 0 {
		l.surface.PrintAt(fmt.Sprintf("Watching : %s  ", strings.Join(l.cfg.Watch, ", ")), 1, 2)
	}
	l.surface.PrintAt("Commands : (q) quit (b) build", 1, l.surface.Height()-1)
}

// iterate runs one pass of the loop body.
func (l *Loop) iterate(ctx context.Context) {
	if l.needsUpdate {
		l.surface.PrintAt("Status : Running  ", 1, 1)
		l.surface.Refresh()
		l.last = l.runner.RunAll(ctx, l.cfg.Envs)
		l.runs++
		l.surface.PrintAt(fmt.Sprintf("Result : %s  ", l.last), 1, 3)
		l.needsUpdate = false
	} else {
		select {
		case <-ctx.Done():
		case <-time.After(l.cfg.Idle):
		}
	}

	if len(l.cfg.Watch) > 0 {
		next := watch.TakeEach(l.cfg.Watch, l.cfg.Ignore)
		if watch.AnyChanged(l.watches, next) {
			log.Printf("DEBUG: change detected under %s", strings.Join(l.cfg.Watch, ", "))
			l.needsUpdate = true
		}
		l.watches = next
	}

	l.surface.PrintAt("Status : Waiting  ", 1, 1)
	l.surface.Refresh()

	if key, ok := l.surface.PollEvent(); ok {
		switch key {
		case KeyQuit:
			l.running = false
		case KeyBuild, KeyRebuild:
			l.needsUpdate = true
		}
	}
}

// Runs returns how many runs the loop has started.
func (l *Loop) Runs() int { return l.runs }

// LastResult returns the outcome of the most recent run.
func (l *Loop) LastResult() engine.RunResult { return l.last }
