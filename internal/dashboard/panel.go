package dashboard

import (
	"fmt"
	"log"
	"sync"

	"github.com/aristath/retox/internal/engine"
)

// TitleColor is the state shown by a panel's title bar.
type TitleColor int

const (
	TitleNeutral TitleColor = iota
	TitlePass
	TitleFail
)

func (c TitleColor) String() string {
	switch c {
	case TitlePass:
		return "pass"
	case TitleFail:
		return "fail"
	default:
		return "neutral"
	}
}

var taskNames = map[engine.Kind]string{
	engine.KindRunTests:    "Run Tests",
	engine.KindCommand:     "Custom Command",
	engine.KindInstallDeps: "Install Dependencies",
	engine.KindInstallPkg:  "Install Package",
	engine.KindInst:        "Install",
	engine.KindInstNoDeps:  "Install no-deps",
	engine.KindSdistMake:   "Make sdist",
	engine.KindCreate:      "Create",
	engine.KindRecreate:    "Recreate",
	engine.KindGetEnv:      "Get environment",
}

// DisplayName returns the human label for kind. Unknown kinds are shown as is.
func DisplayName(kind engine.Kind) string {
	if name, ok := taskNames[kind]; ok {
		return name
	}
	return string(kind)
}

var resultGlyphs = map[engine.Status]string{
	engine.StatusPass:           "✓",
	engine.StatusCommandsFailed: "✗",
	engine.StatusInstallFailed:  "✗",
}

// Glyph returns the marker prefixed to completed entries. Unrecognised
// statuses are shown as their raw value, an unset one as "none".
func Glyph(status engine.Status) string {
	if g, ok := resultGlyphs[status]; ok {
		return g
	}
	return status.String()
}

// Entry is one line of a panel list. Seq tells apart activities of the same
// kind, such as the test commands of one environment.
type Entry struct {
	Kind  engine.Kind
	Seq   int
	Label string
	Owner string
}

func (e Entry) same(o Entry) bool {
	return e.Kind == o.Kind && e.Seq == o.Seq && e.Owner == o.Owner
}

// Panel tracks the running and completed tasks of one environment.
// Every operation is atomic with respect to rendering.
type Panel struct {
	name   string
	redraw func()

	mu        sync.Mutex
	running   []Entry
	completed []Entry
	color     TitleColor
}

func newPanel(name string, redraw func()) *Panel {
	if redraw == nil {
		redraw = func() {}
	}
	return &Panel{name: name, redraw: redraw}
}

// Name returns the environment name shown in the title.
func (p *Panel) Name() string { return p.name }

func (p *Panel) entryFor(kind engine.Kind, act *engine.Activity) Entry {
	e := Entry{Kind: kind, Label: DisplayName(kind), Owner: p.name}
	if act != nil && act.Seq > 0 {
		e.Seq = act.Seq
		e.Label = fmt.Sprintf("%s %d", e.Label, act.Seq)
	}
	return e
}

// Start adds a running entry for kind. An entry already running is skipped.
// A completed entry for the same kind moves back to running.
func (p *Panel) Start(kind engine.Kind, act *engine.Activity) {
	defer p.redraw()
	p.mu.Lock()
	defer p.mu.Unlock()

	e := p.entryFor(kind, act)
	if indexOf(p.running, e) >= 0 {
		log.Printf("DEBUG: %s already running in env %s", kind, p.name)
		return
	}
	p.completed = without(p.completed, e)
	p.running = append(p.running, e)
}

// Stop moves the entry for kind from running to completed, decorated with
// the glyph for the environment's current status.
func (p *Panel) Stop(kind engine.Kind, act *engine.Activity) {
	defer p.redraw()
	p.mu.Lock()
	defer p.mu.Unlock()

	e := p.entryFor(kind, act)
	if i := indexOf(p.running, e); i >= 0 {
		p.running = append(p.running[:i], p.running[i+1:]...)
	} else {
		log.Printf("DEBUG: could not find action %s in env %s", kind, p.name)
	}

	status := engine.StatusNone
	if act != nil && act.Env != nil {
		status, _ = act.Env.Status()
	}
	p.complete(e, status)
}

// Finish colors the title by status and moves every running entry to
// completed so nothing lingers past the summary.
func (p *Panel) Finish(status engine.Status) {
	defer p.redraw()
	p.mu.Lock()
	defer p.mu.Unlock()

	log.Printf("Completing %s with status %s", p.name, status)
	if status.Passed() {
		p.color = TitlePass
	} else {
		p.color = TitleFail
	}
	for _, e := range p.running {
		p.complete(e, status)
	}
	p.running = nil
}

// Reset clears both lists and restores the neutral title color.
func (p *Panel) Reset() {
	defer p.redraw()
	p.mu.Lock()
	defer p.mu.Unlock()

	p.running = nil
	p.completed = nil
	p.color = TitleNeutral
}

// complete appends e to completed, replacing any earlier entry for the same
// kind and sequence number. Caller holds p.mu.
func (p *Panel) complete(e Entry, status engine.Status) {
	p.completed = without(p.completed, e)
	e.Label = Glyph(status) + " " + e.Label
	p.completed = append(p.completed, e)
}

// Snapshot returns copies of both lists and the title color.
func (p *Panel) Snapshot() (running, completed []Entry, color TitleColor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Entry(nil), p.running...), append([]Entry(nil), p.completed...), p.color
}

// Running returns a copy of the running list.
func (p *Panel) Running() []Entry {
	r, _, _ := p.Snapshot()
	return r
}

// Completed returns a copy of the completed list.
func (p *Panel) Completed() []Entry {
	_, c, _ := p.Snapshot()
	return c
}

// Color returns the current title color.
func (p *Panel) Color() TitleColor {
	_, _, c := p.Snapshot()
	return c
}

func indexOf(list []Entry, e Entry) int {
	for i, x := range list {
		if x.same(e) {
			return i
		}
	}
	return -1
}

func without(list []Entry, e Entry) []Entry {
	if i := indexOf(list, e); i >= 0 {
		return append(list[:i], list[i+1:]...)
	}
	return list
}
