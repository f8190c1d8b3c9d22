// Package reporter turns engine lifecycle events and silent process exits
// into dashboard panel updates.
package reporter

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/aristath/retox/internal/dashboard"
	"github.com/aristath/retox/internal/engine"
)

// PollInterval is how often worker processes are checked for exit.
const PollInterval = 200 * time.Millisecond

// Aggregator implements engine.Observer on top of a Dashboard. It is the only
// writer of panel task lists.
//
// An activity whose finish arrives while some of its processes are still
// alive is parked as finishable; the poll cycle delivers its finish once the
// last process exits. Each activity is finished at most once.
type Aggregator struct {
	dash     *dashboard.Dashboard
	next     engine.Observer
	interval time.Duration

	mu         sync.Mutex
	tracked    map[*engine.Activity]struct{}
	finishable map[*engine.Activity]struct{}
	done       map[*engine.Activity]struct{}
}

// New creates an Aggregator drawing into dash. Every notification is also
// forwarded to next; nil selects engine.LogObserver.
func New(dash *dashboard.Dashboard, next engine.Observer) *Aggregator {
	if next == nil {
		next = engine.LogObserver{}
	}
	return &Aggregator{
		dash:       dash,
		next:       next,
		interval:   PollInterval,
		tracked:    make(map[*engine.Activity]struct{}),
		finishable: make(map[*engine.Activity]struct{}),
		done:       make(map[*engine.Activity]struct{}),
	}
}

// ActivityStarted adds a running entry to the activity's panel.
func (a *Aggregator) ActivityStarted(act *engine.Activity) {
	a.mu.Lock()
	if _, finished := a.done[act]; finished {
		a.mu.Unlock()
		log.Printf("DEBUG: ignoring start of finished activity %s in env %s", act.Kind, act.EnvName())
		return
	}
	a.tracked[act] = struct{}{}
	a.mu.Unlock()

	if p, ok := a.panelFor(act); ok {
		p.Start(act.Kind, act)
	}
	a.next.ActivityStarted(act)
}

// ActivityFinished finishes the activity now if all its processes have
// exited, otherwise parks it until the poll cycle sees them exit.
func (a *Aggregator) ActivityFinished(act *engine.Activity) {
	a.mu.Lock()
	if _, finished := a.done[act]; finished {
		a.mu.Unlock()
		return
	}
	if act.Prune() > 0 {
		a.tracked[act] = struct{}{}
		a.finishable[act] = struct{}{}
		a.mu.Unlock()
		log.Printf("DEBUG: %s in env %s may finish, waiting for processes", act.Kind, act.EnvName())
		return
	}
	a.markDone(act)
	a.mu.Unlock()

	a.deliver(act)
}

// SummaryStarted finishes every panel with its environment's status, then
// finalises the environments and forwards the summary.
func (a *Aggregator) SummaryStarted(envs []*engine.Environment) {
	log.Printf("DEBUG: Starting summary")
	byName := make(map[string]*engine.Environment, len(envs))
	for _, env := range envs {
		byName[env.Name] = env
	}

	for _, p := range a.dash.Panels() {
		env, ok := byName[p.Name()]
		if !ok {
			log.Printf("DEBUG: no environment for panel %s", p.Name())
			continue
		}
		status, _ := env.Status()
		p.Finish(status)
		env.Finish()
	}

	a.next.SummaryStarted(envs)
}

// Reset forgets all activity state and clears every panel.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	clear(a.tracked)
	clear(a.finishable)
	clear(a.done)
	a.mu.Unlock()

	for _, p := range a.dash.Panels() {
		p.Reset()
	}
	a.next.Reset()
}

// Run polls worker processes every interval until ctx is done. A poll task
// hands finishable activities whose processes have all exited to the
// consumer, which finishes them and redraws once per cycle.
func (a *Aggregator) Run(ctx context.Context) {
	due := make(chan []*engine.Activity)

	go func() {
		defer close(due)
		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			select {
			case due <- a.sweep():
			case <-ctx.Done():
				return
			}
		}
	}()

	for batch := range due {
		a.finishAll(batch)
	}
}

// PollOnce runs one poll cycle synchronously and returns how many deferred
// finishes it delivered.
func (a *Aggregator) PollOnce() int {
	batch := a.sweep()
	a.finishAll(batch)
	return len(batch)
}

func (a *Aggregator) finishAll(batch []*engine.Activity) {
	for _, act := range batch {
		a.deliver(act)
	}
	a.dash.Redraw()
}

// sweep prunes exited processes from every tracked activity and claims the
// finishable ones that have none left.
func (a *Aggregator) sweep() []*engine.Activity {
	a.mu.Lock()
	defer a.mu.Unlock()

	var ready []*engine.Activity
	for act := range a.tracked {
		live := act.Prune()
		if _, parked := a.finishable[act]; parked && live == 0 {
			a.markDone(act)
			ready = append(ready, act)
		}
	}
	return ready
}

// Tracked returns how many activities are active or finishable.
func (a *Aggregator) Tracked() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.tracked)
}

// Finishable returns how many activities are waiting for their processes.
func (a *Aggregator) Finishable() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.finishable)
}

// markDone moves act to the terminal state. Caller holds a.mu.
func (a *Aggregator) markDone(act *engine.Activity) {
	delete(a.tracked, act)
	delete(a.finishable, act)
	a.done[act] = struct{}{}
}

func (a *Aggregator) deliver(act *engine.Activity) {
	if p, ok := a.panelFor(act); ok {
		p.Stop(act.Kind, act)
	}
	a.next.ActivityFinished(act)
}

func (a *Aggregator) panelFor(act *engine.Activity) (*dashboard.Panel, bool) {
	if act.Env == nil {
		return nil, false
	}
	p, ok := a.dash.Find(act.Env.Name)
	if !ok {
		log.Printf("DEBUG: no panel for env %s (%s)", act.Env.Name, act.Kind)
	}
	return p, ok
}
