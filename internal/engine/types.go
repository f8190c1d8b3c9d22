package engine

import (
	"sync"
	"time"
)

// Kind identifies what an activity does inside an environment.
type Kind string

const (
	KindRunTests    Kind = "runtests"
	KindCommand     Kind = "command"
	KindInstallDeps Kind = "installdeps"
	KindInstallPkg  Kind = "installpkg"
	KindInst        Kind = "inst"
	KindInstNoDeps  Kind = "inst-nodeps"
	KindSdistMake   Kind = "sdist-make"
	KindCreate      Kind = "create"
	KindRecreate    Kind = "recreate"
	KindGetEnv      Kind = "getenv"
)

// Status is the terminal outcome of an environment. The zero value means the
// status has not been set yet.
type Status string

const (
	StatusNone           Status = ""
	StatusPass           Status = "0"
	StatusCommandsFailed Status = "commands failed"
	StatusInstallFailed  Status = "could not install deps"
	StatusSkipped        Status = "skipped"
)

// Passed reports whether s is the canonical success value.
func (s Status) Passed() bool { return s == StatusPass }

func (s Status) String() string {
	if s == StatusNone {
		return "none"
	}
	return string(s)
}

// Environment is a named execution context. Its status is unset while a run is
// in progress and set once when the environment completes.
type Environment struct {
	Name string

	mu       sync.Mutex
	status   Status
	finished time.Time
}

// NewEnvironment creates an environment with an unset status.
func NewEnvironment(name string) *Environment {
	return &Environment{Name: name}
}

// Status returns the current status and whether it has been set.
func (e *Environment) Status() (Status, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status, e.status != StatusNone
}

// SetStatus records the terminal status. Only the first call in a run wins.
func (e *Environment) SetStatus(s Status) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status == StatusNone {
		e.status = s
	}
}

// Reset clears the status ahead of a new run.
func (e *Environment) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status = StatusNone
	e.finished = time.Time{}
}

// Finish marks the environment as finalised for the current run.
// Calling it more than once keeps the first timestamp.
func (e *Environment) Finish() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.finished.IsZero() {
		e.finished = time.Now()
	}
}

// Finished reports whether Finish has been called since the last Reset.
func (e *Environment) Finished() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.finished.IsZero()
}

// Process is a worker process handle that can be polled without blocking.
type Process interface {
	Exited() bool
}

// Activity is one unit of work executing inside exactly one environment.
type Activity struct {
	Kind Kind
	Env  *Environment // back-reference, not owned
	// Seq numbers activities of one kind within an environment, from 1.
	// Zero when the kind runs only once.
	Seq int

	mu    sync.Mutex
	procs []Process
}

// NewActivity creates an activity of the given kind for env.
func NewActivity(kind Kind, env *Environment) *Activity {
	return &Activity{Kind: kind, Env: env}
}

// Attach adds an in-flight worker process to the activity.
func (a *Activity) Attach(p Process) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.procs = append(a.procs, p)
}

// Prune drops every process that has exited and returns how many remain.
func (a *Activity) Prune() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	live := a.procs[:0]
	for _, p := range a.procs {
		if !p.Exited() {
			live = append(live, p)
		}
	}
	// Clear the tail so dropped handles can be collected
	for i := len(live); i < len(a.procs); i++ {
		a.procs[i] = nil
	}
	a.procs = live
	return len(live)
}

// Live returns the number of attached processes without polling them.
func (a *Activity) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.procs)
}

// EnvName returns the owning environment name, or "" when there is none.
func (a *Activity) EnvName() string {
	if a.Env == nil {
		return ""
	}
	return a.Env.Name
}

// Observer receives lifecycle notifications from the engine.
type Observer interface {
	ActivityStarted(a *Activity)
	ActivityFinished(a *Activity)
	SummaryStarted(envs []*Environment)
	Reset()
}

// EnvResult is the outcome of one environment within a run.
type EnvResult struct {
	Name     string
	Status   Status
	Duration time.Duration
}

// RunResult is the outcome of one full pass over the environment list.
type RunResult struct {
	ID       string
	Started  time.Time
	Duration time.Duration
	Envs     []EnvResult
	Err      error
}
