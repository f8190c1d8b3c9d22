package events

import (
	"time"
)

// Event is the base interface for all events.
type Event interface {
	EventType() string
	RunID() string
}

// Topic constants
const (
	TopicRun    = "run"
	TopicOutput = "output"
)

// Event type constants
const (
	EventTypeRunStarted  = "run.started"
	EventTypeRunFinished = "run.finished"
	EventTypeEnvFinished = "env.finished"
	EventTypeOutput      = "output.line"
)

// RunStartedEvent is published when a run over the environment list begins.
type RunStartedEvent struct {
	ID        string
	Envs      []string
	Timestamp time.Time
}

func (e RunStartedEvent) EventType() string { return EventTypeRunStarted }
func (e RunStartedEvent) RunID() string     { return e.ID }

// EnvFinishedEvent is published when one environment reaches its status.
type EnvFinishedEvent struct {
	ID        string
	Env       string
	Status    string
	Passed    bool
	Duration  time.Duration
	Timestamp time.Time
}

func (e EnvFinishedEvent) EventType() string { return EventTypeEnvFinished }
func (e EnvFinishedEvent) RunID() string     { return e.ID }

// RunFinishedEvent is published once every environment of a run is done.
type RunFinishedEvent struct {
	ID        string
	Summary   string
	Passed    int
	Total     int
	Duration  time.Duration
	Timestamp time.Time
}

func (e RunFinishedEvent) EventType() string { return EventTypeRunFinished }
func (e RunFinishedEvent) RunID() string     { return e.ID }

// OutputEvent carries one line of worker output.
type OutputEvent struct {
	ID        string
	Env       string
	Line      string
	Timestamp time.Time
}

func (e OutputEvent) EventType() string { return EventTypeOutput }
func (e OutputEvent) RunID() string     { return e.ID }
