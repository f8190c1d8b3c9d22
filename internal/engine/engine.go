package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/retox/internal/events"
)

// RetryConfig configures exponential backoff for dependency installs.
type RetryConfig struct {
	MaxRetries      int           // Retries after the first attempt (default 2)
	InitialInterval time.Duration // Initial retry interval (default 500ms)
	MaxInterval     time.Duration // Maximum retry interval (default 10s)
	Multiplier      float64       // Backoff multiplier (default 2.0)
}

// DefaultRetryConfig returns the default install retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      2,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		Multiplier:      2.0,
	}
}

// Options configures an Engine.
type Options struct {
	Parallel       int              // Max environments running at once (default 4)
	Retry          RetryConfig
	Bus            *events.EventBus // Optional; nil disables run events
	ProcessManager *ProcessManager  // Optional; a private one is created if nil
}

// Engine runs environments and reports their activities to an Observer.
type Engine struct {
	specs map[string]EnvSpec
	envs  map[string]*Environment
	obs   Observer
	opts  Options
	runID string // set by RunAll before any worker starts

	// start runs one shell command for an activity; replaced in tests
	start func(ctx context.Context, act *Activity, spec EnvSpec, line string) (waiter, error)
}

type waiter interface {
	Process
	Wait() error
}

// New creates an engine for the given environments. It fails if the
// dependency graph between them has a cycle or names an unknown environment.
func New(specs []EnvSpec, obs Observer, opts Options) (*Engine, error) {
	if opts.Parallel <= 0 {
		opts.Parallel = 4
	}
	if opts.Retry == (RetryConfig{}) {
		opts.Retry = DefaultRetryConfig()
	}
	if opts.ProcessManager == nil {
		opts.ProcessManager = NewProcessManager()
	}
	if obs == nil {
		obs = LogObserver{}
	}

	e := &Engine{
		specs: make(map[string]EnvSpec, len(specs)),
		envs:  make(map[string]*Environment, len(specs)),
		obs:   obs,
		opts:  opts,
	}
	names := make([]string, 0, len(specs))
	for _, s := range specs {
		if _, dup := e.specs[s.Name]; dup {
			return nil, fmt.Errorf("environment %q defined twice", s.Name)
		}
		e.specs[s.Name] = s
		e.envs[s.Name] = NewEnvironment(s.Name)
		names = append(names, s.Name)
	}
	for _, s := range specs {
		for _, dep := range s.Depends {
			if _, ok := e.specs[dep]; !ok {
				return nil, fmt.Errorf("environment %q depends on unknown environment %q", s.Name, dep)
			}
		}
	}
	if _, err := plan(e.specs, names); err != nil {
		return nil, err
	}
	e.start = e.startCommand
	return e, nil
}

// Environment returns the environment with the given name.
func (e *Engine) Environment(name string) (*Environment, bool) {
	env, ok := e.envs[name]
	return env, ok
}

// Environments returns the environments for names, skipping unknown ones.
func (e *Engine) Environments(names []string) []*Environment {
	out := make([]*Environment, 0, len(names))
	for _, name := range names {
		if env, ok := e.envs[name]; ok {
			out = append(out, env)
		}
	}
	return out
}

// RunAll runs every named environment to completion and returns the outcome.
// It blocks until all workers have exited; the observer is notified from
// worker goroutines while it runs. RunAll must not be called concurrently.
func (e *Engine) RunAll(ctx context.Context, names []string) RunResult {
	res := RunResult{ID: uuid.NewString(), Started: time.Now()}
	e.runID = res.ID

	e.obs.Reset()
	envs := e.Environments(names)
	for _, env := range envs {
		env.Reset()
	}

	e.opts.Bus.Publish(events.TopicRun, events.RunStartedEvent{ID: res.ID, Envs: names, Timestamp: res.Started})

	waves, err := plan(e.specs, names)
	if err != nil {
		res.Err = err
		res.Duration = time.Since(res.Started)
		return res
	}

	var mu sync.Mutex
	durations := make(map[string]time.Duration, len(envs))

	for _, wave := range waves {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.opts.Parallel)
		for _, name := range wave {
			name := name
			env := e.envs[name]
			spec := e.specs[name]
			g.Go(func() error {
				started := time.Now()
				e.runEnv(gctx, env, spec)
				d := time.Since(started)

				mu.Lock()
				durations[name] = d
				mu.Unlock()

				st, _ := env.Status()
				e.opts.Bus.Publish(events.TopicRun, events.EnvFinishedEvent{
					ID: res.ID, Env: name, Status: st.String(), Passed: st.Passed(), Duration: d, Timestamp: time.Now(),
				})
				return nil
			})
		}
		_ = g.Wait()
	}

	e.obs.SummaryStarted(envs)

	for _, env := range envs {
		st, _ := env.Status()
		res.Envs = append(res.Envs, EnvResult{Name: env.Name, Status: st, Duration: durations[env.Name]})
	}
	res.Duration = time.Since(res.Started)
	if ctx.Err() != nil {
		res.Err = ctx.Err()
	}

	e.opts.Bus.Publish(events.TopicRun, events.RunFinishedEvent{
		ID: res.ID, Summary: res.String(), Passed: res.Passed(), Total: len(res.Envs), Duration: res.Duration, Timestamp: time.Now(),
	})
	return res
}

// runEnv runs the install activity and then each command as its own
// activity, stopping at the first failure. The environment status is set
// before the activity that decides it is reported finished.
func (e *Engine) runEnv(ctx context.Context, env *Environment, spec EnvSpec) {
	if ctx.Err() != nil {
		env.SetStatus(StatusSkipped)
		return
	}

	if len(spec.Install) > 0 {
		act := NewActivity(KindInstallDeps, env)
		e.obs.ActivityStarted(act)
		err := e.install(ctx, act, spec)
		if err != nil {
			log.Printf("ERROR: %s: installing dependencies: %v", env.Name, err)
			env.SetStatus(StatusInstallFailed)
		} else if len(spec.Commands) == 0 {
			env.SetStatus(StatusPass)
		}
		e.obs.ActivityFinished(act)
		if err != nil {
			return
		}
	}

	for i, line := range spec.Commands {
		act := NewActivity(KindRunTests, env)
		if len(spec.Commands) > 1 {
			act.Seq = i + 1
		}
		e.obs.ActivityStarted(act)
		err := e.runCommand(ctx, act, spec, line)
		if err != nil {
			log.Printf("WARNING: %s: command %q failed: %v", env.Name, line, err)
			env.SetStatus(StatusCommandsFailed)
		} else if i == len(spec.Commands)-1 {
			env.SetStatus(StatusPass)
		}
		e.obs.ActivityFinished(act)
		if err != nil {
			return
		}
	}

	if len(spec.Install) == 0 && len(spec.Commands) == 0 {
		env.SetStatus(StatusPass)
	}
}

// install runs the install commands, retrying the whole sequence with
// exponential backoff.
func (e *Engine) install(ctx context.Context, act *Activity, spec EnvSpec) error {
	operation := func() error {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		for _, line := range spec.Install {
			if err := e.runCommand(ctx, act, spec, line); err != nil {
				if ctx.Err() != nil {
					return backoff.Permanent(err)
				}
				return err
			}
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = e.opts.Retry.InitialInterval
	policy.MaxInterval = e.opts.Retry.MaxInterval
	policy.Multiplier = e.opts.Retry.Multiplier
	policy.MaxElapsedTime = 0

	retries := e.opts.Retry.MaxRetries
	if retries < 0 {
		retries = 0
	}
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(retries)), ctx)

	err := backoff.RetryNotify(operation, b, func(err error, wait time.Duration) {
		log.Printf("WARNING: %s: install failed, retrying in %v: %v", act.EnvName(), wait, err)
	})
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Err
	}
	return err
}

func (e *Engine) runCommand(ctx context.Context, act *Activity, spec EnvSpec, line string) error {
	log.Printf("%s: $ %s", spec.Name, line)
	p, err := e.start(ctx, act, spec, line)
	if err != nil {
		return err
	}
	act.Attach(p)
	return p.Wait()
}

func (e *Engine) startCommand(ctx context.Context, act *Activity, spec EnvSpec, line string) (waiter, error) {
	cmd := newCommand(ctx, line, spec.WorkDir, spec.SetEnv)
	runID := e.runID
	return startProcess(cmd, e.opts.ProcessManager, func(out string) {
		log.Printf("%s: %s", spec.Name, out)
		e.opts.Bus.Publish(events.TopicOutput, events.OutputEvent{ID: runID, Env: spec.Name, Line: out, Timestamp: time.Now()})
	})
}
