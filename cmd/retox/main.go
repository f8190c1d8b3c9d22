package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"slices"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/aristath/retox/internal/config"
	"github.com/aristath/retox/internal/dashboard"
	"github.com/aristath/retox/internal/engine"
	"github.com/aristath/retox/internal/events"
	"github.com/aristath/retox/internal/orchestrator"
	"github.com/aristath/retox/internal/reporter"
	"github.com/aristath/retox/internal/tui"
)

// options holds the command line flags.
type options struct {
	envlist  string
	watch    []string
	ignore   []string
	parallel int
	config   string
	logFile  string
	pick     bool
	save     bool
}

func main() {
	// Create signal-aware context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := 0
	cmd := newRootCmd(func(ctx context.Context, opts *options) error {
		var err error
		code, err = run(ctx, opts)
		return err
	})
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		code = 1
	}
	stop()
	os.Exit(code)
}

func newRootCmd(runFn func(context.Context, *options) error) *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "retox",
		Short: "Live dashboard for running test environments",
		Long: `retox runs every configured environment, shows one panel per
environment with its running and completed tasks, and reruns
everything when a watched file changes.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFn(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.envlist, "envlist", "e", "", "comma separated environments to run")
	f.StringArrayVarP(&opts.watch, "watch", "w", nil, "directory to watch for changes (repeatable)")
	f.StringArrayVar(&opts.ignore, "ignore", nil, "file suffix excluded from watching (repeatable)")
	f.IntVarP(&opts.parallel, "parallel", "p", 0, "environments run at once")
	f.StringVar(&opts.config, "config", "", "project config file (default .retox.json or .retox.yaml)")
	f.StringVar(&opts.logFile, "log-file", "", "log file path")
	f.BoolVar(&opts.pick, "pick", false, "choose environments interactively before starting")
	f.BoolVar(&opts.save, "save", false, "store the selected environments as the project envlist")
	return cmd
}

// loadConfig merges the config files for dir and applies the flags on top.
// It also returns the project config path.
func loadConfig(opts *options, dir string) (*config.RetoxConfig, string, error) {
	globalPath, projectPath, err := config.DefaultPaths(dir)
	if err != nil {
		return nil, "", err
	}
	if opts.config != "" {
		if _, err := os.Stat(opts.config); err != nil {
			return nil, "", fmt.Errorf("config file: %w", err)
		}
		projectPath = opts.config
	}

	cfg, err := config.Load(globalPath, projectPath)
	if err != nil {
		return nil, "", err
	}
	applyFlags(cfg, opts)
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid config: %w", err)
	}
	if len(cfg.EnvNames()) == 0 {
		return nil, "", errors.New("no environments configured")
	}
	return cfg, projectPath, nil
}

// selectEnvs returns the environments to run, asking with pick when set,
// and stores the choice in the project config when opts.save is set.
func selectEnvs(cfg *config.RetoxConfig, opts *options, projectPath string, pick func(all, pre []string) ([]string, error)) ([]string, error) {
	names := cfg.EnvNames()
	if opts.pick {
		all := make([]string, 0, len(cfg.Envs))
		for _, spec := range cfg.EnvSpecs() {
			all = append(all, spec.Name)
		}
		var err error
		if names, err = pick(all, names); err != nil {
			return nil, err
		}
	}
	if opts.save {
		if err := config.SaveEnvList(projectPath, names); err != nil {
			return nil, fmt.Errorf("saving envlist: %w", err)
		}
		log.Printf("Saved envlist %s to %s", strings.Join(names, ","), projectPath)
	}
	return names, nil
}

// goSafe runs fn in a goroutine. A panic is logged and cancels the run so the
// main loop can restore the terminal.
func goSafe(name string, fn func(), cancel context.CancelFunc) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("ERROR: %s crashed: %v\n%s", name, r, debug.Stack())
				cancel()
			}
		}()
		fn()
	}()
}

// applyFlags overrides config values with the ones given on the command line.
func applyFlags(cfg *config.RetoxConfig, opts *options) {
	if envs := splitList(opts.envlist); len(envs) > 0 {
		cfg.EnvList = envs
	}
	if len(opts.watch) > 0 {
		cfg.Watch = opts.watch
	}
	if len(opts.ignore) > 0 {
		cfg.Ignore = opts.ignore
	}
	if opts.parallel != 0 {
		cfg.Parallel = opts.parallel
	}
	if opts.logFile != "" {
		cfg.LogFile = opts.logFile
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" && !slices.Contains(out, part) {
			out = append(out, part)
		}
	}
	return out
}

// run wires the components together and drives the main loop. It returns
// the exit code of the last run.
func run(ctx context.Context, opts *options) (int, error) {
	cfg, projectPath, err := loadConfig(opts, ".")
	if err != nil {
		return 1, err
	}

	logFile, err := tea.LogToFile(cfg.LogFile, "retox")
	if err != nil {
		return 1, fmt.Errorf("opening log file: %w", err)
	}
	defer logFile.Close()

	names, err := selectEnvs(cfg, opts, projectPath, tui.PickEnvs)
	if err != nil {
		return 1, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	bus := events.NewEventBus()
	defer bus.Close()
	defer func() {
		if n := bus.Dropped(); n > 0 {
			log.Printf("WARNING: %d events dropped by slow subscribers", n)
		}
	}()

	pm := engine.NewProcessManager()
	stopKill := context.AfterFunc(ctx, func() {
		log.Println("Shutdown requested, killing environment processes")
		if err := pm.KillAll(); err != nil {
			log.Printf("ERROR: killing subprocesses: %v", err)
		}
	})
	defer stopKill()

	retry := engine.DefaultRetryConfig()
	retry.MaxRetries = cfg.Retries()

	dash := dashboard.New(names)
	agg := reporter.New(dash, engine.LogObserver{})
	eng, err := engine.New(cfg.EnvSpecs(), agg, engine.Options{
		Parallel:       cfg.Parallel,
		Retry:          retry,
		Bus:            bus,
		ProcessManager: pm,
	})
	if err != nil {
		return 1, err
	}
	goSafe("reporter poll task", func() { agg.Run(ctx) }, cancel)

	screen := tui.Open(dash, bus, tui.WithInterrupt(cancel))
	loop := orchestrator.New(orchestrator.Config{
		Envs:   names,
		Watch:  cfg.Watch,
		Ignore: cfg.Ignore,
	}, eng, screen)

	if err := loop.Run(ctx); err != nil {
		return 1, err
	}

	if loop.Runs() == 0 {
		return 0, nil
	}
	res := loop.LastResult()
	fmt.Println(res)
	log.Printf("Shutdown complete after %d runs", loop.Runs())
	return res.ExitCode(), nil
}
