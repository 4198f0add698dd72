package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/pprof"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/vanderheijden86/arbor/internal/datasource"
	"github.com/vanderheijden86/arbor/pkg/config"
	"github.com/vanderheijden86/arbor/pkg/debug"
	"github.com/vanderheijden86/arbor/pkg/loader"
	"github.com/vanderheijden86/arbor/pkg/metrics"
	"github.com/vanderheijden86/arbor/pkg/model"
	"github.com/vanderheijden86/arbor/pkg/sticky"
	"github.com/vanderheijden86/arbor/pkg/testutil"
	"github.com/vanderheijden86/arbor/pkg/tree"
	"github.com/vanderheijden86/arbor/pkg/ui"
	"github.com/vanderheijden86/arbor/pkg/version"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type cliFlags struct {
	configPath  string
	noSticky    bool
	maxSticky   int
	noMulti     bool
	watch       bool
	robotSticky float64
	height      int
	expandAll   bool
	demo        bool
	cpuProfile  string
	logFile     string
	version     bool

	set map[string]bool
}

func parseFlags(args []string, stderr io.Writer) (*cliFlags, []string, error) {
	f := &cliFlags{set: make(map[string]bool)}
	fs := flag.NewFlagSet("arbor", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.configPath, "config", "", "Config file (default: $XDG_CONFIG_HOME/arbor/config.yaml)")
	fs.BoolVar(&f.noSticky, "no-sticky", false, "Disable sticky scroll")
	fs.IntVar(&f.maxSticky, "max-sticky", sticky.DefaultMaxNodes, "Maximum number of pinned ancestor headers")
	fs.BoolVar(&f.noMulti, "no-multi", false, "Disable multi-selection")
	fs.BoolVar(&f.watch, "watch", false, "Reload when the source changes")
	fs.Float64Var(&f.robotSticky, "robot-sticky", 0, "Print the sticky state at scroll OFFSET as JSON and exit")
	fs.IntVar(&f.height, "height", 24, "Viewport height in lines for --robot-sticky")
	fs.BoolVar(&f.expandAll, "expand-all", false, "Open every folder on start")
	fs.BoolVar(&f.demo, "demo", false, "Show a built-in demo tree")
	fs.StringVar(&f.cpuProfile, "cpu-profile", "", "Write CPU profile to file")
	fs.StringVar(&f.logFile, "log-file", "", "Write debug log to file")
	fs.BoolVar(&f.version, "version", false, "Show version")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: arbor [options] [path]")
		fmt.Fprintln(stderr, "\nBrowse a directory, YAML, JSON or SQLite tree with sticky scroll.")
		fmt.Fprintln(stderr, "path may also name a recently opened source.")
		fmt.Fprintln(stderr)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	fs.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })
	return f, fs.Args(), nil
}

func run(args []string, stdout, stderr io.Writer) int {
	flags, rest, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if flags.version {
		fmt.Fprintf(stdout, "arbor %s\n", version.String())
		return 0
	}

	// CPU profiling support
	if flags.cpuProfile != "" {
		f, err := os.Create(flags.cpuProfile)
		if err != nil {
			fmt.Fprintf(stderr, "Could not create CPU profile: %v\n", err)
			return 1
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(stderr, "Could not start CPU profile: %v\n", err)
			return 1
		}
		defer pprof.StopCPUProfile()
	}

	if flags.logFile != "" {
		f, err := os.OpenFile(flags.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(stderr, "Could not open log file: %v\n", err)
			return 1
		}
		defer f.Close()
		debug.SetOutput(f)
		debug.SetEnabled(true)
	}

	fileCfg, err := loadConfig(flags.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	treeCfg, err := applyOverrides(fileCfg.Tree, flags)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	ctx := context.Background()
	var (
		src     datasource.Source
		entries []model.Entry
		title   string
	)
	if flags.demo {
		entries, title = testutil.DemoTree(), "demo"
	} else {
		path := ""
		if len(rest) > 0 {
			path = rest[0]
		}
		path, err = resolvePath(path, fileCfg)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		src, err = datasource.Detect(path)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		entries, err = loadSource(ctx, src, treeCfg)
		if err != nil {
			fmt.Fprintf(stderr, "Error loading %s: %v\n", src.Path, err)
			return 1
		}
		title = filepath.Base(src.Path)
	}

	if flags.set["robot-sticky"] {
		out, err := computeRobotSticky(entries, treeCfg, flags.robotSticky, flags.height, flags.expandAll)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		out.Source = title
		if err := writeRobotStickyOutput(stdout, out); err != nil {
			fmt.Fprintf(stderr, "Error writing output: %v\n", err)
			return 1
		}
		return 0
	}

	if err := runTUI(ctx, src, entries, title, treeCfg, flags); err != nil {
		fmt.Fprintf(stderr, "Error running arbor: %v\n", err)
		return 1
	}

	if src.Path != "" {
		fileCfg.AddRecent(src.Path)
		if err := saveConfig(fileCfg, flags.configPath); err != nil {
			debug.Warn("saving config: %v", err)
		}
	}
	return 0
}

func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	cfg, err := config.Load()
	if err != nil {
		// Non-fatal: continue without config
		debug.Warn("loading config: %v", err)
		return config.DefaultConfig(), nil
	}
	return cfg, nil
}

func saveConfig(cfg config.Config, path string) error {
	if path != "" {
		return config.SaveTo(cfg, path)
	}
	return config.Save(cfg)
}

// applyOverrides layers command line flags over the file config. The
// result is never saved.
func applyOverrides(cfg config.TreeConfig, flags *cliFlags) (config.TreeConfig, error) {
	if flags.noSticky {
		cfg.StickyScroll = false
	}
	if flags.set["max-sticky"] {
		cfg.StickyScrollMaxNodes = flags.maxSticky
	}
	if flags.noMulti {
		cfg.DisableMultiSelection = true
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// resolvePath turns the positional argument into a source path. A name
// that is not on disk is looked up among recent sources; no argument on a
// terminal starts the picker.
func resolvePath(arg string, cfg config.Config) (string, error) {
	if arg == "" {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return "", errors.New("no source given (pass a directory, YAML, JSON or SQLite file)")
		}
		return chooseSource(cfg)
	}
	if _, err := os.Stat(arg); err == nil {
		return arg, nil
	}
	if s := cfg.FindRecent(arg); s != nil {
		return s.Path, nil
	}
	return arg, nil
}

func loadOptions(cfg config.TreeConfig) datasource.LoadOptions {
	return datasource.LoadOptions{Dir: loader.DirOptions{Ignore: cfg.Ignore}}
}

func loadSource(ctx context.Context, src datasource.Source, cfg config.TreeConfig) ([]model.Entry, error) {
	defer metrics.Timer(metrics.SourceLoad)()
	return datasource.Load(ctx, src, loadOptions(cfg))
}

func runTUI(ctx context.Context, src datasource.Source, entries []model.Entry, title string, cfg config.TreeConfig, flags *cliFlags) error {
	if flags.logFile == "" {
		debug.SetOutput(io.Discard)
	}

	store := tree.New(entries, tree.WithOpenDepth(cfg.OpenDepth))

	statePath := ""
	if dir := config.SourceStateDir(src.Path); dir != "" {
		statePath = tree.OpenStatePath(dir)
		store.LoadOpenState(statePath)
	}
	if flags.expandAll {
		store.OpenAll()
	}

	opts := []ui.Option{ui.WithTitle(title)}
	var load ui.LoadFunc
	if src.Path != "" {
		editor, closer, err := datasource.OpenEditor(src, entries)
		if err != nil {
			return err
		}
		defer closer.Close()
		store.SetHandlers(datasource.HandlersFor(ctx, editor))

		load = func(ctx context.Context) ([]model.Entry, error) {
			return loadSource(ctx, src, cfg)
		}
		opts = append(opts, ui.WithLoader(load))
	}

	m := ui.New(store, cfg, opts...)

	var onStart func(send func(tea.Msg)) func()
	if flags.watch && load != nil {
		onStart = func(send func(tea.Msg)) func() {
			stop, err := startWatch(ctx, src, cfg, entries, load, send)
			if err != nil {
				debug.Warn("watch: %v", err)
				return func() {}
			}
			return stop
		}
	}

	err := runTUIProgram(m, onStart)

	if statePath != "" {
		if err := store.SaveOpenState(statePath); err != nil {
			debug.Warn("saving open state: %v", err)
		}
	}
	return err
}

// runTUIProgram runs the widget full screen. onStart, when set, runs once
// the program exists and may send it messages; the function it returns
// runs on exit.
func runTUIProgram(m tea.Model, onStart func(send func(tea.Msg)) func()) error {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithoutSignalHandler(),
	)

	if onStart != nil {
		stop := onStart(p.Send)
		defer stop()
	}

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	// Optional auto-quit for automated tests: set ARBOR_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("ARBOR_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()

				select {
				case <-runDone:
					return
				case <-timer.C:
				}

				p.Quit()
			}()
		}
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
		return nil
	}
	return err
}
