package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/sadopc/sqlextract/internal/catalog"
	"github.com/sadopc/sqlextract/internal/config"
	"github.com/sadopc/sqlextract/internal/history"
	"github.com/sadopc/sqlextract/internal/pipeline"
	"github.com/sadopc/sqlextract/internal/report"
	"github.com/sadopc/sqlextract/internal/theme"
	"github.com/sadopc/sqlextract/internal/ui/progress"
)

// extractOptions are the flags of the root command.
type extractOptions struct {
	separator string
	types     string
	directory string
	logPath   string
	quiet     bool
	verbose   bool
	noHistory bool
}

// runSettings are the extraction parameters after flags and config are merged.
type runSettings struct {
	separator  rune
	categories catalog.Set
	directory  string
	timeout    time.Duration
}

// resolveSettings applies flag > config > default. changed reports whether
// a flag was set on the command line.
func resolveSettings(cfg *config.Config, o extractOptions, timeout time.Duration, changed func(string) bool) (runSettings, error) {
	sep, types, dir := cfg.Extract.Separator, cfg.Extract.Types, cfg.Extract.Directory
	if changed("separator") {
		sep = o.separator
	}
	if changed("type") {
		types = o.types
	}
	if changed("directory") {
		dir = o.directory
	}

	var s runSettings
	var err error
	if s.separator, err = config.ParseSeparator(sep); err != nil {
		return runSettings{}, err
	}
	if s.categories, err = catalog.ParseSet(types); err != nil {
		return runSettings{}, err
	}
	if dir == "" {
		return runSettings{}, errors.New("output directory must not be empty")
	}
	s.directory = dir

	s.timeout = cfg.ConnectTimeout()
	if changed("timeout") {
		if timeout <= 0 {
			return runSettings{}, fmt.Errorf("timeout must be positive, got %s", timeout)
		}
		s.timeout = timeout
	}
	return s, nil
}

// loadConfig reads the config named by --config, or the default file. A
// broken default file only produces a warning.
func loadConfig(path string, stderr io.Writer) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	cfg, err := config.LoadDefault()
	if err != nil {
		fmt.Fprintf(stderr, "Warning: could not load config: %v\n", err)
		cfg = config.DefaultConfig()
	}
	return cfg, nil
}

// openEventLog opens the JSON Lines log when --log is given or the config
// enables it. Failure to open it is only a warning.
func openEventLog(cfg *config.Config, flagPath string, stderr io.Writer) *report.JSONLines {
	path := flagPath
	if path == "" {
		if !cfg.Log.Enabled {
			return nil
		}
		p, err := cfg.LogPath()
		if err != nil {
			fmt.Fprintf(stderr, "Warning: could not open event log: %v\n", err)
			return nil
		}
		path = p
	}
	l, err := report.NewJSONLines(path, cfg.Log.MaxSizeMB)
	if err != nil {
		fmt.Fprintf(stderr, "Warning: could not open event log: %v\n", err)
		return nil
	}
	return l
}

func runExtract(cmd *cobra.Command, args []string, g *globalOptions, o *extractOptions) error {
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	cfg, err := loadConfig(g.configPath, stderr)
	if err != nil {
		return err
	}
	theme.Use(cfg.Theme)

	settings, err := resolveSettings(cfg, *o, g.timeout, cmd.Flags().Changed)
	if err != nil {
		return err
	}
	t, err := resolveTarget(cfg, args, g)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	interactive := isInteractive(g.plain)
	conn, err := openConnection(ctx, t, settings.timeout, interactive, stderr)
	if err != nil {
		return err
	}
	defer conn.Close()

	eventLog := openEventLog(cfg, o.logPath, stderr)
	defer eventLog.Close()

	req := pipeline.Request{
		Categories: settings.categories,
		OutputRoot: settings.directory,
		Separator:  settings.separator,
		Conn:       conn,
	}
	connected := report.Event{
		Time:   time.Now(),
		Kind:   report.Connected,
		Detail: fmt.Sprintf("%s %s", t.adapter, conn.DatabaseName()),
	}

	started := time.Now()
	var res pipeline.Result
	if interactive {
		eventLog.Emit(connected)
		res, err = runWithProgress(ctx, req, eventLog, conn.DatabaseName())
	} else {
		console := report.NewConsole(stdout, theme.Current)
		console.Quiet, console.Verbose = o.quiet, o.verbose
		if eventLog != nil {
			req.Sink = report.Multi(console, eventLog)
		} else {
			req.Sink = console
		}
		req.Sink.Emit(connected)
		res, err = pipeline.Run(ctx, req)
	}
	if err != nil {
		return err
	}

	if cfg.History.Enabled && !o.noHistory {
		recordRun(stderr, t, conn.DatabaseName(), settings, res, started)
	}

	if res.Cancelled() {
		return &exitError{code: exitInterrupted, err: fmt.Errorf("run cancelled after %d files", res.Written())}
	}
	return nil
}

// runWithProgress runs the pipeline in the background and renders it with
// the live progress view until the run is done.
func runWithProgress(ctx context.Context, req pipeline.Request, eventLog *report.JSONLines, dbName string) (pipeline.Result, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	title := "Extracting"
	if dbName != "" {
		title += " " + dbName
	}
	p := tea.NewProgram(progress.New(title, req.Categories, cancel))
	if eventLog != nil {
		req.Sink = report.Multi(progress.NewSink(p), eventLog)
	} else {
		req.Sink = progress.NewSink(p)
	}

	type outcome struct {
		res pipeline.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := pipeline.Run(runCtx, req)
		done <- outcome{res, err}
		if err != nil {
			p.Quit()
		}
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-done
		return pipeline.Result{}, fmt.Errorf("progress view: %w", err)
	}
	// A second ctrl+c quits the view before the run has stopped.
	cancel()
	out := <-done
	return out.res, out.err
}

func recordRun(stderr io.Writer, t target, dbName string, s runSettings, res pipeline.Result, started time.Time) {
	hist, err := history.New()
	if err != nil {
		fmt.Fprintf(stderr, "Warning: could not open history: %v\n", err)
		return
	}
	defer hist.Close()

	listed := 0
	for _, c := range res.Categories {
		listed += c.Listed
	}
	_, err = hist.Add(history.Run{
		StartedAt:    started,
		Adapter:      t.adapter,
		DatabaseName: dbName,
		DSN:          report.SanitizeDSN(t.dsn),
		OutputDir:    s.directory,
		Categories:   s.categories.String(),
		Separator:    string(s.separator),
		Listed:       listed,
		Written:      res.Written(),
		Empty:        res.Empty(),
		Failed:       res.Failed(),
		Cancelled:    res.Cancelled(),
		DurationMS:   res.Duration.Milliseconds(),
	})
	if err != nil {
		fmt.Fprintf(stderr, "Warning: could not record run: %v\n", err)
	}
}
