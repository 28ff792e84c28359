package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"

	"github.com/sadopc/sqlextract/internal/adapter"
	"github.com/sadopc/sqlextract/internal/config"
	"github.com/sadopc/sqlextract/internal/report"
	"github.com/sadopc/sqlextract/internal/ui/progress"
)

// target is a resolved adapter and connection string.
type target struct {
	adapter string
	dsn     string
}

// detectAdapter guesses the dialect of a connection string. Anything that is
// not recognisably another dialect is treated as a SQL Server ADO string.
func detectAdapter(dsn string) string {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	switch {
	case lower == "":
		return ""
	case strings.HasPrefix(lower, "sqlserver://") || strings.HasPrefix(lower, "mssql://"):
		return "sqlserver"
	case strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://"):
		return "postgres"
	case strings.HasPrefix(lower, "mysql://"):
		return "mysql"
	case strings.HasPrefix(lower, "sqlite://") || strings.HasPrefix(lower, "file:"):
		return "sqlite"
	case strings.HasPrefix(lower, "duckdb://"):
		return "duckdb"
	case strings.HasSuffix(lower, ".db") || strings.HasSuffix(lower, ".sqlite") || strings.HasSuffix(lower, ".sqlite3"):
		return "sqlite"
	case strings.HasSuffix(lower, ".duckdb"):
		return "duckdb"
	case strings.Contains(lower, "@tcp("):
		return "mysql"
	case strings.Contains(lower, ";"):
		return "sqlserver"
	case strings.Contains(lower, "dbname=") || strings.Contains(lower, "host="):
		return "postgres"
	}
	return "sqlserver"
}

// resolveTarget picks the connection from the positional argument or a saved
// connection. --adapter overrides whatever was detected.
func resolveTarget(cfg *config.Config, args []string, g *globalOptions) (target, error) {
	var t target
	switch {
	case g.connection != "" && len(args) > 0:
		return target{}, errors.New("give either a connection string or --connection, not both")
	case g.connection != "":
		sc, err := cfg.Connection(g.connection)
		if err != nil {
			return target{}, err
		}
		t = target{adapter: strings.ToLower(sc.Adapter), dsn: sc.BuildDSN()}
	case len(args) > 0:
		t = target{adapter: detectAdapter(args[0]), dsn: args[0]}
	default:
		return target{}, errors.New("no connection string given (pass one as an argument or use --connection)")
	}

	if g.adapter != "" {
		t.adapter = strings.ToLower(g.adapter)
	}
	if strings.TrimSpace(t.dsn) == "" {
		return target{}, errors.New("empty connection string")
	}
	if _, err := adapter.Lookup(t.adapter); err != nil {
		return target{}, err
	}
	return t, nil
}

// isInteractive reports whether the live views should be used.
func isInteractive(plain bool) bool {
	if plain {
		return false
	}
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// openConnection runs the connectivity probe. Failure is an exitError with
// exitConnectivity.
func openConnection(ctx context.Context, t target, timeout time.Duration, interactive bool, stderr io.Writer) (adapter.Connection, error) {
	a, err := adapter.Lookup(t.adapter)
	if err != nil {
		return nil, err
	}

	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	connect := func() (adapter.Connection, error) {
		return a.Connect(probeCtx, t.dsn)
	}

	var conn adapter.Connection
	if interactive {
		label := fmt.Sprintf("Connecting to %s (%s)", report.SanitizeDSN(t.dsn), t.adapter)
		final, runErr := tea.NewProgram(progress.NewProbe(label, connect), tea.WithOutput(stderr)).Run()
		if runErr != nil {
			return nil, fmt.Errorf("probe: %w", runErr)
		}
		probe := final.(progress.Probe)
		if probe.Aborted() {
			return nil, &exitError{code: exitInterrupted, err: context.Canceled}
		}
		conn, err = probe.Result()
	} else {
		conn, err = connect()
	}

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("no answer within %s: %w", timeout, err)
		}
		return nil, &exitError{
			code: exitConnectivity,
			err:  fmt.Errorf("%w to %s: %w", errConnectivity, report.SanitizeDSN(t.dsn), err),
		}
	}
	return conn, nil
}
