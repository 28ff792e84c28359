package main

import (
	"fmt"
	"io"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/sadopc/sqlextract/internal/history"
	"github.com/sadopc/sqlextract/internal/theme"
	"github.com/sadopc/sqlextract/internal/ui/historybrowser"
)

func newHistoryCmd(g *globalOptions) *cobra.Command {
	var (
		limit  int
		search string
		clearAll bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent extraction runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g.configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			theme.Use(cfg.Theme)

			hist, err := history.New()
			if err != nil {
				return err
			}
			defer hist.Close()

			if clearAll {
				if err := hist.Clear(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
				return nil
			}

			if isInteractive(g.plain) && search == "" {
				return browseHistory(cmd.OutOrStdout(), hist, limit)
			}

			var runs []history.Run
			if search != "" {
				runs, err = hist.Search("%"+search+"%", limit)
			} else {
				runs, err = hist.Recent(limit)
			}
			if err != nil {
				return err
			}
			printRuns(cmd.OutOrStdout(), runs, theme.Current, isInteractive(g.plain))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	cmd.Flags().StringVar(&search, "search", "", "Only runs whose database or output directory contains this text")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "Delete all recorded runs")
	return cmd
}

func runStatus(r history.Run) string {
	switch {
	case r.Cancelled:
		return "cancelled"
	case r.Failed > 0:
		return strconv.Itoa(r.Failed) + " failed"
	}
	return "ok"
}

func printRuns(w io.Writer, runs []history.Run, th *theme.Theme, styled bool) {
	if len(runs) == 0 {
		fmt.Fprintln(w, th.MutedText.Render("No runs recorded."))
		return
	}

	headers := []string{"Started", "Adapter", "Database", "Output", "Types", "Written", "Empty", "Status"}
	rows := make([][]string, len(runs))
	for i, r := range runs {
		rows[i] = []string{
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Adapter,
			r.DatabaseName,
			r.OutputDir,
			r.Categories,
			strconv.Itoa(r.Written),
			strconv.Itoa(r.Empty),
			runStatus(r),
		}
	}

	if !styled {
		for _, row := range rows {
			for i, cell := range row {
				if i > 0 {
					fmt.Fprint(w, "\t")
				}
				fmt.Fprint(w, cell)
			}
			fmt.Fprintln(w)
		}
		return
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(th.TableBorder).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return th.TableHeader
			}
			return th.TableCell
		})
	fmt.Fprintln(w, t.String())
}

func browseHistory(w io.Writer, hist *history.History, limit int) error {
	final, err := tea.NewProgram(historybrowser.New(hist, limit)).Run()
	if err != nil {
		return fmt.Errorf("history browser: %w", err)
	}
	if r, ok := final.(historybrowser.Model).Selected(); ok {
		printRunDetail(w, r, theme.Current)
	}
	return nil
}

// printRunDetail prints one run and the command line that repeats it. The
// stored connection string has no credentials, so they must be added back.
func printRunDetail(w io.Writer, r history.Run, th *theme.Theme) {
	field := func(label, value string) {
		fmt.Fprintf(w, "%s %s\n", th.Label.Render(fmt.Sprintf("%-10s", label+":")), value)
	}
	field("Started", r.StartedAt.Local().Format("2006-01-02 15:04:05"))
	field("Adapter", r.Adapter)
	field("Database", r.DatabaseName)
	field("DSN", r.DSN)
	field("Output", th.Path.Render(r.OutputDir))
	field("Types", r.Categories)
	field("Separator", strconv.Quote(r.Separator))
	field("Result", fmt.Sprintf("%d listed, %d written, %d empty, %d failed (%s)", r.Listed, r.Written, r.Empty, r.Failed, runStatus(r)))
	fmt.Fprintln(w)
	fmt.Fprintln(w, th.MutedText.Render(rerunCommand(r)))
}

func rerunCommand(r history.Run) string {
	return fmt.Sprintf("sqlextract %s -a %s -d %s -t %s -s %s",
		strconv.Quote(r.DSN), r.Adapter, strconv.Quote(r.OutputDir), strconv.Quote(r.Categories), strconv.Quote(r.Separator))
}
