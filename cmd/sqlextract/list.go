package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"github.com/sadopc/sqlextract/internal/catalog"
	"github.com/sadopc/sqlextract/internal/pipeline"
	"github.com/sadopc/sqlextract/internal/theme"
)

// listRow is one object of a listing.
type listRow struct {
	category catalog.Category
	name     catalog.QualifiedName
}

// filterRows keeps the rows whose "schema.name" fuzzy-matches pattern, best
// match first. An empty pattern keeps every row in listing order.
func filterRows(rows []listRow, pattern string) []listRow {
	if pattern == "" {
		return rows
	}
	names := make([]string, len(rows))
	for i, r := range rows {
		names[i] = strings.ToLower(r.name.String())
	}
	matches := fuzzy.Find(strings.ToLower(pattern), names)
	out := make([]listRow, len(matches))
	for i, m := range matches {
		out[i] = rows[m.Index]
	}
	return out
}

func renderTable(rows []listRow, th *theme.Theme) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(th.TableBorder).
		Headers("Type", "Name").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return th.TableHeader
			}
			if col == 0 {
				return th.Category
			}
			return th.TableCell
		})
	for _, r := range rows {
		t.Row(r.category.String(), r.name.String())
	}
	return t.String()
}

func renderPlain(w io.Writer, rows []listRow) {
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\n", r.category, r.name)
	}
}

func newListCmd(g *globalOptions) *cobra.Command {
	var (
		types  string
		filter string
		format string
	)

	cmd := &cobra.Command{
		Use:   "list [connection-string]",
		Short: "List the objects that would be extracted without writing anything",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

			interactive := isInteractive(g.plain)
			if !cmd.Flags().Changed("format") && !interactive {
				format = "plain"
			}
			if err := checkListFormat(format); err != nil {
				return err
			}

			cfg, err := loadConfig(g.configPath, stderr)
			if err != nil {
				return err
			}
			theme.Use(cfg.Theme)

			if !cmd.Flags().Changed("type") {
				types = cfg.Extract.Types
			}
			set, err := catalog.ParseSet(types)
			if err != nil {
				return err
			}
			timeout := cfg.ConnectTimeout()
			if cmd.Flags().Changed("timeout") {
				timeout = g.timeout
			}
			t, err := resolveTarget(cfg, args, g)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			conn, err := openConnection(ctx, t, timeout, interactive, stderr)
			if err != nil {
				return err
			}
			defer conn.Close()

			listings, err := pipeline.List(ctx, set, conn, nil)
			if err != nil {
				return err
			}

			var rows []listRow
			for _, l := range listings {
				if l.Err != nil {
					fmt.Fprintf(stderr, "%s listing %s failed: %v\n", theme.Current.ErrorText.Render("error:"), l.Category.Folder(), l.Err)
					continue
				}
				for _, n := range l.Names {
					rows = append(rows, listRow{category: l.Category, name: n})
				}
			}
			rows = filterRows(rows, filter)

			switch format {
			case "plain":
				renderPlain(stdout, rows)
				return nil
			case "csv":
				return writeCSV(stdout, rows)
			case "json":
				return writeJSON(stdout, rows)
			}
			if len(rows) == 0 {
				fmt.Fprintln(stdout, theme.Current.MutedText.Render("No objects found."))
				return nil
			}
			fmt.Fprintln(stdout, renderTable(rows, theme.Current))
			fmt.Fprintln(stdout, theme.Current.MutedText.Render(fmt.Sprintf("%d objects", len(rows))))
			return nil
		},
	}
	cmd.Flags().StringVarP(&types, "type", "t", "all", "Object types to list")
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "Fuzzy filter on schema.name")
	cmd.Flags().StringVarP(&format, "format", "o", "table", "Output format: "+strings.Join(listFormats, ", "))
	return cmd
}
