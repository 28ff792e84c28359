package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sadopc/sqlextract/internal/adapter"
	"github.com/sadopc/sqlextract/internal/catalog"
	"github.com/sadopc/sqlextract/internal/extractor"
	"github.com/sadopc/sqlextract/internal/highlight"
	"github.com/sadopc/sqlextract/internal/theme"
)

func newShowCmd(g *globalOptions) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "show <schema.name> [connection-string]",
		Short: "Print the definition of one object",
		Example: `  sqlextract show dbo.get_user_byId -t function "Server=db1;Database=Sales;..."
  sqlextract show main.v_users -t view ./app.db`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

			name, err := catalog.ParseQualifiedName(args[0])
			if err != nil {
				return err
			}
			cat, err := catalog.ParseCategory(category)
			if err != nil {
				return err
			}

			cfg, err := loadConfig(g.configPath, stderr)
			if err != nil {
				return err
			}
			theme.Use(cfg.Theme)

			timeout := cfg.ConnectTimeout()
			if cmd.Flags().Changed("timeout") {
				timeout = g.timeout
			}
			t, err := resolveTarget(cfg, args[1:], g)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			interactive := isInteractive(g.plain)
			conn, err := openConnection(ctx, t, timeout, interactive, stderr)
			if err != nil {
				return err
			}
			defer conn.Close()

			ext, err := extractor.New(cat, conn)
			if err != nil {
				return err
			}
			out := ext.FetchDefinition(ctx, name)
			switch out.Kind {
			case extractor.Empty:
				return fmt.Errorf("%s %s: %w", cat, name, adapter.ErrNoDefinition)
			case extractor.Failure:
				return fmt.Errorf("fetching %s %s: %w", cat, name, out.Err)
			}

			text := out.Text
			if interactive {
				text = highlight.New(conn.AdapterName()).Highlight(text, theme.Current)
			}
			fmt.Fprint(stdout, text)
			if !strings.HasSuffix(text, "\n") {
				fmt.Fprintln(stdout)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&category, "type", "t", "", "Object type: procedure, function, trigger or view")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}
