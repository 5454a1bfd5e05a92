package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/hkdev/hk/pkg/console"
	"github.com/hkdev/hk/pkg/engine"
	"github.com/hkdev/hk/pkg/settings"
)

// NewConfigCommand builds `hk config` with dump, get, sources, and show.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "config",
		Short:   "Inspect the effective configuration and settings",
		GroupID: "maintenance",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Print the parsed project config",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadContext(cmd.Context(), &global, nil)
			if err != nil {
				return err
			}
			if app.Settings.JSON {
				return console.OutputJSON(app.Config)
			}
			out, err := yaml.Marshal(app.Config)
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(out)
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print one effective setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadContext(cmd.Context(), &global, nil)
			if err != nil {
				return err
			}
			value, err := app.Settings.Describe(args[0])
			if err != nil {
				return &engine.ConfigError{Err: err}
			}
			fmt.Println(value)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "sources [key]",
		Short: "Show which layer every setting came from",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadContext(cmd.Context(), &global, nil)
			if err != nil {
				return err
			}
			keys := app.Settings.SourceKeys()
			if len(args) == 1 {
				keys = []string{args[0]}
			}
			if app.Settings.JSON {
				out := map[string][]settings.Source{}
				for _, key := range keys {
					out[key] = app.Settings.Sources(key)
				}
				return console.OutputJSON(out)
			}
			for _, key := range keys {
				sources := app.Settings.Sources(key)
				if len(sources) == 0 {
					continue
				}
				var parts []string
				for _, src := range sources {
					parts = append(parts, fmt.Sprintf("%s=%q", src.Layer, src.Value))
				}
				mergeNote := ""
				if settings.IsUnionKey(key) {
					mergeNote = " (union)"
				}
				fmt.Printf("%s%s: %s\n", key, mergeNote, strings.Join(parts, " < "))
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print every effective setting",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadContext(cmd.Context(), &global, nil)
			if err != nil {
				return err
			}
			for _, key := range app.Settings.SourceKeys() {
				value, err := app.Settings.Describe(key)
				if err != nil {
					continue
				}
				fmt.Printf("%s = %s\n", key, value)
			}
			return nil
		},
	})

	return cmd
}
