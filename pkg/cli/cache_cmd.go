package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hkdev/hk/pkg/cache"
	"github.com/hkdev/hk/pkg/console"
)

// NewCacheCommand builds `hk cache` with its clear subcommand.
func NewCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "cache",
		Short:   "Manage hk's check-result cache",
		GroupID: "maintenance",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove all cached check results",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadContext(cmd.Context(), &global, nil)
			if err != nil {
				return err
			}
			if err := cache.New(app.Settings.CacheDir).Clear(); err != nil {
				return err
			}
			fmt.Fprintln(os.Stderr, console.FormatSuccessMessage("cache cleared"))
			return nil
		},
	})
	return cmd
}
