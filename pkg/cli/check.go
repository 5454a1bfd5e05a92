package cli

import (
	"github.com/spf13/cobra"
)

// NewCheckCommand builds `hk check`, which runs the check hook read-only
// against the working tree by default.
func NewCheckCommand() *cobra.Command {
	rf := &runFlags{}
	cmd := &cobra.Command{
		Use:     "check [files...]",
		Short:   "Run all checks without modifying files",
		GroupID: "hooks",
		RunE: func(cmd *cobra.Command, args []string) error {
			rf.check = true
			return runHook(cmd, "check", rf, args, true)
		},
	}
	registerRunFlags(cmd, rf)
	return cmd
}

// NewFixCommand builds `hk fix`, which runs the fix hook against the
// working tree by default.
func NewFixCommand() *cobra.Command {
	rf := &runFlags{}
	cmd := &cobra.Command{
		Use:     "fix [files...]",
		Short:   "Run all fixes, modifying files in place",
		GroupID: "hooks",
		RunE: func(cmd *cobra.Command, args []string) error {
			rf.fix = true
			return runHook(cmd, "fix", rf, args, true)
		},
	}
	registerRunFlags(cmd, rf)
	return cmd
}
