package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete local objects outside the retention window",
	Long: `Delete local objects that fall outside the retention window, delegating
history scanning and deletion to the transfer extension. With --boundary the
named remote must hold a copy of anything deleted.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		h, err := flagsToHandles(ctx)
		if err != nil {
			wrapFatalln("resolve repository", err)
			return
		}
		err = h.ext.Prune(ctx, lfslinkFlags.prune.boundary, lfslinkFlags.prune.retentionDays)
		if err != nil {
			wrapFatalln("prune", err)
			return
		}
	},
}

func init() {
	addRepoFlags(pruneCmd)
	addBoundaryFlag(pruneCmd)
	addRetentionDaysFlag(pruneCmd)

	rootCmd.AddCommand(pruneCmd)
}
