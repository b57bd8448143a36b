package cmd

import (
	"context"

	"github.com/oneconcern/lfslink/pkg/linker"
	"github.com/spf13/cobra"
)

var linkCmd = &cobra.Command{
	Use:   "link [path...]",
	Short: "Materialize tracked entries as hard links into the store",
	Long: `Materialize every tracked entry, or only those under the given paths, as a
hard link to its canonical object. Entries already linked are left untouched.
Objects missing from the store are borrowed from alternate repositories when
possible; an object nowhere available aborts unless --ignore-missing is set.

Relinked paths are reported to the index so they do not show up as modified.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		h, err := flagsToHandles(ctx)
		if err != nil {
			wrapFatalln("resolve repository", err)
			return
		}
		engine, err := h.newEngine(ctx, linker.IgnoreMissing(lfslinkFlags.link.ignoreMissing))
		if err != nil {
			wrapFatalln("create link engine", err)
			return
		}
		entries, err := h.trackedEntries(ctx, args)
		if err != nil {
			wrapFatalln("list tracked entries", err)
			return
		}

		for _, entry := range entries {
			if err := engine.MaterializeLink(entry); err != nil {
				wrapFatalln("link "+entry.Path, err)
				return
			}
		}
		if err := engine.FlushIndexUpdates(ctx); err != nil {
			wrapFatalln("update index", err)
			return
		}
		infoLogger.Printf("%d entries, %d relinked, %d skipped",
			len(entries), len(engine.Relinked()), len(engine.Skipped()))
	},
}

func init() {
	addRepoFlags(linkCmd)
	addIgnoreMissingFlag(linkCmd)

	rootCmd.AddCommand(linkCmd)
}
