package cmd

import (
	"context"
	"path/filepath"

	"github.com/oneconcern/lfslink/pkg/linker"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [path...]",
	Short: "Show the materialization state of tracked entries",
	Long: `Show how each tracked entry is materialized in the working copy: linked
(hard link into the store), copy (independent content), placeholder (pointer
record), or untracked (absent from the working tree).`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		h, err := flagsToHandles(ctx)
		if err != nil {
			wrapFatalln("resolve repository", err)
			return
		}
		engine, err := h.newEngine(ctx)
		if err != nil {
			wrapFatalln("create link engine", err)
			return
		}
		entries, err := h.trackedEntries(ctx, args)
		if err != nil {
			wrapFatalln("list tracked entries", err)
			return
		}

		counts := map[linker.EntryState]int{}
		for _, entry := range entries {
			state, err := engine.StateOf(entry)
			if err != nil {
				wrapFatalln("classify "+entry.Path, err)
				return
			}
			counts[state]++
			rel, err := filepath.Rel(h.topLevel, entry.Path)
			if err != nil {
				rel = entry.Path
			}
			_, _ = logStdOut("%-12s %s\n", state, rel)
		}
		infoLogger.Printf("%d linked, %d copies, %d placeholders, %d untracked",
			counts[linker.StateLinked], counts[linker.StateCopy],
			counts[linker.StatePlaceholder], counts[linker.StateUntracked])
	},
}

func init() {
	addRepoFlags(statusCmd)

	rootCmd.AddCommand(statusCmd)
}
