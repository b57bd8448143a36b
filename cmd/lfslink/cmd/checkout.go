package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var checkoutCmd = &cobra.Command{
	Use:   "checkout [path...]",
	Short: "Replace hard links with independent copies or placeholders",
	Long: `Safely de-link tracked entries before editing them in place. Each selected
working file is unlinked first, so the canonical object keeps its bytes, then
rematerialized as an independent full-content copy (--copy) or as a small
pointer placeholder (--placeholder).`,
	Run: func(cmd *cobra.Command, args []string) {
		if lfslinkFlags.checkout.copy && lfslinkFlags.checkout.placeholder {
			wrapFatalln("--copy and --placeholder are mutually exclusive", nil)
			return
		}

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

		if lfslinkFlags.checkout.placeholder {
			err = engine.MaterializePlaceholder(ctx, entries)
		} else {
			err = engine.MaterializeCopy(ctx, entries)
		}
		if err != nil {
			wrapFatalln("checkout", err)
			return
		}
		infoLogger.Printf("%d entries checked out", len(entries))
	},
}

func init() {
	addRepoFlags(checkoutCmd)
	checkoutCmd.Flags().BoolVar(&lfslinkFlags.checkout.copy, "copy", false,
		"Materialize independent full-content copies (the default)")
	checkoutCmd.Flags().BoolVar(&lfslinkFlags.checkout.placeholder, "placeholder", false,
		"Materialize content-free pointer placeholders")

	rootCmd.AddCommand(checkoutCmd)
}
