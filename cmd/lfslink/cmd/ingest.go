package cmd

import (
	"context"
	"path/filepath"

	"github.com/oneconcern/lfslink/pkg/model"
	"github.com/oneconcern/lfslink/pkg/store"
	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <path>...",
	Short: "Ingest files into the object store",
	Long: `Ingest each file into the object store and hard-link it to its canonical
object, printing the pointer record for each. Files whose inode already
belongs to the store, or to an alternate store, are recognized through the
inode index and skip hashing entirely.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		h, err := flagsToHandles(ctx)
		if err != nil {
			wrapFatalln("resolve repository", err)
			return
		}

		roots := []string{h.store.Root()}
		alternates, err := h.resolver.Discover()
		if err != nil {
			wrapFatalln("discover alternates", err)
			return
		}
		for _, alt := range alternates {
			roots = append(roots, alt.Path)
		}
		index := store.NewInodeIndex(roots, store.IndexLogger(h.l))
		if err := index.Build(); err != nil {
			wrapFatalln("build inode index", err)
			return
		}

		for _, arg := range args {
			path, err := filepath.Abs(arg)
			if err != nil {
				wrapFatalln("resolve "+arg, err)
				return
			}

			var pointer model.Pointer
			if record, ok := index.Lookup(path); ok {
				// the bytes are already stored: link, do not rehash
				if err := h.store.LinkObjectInto(record.Oid, path); err != nil {
					wrapFatalln("link "+path, err)
					return
				}
				pointer = model.Pointer{Oid: record.Oid, Size: record.Size}
			} else {
				id, size, err := h.store.Ingest(path)
				if err != nil {
					wrapFatalln("ingest "+path, err)
					return
				}
				pointer = model.Pointer{Oid: id, Size: size}
			}
			_, _ = logStdOut("%s", pointer.Marshal())
		}
	},
}

func init() {
	addRepoFlags(ingestCmd)

	rootCmd.AddCommand(ingestCmd)
}
