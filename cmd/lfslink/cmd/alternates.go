package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var alternatesCmd = &cobra.Command{
	Use:   "alternates",
	Short: "Print the discovered alternate store roots",
	Long: `Print every alternate store root this repository can borrow objects from,
in preference order. Candidates that do not exist, are not object stores, or
sit on a different filesystem device are silently dropped, since hard links
cannot cross devices.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		h, err := flagsToHandles(ctx)
		if err != nil {
			wrapFatalln("resolve repository", err)
			return
		}
		roots, err := h.resolver.Discover()
		if err != nil {
			wrapFatalln("discover alternates", err)
			return
		}
		if len(roots) == 0 {
			infoLogger.Println("no alternates")
			return
		}
		for _, root := range roots {
			infoLogger.Println(root.Path)
		}
	},
}

func init() {
	addRepoFlags(alternatesCmd)

	rootCmd.AddCommand(alternatesCmd)
}
