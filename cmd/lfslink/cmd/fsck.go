package cmd

import (
	"context"

	"github.com/oneconcern/lfslink/pkg/store"
	"github.com/spf13/cobra"
)

var fsckCmd = &cobra.Command{
	Use:   "fsck",
	Short: "Audit the object store's permission invariants",
	Long: `Audit every directory and object file of the store against the permission
regime: private stores keep everything owner-only, shared stores keep
directories group-writable with the set-group-id bit, and object files are
read-only for all principals in both regimes.

The regime is detected from the repository metadata directory unless forced
with --shared or --private. With --fix each mismatch is repaired
independently; a repair failure does not stop the audit.`,
	Run: func(cmd *cobra.Command, args []string) {
		if lfslinkFlags.store.shared && lfslinkFlags.store.private {
			wrapFatalln("--shared and --private are mutually exclusive", nil)
			return
		}

		ctx := context.Background()
		h, err := flagsToHandles(ctx)
		if err != nil {
			wrapFatalln("resolve repository", err)
			return
		}

		auditor := store.NewAuditor(h.store.Root(),
			store.AuditShared(h.shared),
			store.AuditFix(lfslinkFlags.fsck.fix),
			store.AuditLogger(h.l),
		)
		report, err := auditor.Audit()
		if err != nil {
			wrapFatalln("audit store", err)
			return
		}
		for _, line := range report.Lines() {
			infoLogger.Println(line)
		}
		if err := report.Err(); err != nil {
			wrapFatalWithCodef(2, "%v", err)
			return
		}
		infoLogger.Printf("audit clean (%d entries repaired)", len(report.Mismatches))
	},
}

func init() {
	addRepoFlags(fsckCmd)
	addFixFlag(fsckCmd)

	rootCmd.AddCommand(fsckCmd)
}
