package cmd

import (
	"github.com/oneconcern/lfslink/pkg/dlogger"
	"github.com/spf13/cobra"
)

type flagsT struct {
	repo struct {
		workDir string
	}
	store struct {
		root    string
		shared  bool
		private bool
	}
	link struct {
		ignoreMissing bool
	}
	checkout struct {
		copy        bool
		placeholder bool
	}
	fsck struct {
		fix bool
	}
	alternates struct {
		file string
		weak []string
	}
	prune struct {
		boundary      string
		retentionDays int
	}
	root struct {
		logLevel string
	}
}

var lfslinkFlags = flagsT{}

func addLogLevelFlag(cmd *cobra.Command) string {
	loglevel := "loglevel"
	// the default stays empty so a config file value is distinguishable
	// from an unset flag; effectiveLogLevel resolves the fallback
	cmd.PersistentFlags().StringVar(&lfslinkFlags.root.logLevel, loglevel, "",
		"The log level: none, info, debug (defaults to info)")
	return loglevel
}

// effectiveLogLevel resolves the log level after flag and config overlay.
func (f *flagsT) effectiveLogLevel() string {
	if f.root.logLevel == "" {
		return dlogger.LogLevelInfo
	}
	return f.root.logLevel
}

// addRepoFlags attaches the flags every repository-scoped command needs:
// working copy location, store root override, and regime forcing.
func addRepoFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&lfslinkFlags.repo.workDir, "work-dir", "",
		"The working copy to operate in. Defaults to the current directory")
	cmd.Flags().StringVar(&lfslinkFlags.store.root, "store", "",
		"The object store root. Defaults to <git dir>/lfs/objects")
	cmd.Flags().BoolVar(&lfslinkFlags.store.shared, "shared", false,
		"Force the shared (multi-user) permission regime")
	cmd.Flags().BoolVar(&lfslinkFlags.store.private, "private", false,
		"Force the private (single-user) permission regime")
	cmd.Flags().StringVar(&lfslinkFlags.alternates.file, "alternates-file", "",
		"The alternates list. Defaults to <store>/info/alternates")
	cmd.Flags().StringSliceVar(&lfslinkFlags.alternates.weak, "alternate", nil,
		"An additional alternate repository or store root, may be repeated")
}

func addIgnoreMissingFlag(cmd *cobra.Command) string {
	ignoreMissing := "ignore-missing"
	cmd.Flags().BoolVar(&lfslinkFlags.link.ignoreMissing, ignoreMissing, false,
		"Skip entries whose object is nowhere available instead of aborting")
	return ignoreMissing
}

func addFixFlag(cmd *cobra.Command) string {
	fix := "fix"
	cmd.Flags().BoolVar(&lfslinkFlags.fsck.fix, fix, false,
		"Repair mismatched permissions instead of only reporting them")
	return fix
}

func addBoundaryFlag(cmd *cobra.Command) string {
	boundary := "boundary"
	cmd.Flags().StringVar(&lfslinkFlags.prune.boundary, boundary, "",
		"A remote that must hold a copy of anything deleted")
	return boundary
}

func addRetentionDaysFlag(cmd *cobra.Command) string {
	retentionDays := "retention-days"
	cmd.Flags().IntVar(&lfslinkFlags.prune.retentionDays, retentionDays, 14,
		"Objects referenced within this many days are kept")
	return retentionDays
}
