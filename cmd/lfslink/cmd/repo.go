package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/oneconcern/lfslink/pkg/dlogger"
	"github.com/oneconcern/lfslink/pkg/gitcli"
	"github.com/oneconcern/lfslink/pkg/lfsext"
	"github.com/oneconcern/lfslink/pkg/linker"
	"github.com/oneconcern/lfslink/pkg/model"
	"github.com/oneconcern/lfslink/pkg/store"
	"go.uber.org/zap"
)

// alternateConfigKey is the multi-valued repository configuration entry
// naming additional alternates, ranked after the store's alternates list.
const alternateConfigKey = "lfslink.alternate"

// repoHandles bundles the collaborators every repository-scoped command
// builds from the resolved flags.
type repoHandles struct {
	git      *gitcli.Git
	ext      *lfsext.Extension
	store    *store.Store
	resolver *store.Resolver
	gitDir   string
	topLevel string
	shared   bool
	l        *zap.Logger
}

func flagsToHandles(ctx context.Context) (*repoHandles, error) {
	l, err := dlogger.GetLogger(lfslinkFlags.effectiveLogLevel())
	if err != nil {
		return nil, err
	}

	workDir := lfslinkFlags.repo.workDir
	if workDir == "" {
		workDir = "."
	}
	git := gitcli.NewGit(workDir, gitcli.GitLogger(l))
	gitDir, err := git.GitDir(ctx)
	if err != nil {
		return nil, err
	}
	topLevel, err := git.TopLevel(ctx)
	if err != nil {
		return nil, err
	}

	var shared bool
	switch {
	case lfslinkFlags.store.shared:
		shared = true
	case lfslinkFlags.store.private:
		shared = false
	default:
		shared, err = store.DetectShared(gitDir)
		if err != nil {
			return nil, err
		}
	}

	root := lfslinkFlags.store.root
	if root == "" {
		root = filepath.Join(gitDir, "lfs", "objects")
	}
	s := store.New(root, store.Logger(l), store.SharedRepository(shared))

	weak := append([]string{}, lfslinkFlags.alternates.weak...)
	configured, err := git.ConfigGetAll(ctx, alternateConfigKey)
	if err != nil {
		return nil, err
	}
	weak = append(weak, configured...)

	ropts := []store.ResolverOption{
		store.ResolverLogger(l),
		store.WeakAlternates(weak),
	}
	if lfslinkFlags.alternates.file != "" {
		ropts = append(ropts, store.AlternatesFile(lfslinkFlags.alternates.file))
	}

	return &repoHandles{
		git:      git,
		ext:      lfsext.New(topLevel, lfsext.ExtLogger(l)),
		store:    s,
		resolver: store.NewResolver(s, ropts...),
		gitDir:   gitDir,
		topLevel: topLevel,
		shared:   shared,
		l:        l,
	}, nil
}

func (h *repoHandles) newEngine(ctx context.Context, extra ...linker.Option) (*linker.Engine, error) {
	opts := []linker.Option{
		linker.Logger(h.l),
		linker.WithCheckout(h.git),
		linker.WithIndexUpdater(gitcli.NewIndexUpdater(ctx, h.git)),
	}
	opts = append(opts, extra...)
	return linker.New(h.store, h.resolver, opts...)
}

// trackedEntries lists the working copy's large objects, restricted to
// the given path filters, with paths anchored at the working copy root
// and the executable bit overlaid from the working tree.
func (h *repoHandles) trackedEntries(ctx context.Context, filters []string) ([]model.TrackedEntry, error) {
	listed, err := h.ext.ListObjects(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]model.TrackedEntry, 0, len(listed))
	for _, entry := range listed {
		if !matchesFilter(entry.Path, filters) {
			continue
		}
		entry.Path = filepath.Join(h.topLevel, filepath.FromSlash(entry.Path))
		if info, err := os.Lstat(entry.Path); err == nil && info.Mode().IsRegular() {
			entry.Executable = info.Mode()&0o111 != 0
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// matchesFilter reports whether a repository-relative path is selected:
// no filters selects everything, otherwise an exact match or a directory
// prefix match.
func matchesFilter(path string, filters []string) bool {
	if len(filters) == 0 {
		return true
	}
	for _, f := range filters {
		f = filepath.ToSlash(filepath.Clean(f))
		if path == f || strings.HasPrefix(path, f+"/") {
			return true
		}
	}
	return false
}
