// Package linker materializes tracked working-copy files as hard links,
// copies, or placeholders against the canonical object store.
//
// The one invariant every path through this package preserves: a file
// that may be hard-linked to a store object is never opened in truncate
// or overwrite mode. All replacement is unlink- or rename-based, so the
// canonical bytes cannot be corrupted through a shared inode.
package linker

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru"
	"github.com/oneconcern/lfslink/pkg/dlogger"
	"github.com/oneconcern/lfslink/pkg/model"
	"github.com/oneconcern/lfslink/pkg/status"
	"github.com/oneconcern/lfslink/pkg/store"
	"go.uber.org/zap"
)

const (
	// executableFileMode is the mode of materialized executable entries.
	// Executables are always private copies, never hard links: a working
	// file that execute-oriented tooling may rewrite must not co-own the
	// canonical store bytes.
	executableFileMode os.FileMode = 0o755

	// defaultPresenceCacheSize bounds the cache of object ids known to be
	// present locally, saving one stat per already-seen id in bulk runs.
	defaultPresenceCacheSize = 16384
)

// Checkout is the version-control collaborator materializing content the
// engine itself does not produce: full checkouts and placeholder-only
// checkouts of tracked paths.
type Checkout interface {
	CheckoutContent(ctx context.Context, paths []string) error
	CheckoutPointer(ctx context.Context, paths []string) error
}

// IndexUpdater receives the paths whose on-disk identity was changed by
// relinking, so the version-control index can be refreshed cheaply.
type IndexUpdater interface {
	MarkUnmodified(ctx context.Context, paths []string) error
}

// Engine orchestrates per-file materialization using the object store,
// the alternate resolver, and the external collaborators.
type Engine struct {
	store         *store.Store
	alternates    *store.Resolver
	checkout      Checkout
	updater       IndexUpdater
	ignoreMissing bool
	l             *zap.Logger

	presence     *lru.Cache
	presenceSize int
	relinked     []string
	skipped      []string
}

// New creates an Engine over a store. The alternate resolver may be nil
// when no alternates are configured.
func New(s *store.Store, r *store.Resolver, opts ...Option) (*Engine, error) {
	e := &Engine{
		store:        s,
		alternates:   r,
		presenceSize: defaultPresenceCacheSize,
		l:            dlogger.MustGetLogger(dlogger.LogLevelInfo),
	}
	for _, apply := range opts {
		apply(e)
	}
	var err error
	e.presence, err = lru.New(e.presenceSize)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// MaterializeLink ensures the entry's object is present locally, then
// materializes the working path for it.
//
// Non-executable entries become hard links to the canonical object,
// through a temporary name and an atomic rename; a destination already
// sharing the object's device and inode short-circuits with no
// filesystem mutation. Executable entries are materialized as private
// copies with the executable bit set.
//
// A missing object aborts with status.ErrMissingObject, unless the
// engine runs in ignore-missing mode, in which case the entry is skipped
// and reported. When alternates are configured and exhausted, the error
// chain also carries status.ErrAlternateUnavailable.
func (e *Engine) MaterializeLink(entry model.TrackedEntry) error {
	present, err := e.ensurePresent(entry.Oid)
	if err != nil {
		return err
	}
	if !present {
		if e.ignoreMissing {
			e.l.Warn("object missing, entry skipped",
				zap.Stringer("oid", entry.Oid),
				zap.String("path", entry.Path),
			)
			e.skipped = append(e.skipped, entry.Path)
			return nil
		}
		missing := status.ErrMissingObject
		if e.alternates != nil {
			// every configured alternate was probed and came up empty
			missing = missing.Wrap(status.ErrAlternateUnavailable)
		}
		return fmt.Errorf("link %q (%s): %w", entry.Path, entry.Oid, missing)
	}

	objPath := e.store.ObjectPath(entry.Oid)

	if entry.Executable {
		// idempotence: an untouched executable copy is left alone and
		// not re-reported to the index updater
		current, err := e.executableCurrent(objPath, entry.Path)
		if err != nil {
			return err
		}
		if current {
			return nil
		}
		if err := e.copyExecutable(objPath, entry.Path); err != nil {
			return err
		}
		e.relinked = append(e.relinked, entry.Path)
		return nil
	}

	if err := e.store.EnsureReadOnly(entry.Oid); err != nil {
		return err
	}

	// idempotence: an already-correct link is left untouched
	same, err := store.SameFile(objPath, entry.Path)
	if err != nil {
		return err
	}
	if same {
		e.l.Debug("already linked", zap.String("path", entry.Path))
		return nil
	}

	if err := store.AtomicLink(objPath, entry.Path); err != nil {
		return err
	}
	e.l.Debug("linked", zap.String("path", entry.Path), zap.Stringer("oid", entry.Oid))
	e.relinked = append(e.relinked, entry.Path)
	return nil
}

// MaterializeCopy replaces each entry with an independent full-content
// copy. Destinations are unlinked first: the prior state may share the
// canonical object's inode, and an in-place overwrite would corrupt the
// store. Content production is delegated to the checkout collaborator.
func (e *Engine) MaterializeCopy(ctx context.Context, entries []model.TrackedEntry) error {
	paths, err := e.unlinkAll(entries)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return nil
	}
	if e.checkout == nil {
		return fmt.Errorf("no checkout collaborator configured")
	}
	return e.checkout.CheckoutContent(ctx, paths)
}

// MaterializePlaceholder replaces each entry with a content-free pointer
// placeholder, with the same unlink-first discipline as MaterializeCopy.
func (e *Engine) MaterializePlaceholder(ctx context.Context, entries []model.TrackedEntry) error {
	paths, err := e.unlinkAll(entries)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return nil
	}
	if e.checkout == nil {
		return fmt.Errorf("no checkout collaborator configured")
	}
	return e.checkout.CheckoutPointer(ctx, paths)
}

// Relinked returns the paths whose identity changed in this invocation.
func (e *Engine) Relinked() []string {
	return e.relinked
}

// Skipped returns the entries bypassed in ignore-missing mode.
func (e *Engine) Skipped() []string {
	return e.skipped
}

// FlushIndexUpdates reports every relinked path to the index updater.
func (e *Engine) FlushIndexUpdates(ctx context.Context) error {
	if len(e.relinked) == 0 || e.updater == nil {
		return nil
	}
	return e.updater.MarkUnmodified(ctx, e.relinked)
}

// ensurePresent resolves presence locally first, then through the
// alternates, caching positive answers only.
func (e *Engine) ensurePresent(id model.ObjectID) (bool, error) {
	if _, ok := e.presence.Get(id); ok {
		return true, nil
	}
	if e.store.Has(id) {
		e.presence.Add(id, struct{}{})
		return true, nil
	}
	if e.alternates == nil {
		return false, nil
	}
	ok, err := e.alternates.Borrow(id)
	if err != nil {
		return false, err
	}
	if ok {
		e.presence.Add(id, struct{}{})
	}
	return ok, nil
}

// executableCurrent reports whether the destination already is an
// up-to-date executable copy of the object: regular, executable mode, and
// carrying the size and mtime stamped by copyExecutable. An edit to the
// copy changes at least one of these.
func (e *Engine) executableCurrent(objPath, dst string) (bool, error) {
	obj, err := os.Stat(objPath)
	if err != nil {
		return false, err
	}
	info, err := os.Lstat(dst)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular() &&
		info.Mode()&os.ModePerm == executableFileMode &&
		info.Size() == obj.Size() &&
		info.ModTime().Equal(obj.ModTime()), nil
}

// copyExecutable writes the object's bytes to a temporary file beside the
// destination, sets the executable bit, and renames over the destination.
// The copy carries the object's mtime, so executableCurrent can recognize
// it as untouched on the next run.
func (e *Engine) copyExecutable(objPath, dst string) error {
	src, err := os.Open(objPath)
	if err != nil {
		return fmt.Errorf("copy %q: %w", dst, err)
	}
	defer src.Close()
	objInfo, err := src.Stat()
	if err != nil {
		return fmt.Errorf("copy %q: %w", dst, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".tmp-copy-*")
	if err != nil {
		return fmt.Errorf("copy %q: tmpfile: %w", dst, err)
	}
	tmpName := tmp.Name()

	if _, err = io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("copy %q: %w", dst, err)
	}
	if err = tmp.Chmod(executableFileMode); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("copy %q: chmod: %w", dst, err)
	}
	if err = tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("copy %q: close: %w", dst, err)
	}
	if err = os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("copy %q: rename: %w", dst, err)
	}
	if err = os.Chtimes(dst, objInfo.ModTime(), objInfo.ModTime()); err != nil {
		return fmt.Errorf("copy %q: set times: %w", dst, err)
	}
	return nil
}

// unlinkAll removes every destination that still exists. Removal is
// mandatory before any rewrite, whatever the prior state: only unlinking
// guarantees the canonical object keeps its bytes.
func (e *Engine) unlinkAll(entries []model.TrackedEntry) ([]string, error) {
	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if err := os.Remove(entry.Path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("unlink %q: %w", entry.Path, err)
		}
		paths = append(paths, entry.Path)
	}
	return paths, nil
}
