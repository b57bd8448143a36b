// Package store implements the canonical object store shared by lfslink
// working copies: a two-level sharded tree of immutable, content-addressed
// files, plus the alternate resolution, permission audit and inode index
// machinery built around it.
//
// The store relies on primitive filesystem operations only (link, rename,
// chmod, stat). There are no locks: the atomic rename of a temporary name
// within the destination directory is the sole synchronization primitive,
// and all mutations tolerate concurrent invocations of this tool or of the
// external transfer tool on the same tree.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	units "github.com/docker/go-units"
	"github.com/oneconcern/lfslink/pkg/dlogger"
	"github.com/oneconcern/lfslink/pkg/model"
	"github.com/oneconcern/lfslink/pkg/status"
	"go.uber.org/zap"
)

const (
	// ObjectFileMode is the mode of every stored object: read-only for all
	// principals, in both private and shared regimes.
	ObjectFileMode os.FileMode = 0o444

	// DefaultTmpDirName is the subdirectory of the store root churned by the
	// external transfer tool with ephemeral files.
	DefaultTmpDirName = "tmp"

	// hashBufferSize is the read chunk used when digesting a source file.
	// Content is streamed, never loaded wholesale.
	hashBufferSize = 512 * units.KiB
)

// Store is the canonical sharded object store of a single repository.
// It exclusively owns the contents of its root directory.
type Store struct {
	root       string
	tmpDirName string
	shared     bool
	l          *zap.Logger
}

// New creates a Store rooted at the given directory. The root and shard
// directories are created lazily on first ingest.
func New(root string, opts ...Option) *Store {
	s := &Store{
		root:       filepath.Clean(root),
		tmpDirName: DefaultTmpDirName,
		l:          dlogger.MustGetLogger(dlogger.LogLevelInfo),
	}
	for _, apply := range opts {
		apply(s)
	}
	return s
}

// Root returns the store root directory.
func (s *Store) Root() string {
	return s.root
}

// TmpDir returns the temporary-files subdirectory inside the store tree.
func (s *Store) TmpDir() string {
	return filepath.Join(s.root, s.tmpDirName)
}

// Shared reports whether the store runs in the multi-user regime.
func (s *Store) Shared() bool {
	return s.shared
}

// ObjectPath returns the canonical shard path for an object id.
func (s *Store) ObjectPath(id model.ObjectID) string {
	a, b := id.Shards()
	return filepath.Join(s.root, a, b, id.String())
}

// ShardDir returns the directory holding the object for the given id.
func (s *Store) ShardDir(id model.ObjectID) string {
	a, b := id.Shards()
	return filepath.Join(s.root, a, b)
}

// Has reports whether the store holds the object at its canonical path.
func (s *Store) Has(id model.ObjectID) bool {
	info, err := os.Stat(s.ObjectPath(id))
	return err == nil && info.Mode().IsRegular()
}

// DirMode returns the expected mode of every store directory under the
// current sharing regime.
func (s *Store) DirMode() os.FileMode {
	if s.shared {
		return 0o770 | os.ModeSetgid
	}
	return 0o700
}

// Ingest stores the content of sourcePath and returns its object id and
// size. The source must be a regular file; it is made read-only and then
// hard-linked to its canonical shard path through a temporary name in the
// same directory followed by an atomic rename, so no observer ever sees a
// partially present object. Ingest is idempotent: a destination already
// sharing the source's device and inode short-circuits as a no-op.
//
// A hard link across filesystem devices fails with
// status.ErrCrossDeviceLink. This is deliberate: falling back to a copy
// would silently break the deduplication invariant.
func (s *Store) Ingest(sourcePath string) (model.ObjectID, int64, error) {
	info, err := os.Lstat(sourcePath)
	if err != nil {
		return "", 0, fmt.Errorf("ingest %q: %w", sourcePath, err)
	}
	if !info.Mode().IsRegular() {
		return "", 0, fmt.Errorf("ingest %q: %w", sourcePath, status.ErrNotRegularFile)
	}

	id, size, err := hashFile(sourcePath)
	if err != nil {
		return "", 0, fmt.Errorf("ingest %q: %w", sourcePath, err)
	}

	// read-only before linking, so the store never co-owns writable bytes.
	// Chmod to the canonical object mode is idempotent.
	if err = os.Chmod(sourcePath, ObjectFileMode); err != nil {
		return "", 0, fmt.Errorf("ingest %q: make read-only: %w", sourcePath, err)
	}

	if err = s.LinkObjectInto(id, sourcePath); err != nil {
		return "", 0, err
	}

	s.l.Debug("ingested object",
		zap.String("source", sourcePath),
		zap.Stringer("oid", id),
		zap.Int64("size", size),
	)
	return id, size, nil
}

// LinkObjectInto places an existing file at the canonical shard path for
// id via the atomic temp-name-then-rename hard link pattern. It is the
// shared primitive behind Ingest and alternate borrowing.
func (s *Store) LinkObjectInto(id model.ObjectID, srcPath string) error {
	dest := s.ObjectPath(id)

	// already the same inode: nothing to do, tolerate racing writers
	if same, err := SameFile(srcPath, dest); err == nil && same {
		return nil
	}

	if err := s.ensureShardDir(id); err != nil {
		return err
	}
	if err := AtomicLink(srcPath, dest); err != nil {
		return fmt.Errorf("store object %s: %w", id, err)
	}
	return nil
}

// EnsureReadOnly clamps a stored object to the canonical read-only mode.
func (s *Store) EnsureReadOnly(id model.ObjectID) error {
	if err := os.Chmod(s.ObjectPath(id), ObjectFileMode); err != nil {
		return fmt.Errorf("object %s: make read-only: %w", id, err)
	}
	return nil
}

// ensureShardDir creates the two shard levels for id on demand. Creation
// is check-then-create and tolerates a racing creator.
func (s *Store) ensureShardDir(id model.ObjectID) error {
	dir := s.ShardDir(id)
	if info, err := os.Stat(dir); err == nil {
		if !info.IsDir() {
			return fmt.Errorf("%s: %w", dir, status.ErrStoreLayoutCorrupt)
		}
		return nil
	}

	mode := s.DirMode()
	if err := os.MkdirAll(s.root, mode); err != nil {
		return fmt.Errorf("create store root %q: %w", s.root, err)
	}
	for _, d := range []string{s.root, filepath.Dir(dir), dir} {
		if err := os.Mkdir(d, mode); err != nil && !os.IsExist(err) {
			return fmt.Errorf("create shard dir %q: %w", d, err)
		}
		// Mkdir is subject to the umask and does not propagate setgid on
		// every filesystem. Chmod explicitly so freshly created levels
		// satisfy the permission invariants without waiting for an audit.
		if err := os.Chmod(d, mode); err != nil {
			return fmt.Errorf("chmod shard dir %q: %w", d, err)
		}
	}
	return nil
}

// hashFile computes the SHA-256 digest of a file with fixed-size reads.
func hashFile(path string) (model.ObjectID, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, hashBufferSize)
	size, err := io.CopyBuffer(h, f, buf)
	if err != nil {
		return "", 0, err
	}
	return model.ObjectID(hex.EncodeToString(h.Sum(nil))), size, nil
}
