package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/oneconcern/lfslink/pkg/errors"
	"github.com/oneconcern/lfslink/pkg/status"
	"github.com/segmentio/ksuid"
	"golang.org/x/sys/unix"
)

// tmpLinkPrefix names in-flight link targets. Names carry a fresh ksuid
// per call, so a stale temp from an interrupted run is never collided
// with: it stays orphaned and unreferenced until an external sweep, and
// no link or lookup ever resolves it.
const tmpLinkPrefix = ".tmp-link-"

// FileID returns the (device, inode) identity of the file at path.
func FileID(path string) (dev uint64, ino uint64, err error) {
	var st unix.Stat_t
	if err = unix.Stat(path, &st); err != nil {
		return 0, 0, &os.PathError{Op: "stat", Path: path, Err: err}
	}
	//nolint:unconvert // Dev is int32 on some platforms
	return uint64(st.Dev), uint64(st.Ino), nil
}

// SameFile reports whether two paths resolve to the same device and inode.
// A missing path is not an error: it simply is not the same file.
func SameFile(a, b string) (bool, error) {
	adev, aino, err := FileID(a)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	bdev, bino, err := FileID(b)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return adev == bdev && aino == bino, nil
}

// DeviceOf returns the filesystem device hosting path.
func DeviceOf(path string) (uint64, error) {
	dev, _, err := FileID(path)
	return dev, err
}

// AtomicLink hard-links src to dst without ever exposing a partial
// destination: the link is created under a unique temporary name in dst's
// directory, then renamed over dst. Rename within one directory is atomic,
// so a concurrent observer sees either the old entry or the new link,
// never an in-between state. On any failure the temporary name is removed.
//
// An EXDEV failure maps to status.ErrCrossDeviceLink and must propagate:
// the caller must not substitute a copy.
func AtomicLink(src, dst string) error {
	// the ksuid makes the name unique per call: stale temps left by an
	// interrupted run cannot collide with it
	tmp := filepath.Join(filepath.Dir(dst), tmpLinkPrefix+ksuid.New().String())

	if err := os.Link(src, tmp); err != nil {
		if errors.Is(err, unix.EXDEV) {
			return fmt.Errorf("link %q -> %q: %w", src, dst, status.ErrCrossDeviceLink)
		}
		return fmt.Errorf("link %q -> %q: %w", src, dst, err)
	}

	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %q -> %q: %w", tmp, dst, err)
	}
	return nil
}
