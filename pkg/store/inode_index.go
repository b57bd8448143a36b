package store

import (
	"os"
	"path/filepath"

	"github.com/oneconcern/lfslink/pkg/dlogger"
	"github.com/oneconcern/lfslink/pkg/model"
	"go.uber.org/zap"
)

// InodeKey identifies a physical file. Keying by the (device, inode) pair
// matters: an inode number alone aliases unrelated files as soon as a
// repository spans more than one filesystem device.
type InodeKey struct {
	Dev uint64
	Ino uint64
}

// InodeRecord is the object identity a physical file resolves to.
type InodeRecord struct {
	Oid  model.ObjectID
	Size int64
	_    struct{}
}

// InodeIndex is a reverse map from file identity to object identity,
// built by scanning the primary store root and all alternate roots. It
// lets ingestion flows recognize an already-stored file without rehashing
// its content.
type InodeIndex struct {
	roots   []string
	l       *zap.Logger
	records map[InodeKey]InodeRecord
}

// IndexOption configures an InodeIndex
type IndexOption func(*InodeIndex)

// IndexLogger sets a logger for this index
func IndexLogger(l *zap.Logger) IndexOption {
	return func(ix *InodeIndex) {
		if l != nil {
			ix.l = l
		}
	}
}

// NewInodeIndex creates an index over the given store roots, primary
// first. Call Build before Lookup.
func NewInodeIndex(roots []string, opts ...IndexOption) *InodeIndex {
	ix := &InodeIndex{
		roots:   roots,
		l:       dlogger.MustGetLogger(dlogger.LogLevelInfo),
		records: make(map[InodeKey]InodeRecord),
	}
	for _, apply := range opts {
		apply(ix)
	}
	return ix
}

// Build walks every root in a single pass and records each file whose
// name matches the object-id pattern. Per-item errors are suppressed to
// maximize progress: an unreadable or vanished entry just stays out of
// the index, and a colliding key from another root necessarily carries
// the same content-addressed identity, so the last write is as good as
// any.
func (ix *InodeIndex) Build() error {
	for _, root := range ix.roots {
		err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				if path == root {
					// missing root: an alternate may have vanished, benign
					return filepath.SkipDir
				}
				return nil
			}
			if !info.Mode().IsRegular() || !model.IsObjectIDName(info.Name()) {
				return nil
			}
			dev, ino, err := FileID(path)
			if err != nil {
				return nil
			}
			ix.records[InodeKey{Dev: dev, Ino: ino}] = InodeRecord{
				Oid:  model.ObjectID(info.Name()),
				Size: info.Size(),
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	ix.l.Debug("inode index built",
		zap.Int("roots", len(ix.roots)),
		zap.Int("records", len(ix.records)),
	)
	return nil
}

// Lookup resolves a path to a stored object identity by its (device,
// inode) pair, without reading any file bytes. The boolean is false on a
// miss.
func (ix *InodeIndex) Lookup(path string) (InodeRecord, bool) {
	dev, ino, err := FileID(path)
	if err != nil {
		return InodeRecord{}, false
	}
	rec, ok := ix.records[InodeKey{Dev: dev, Ino: ino}]
	return rec, ok
}

// Len returns the number of indexed physical objects.
func (ix *InodeIndex) Len() int {
	return len(ix.records)
}
