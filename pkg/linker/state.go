package linker

import (
	"os"

	"github.com/oneconcern/lfslink/pkg/model"
	"github.com/oneconcern/lfslink/pkg/store"
)

// EntryState classifies how a tracked path currently relates to its
// store object.
//
// Linked is the steady, space-efficient terminal state; Copy and
// Placeholder are transient working states reached through checkout and
// left again through relinking.
type EntryState int

const (
	// StateUntracked means no file exists at the path
	StateUntracked EntryState = iota

	// StateLinked means the path shares its inode with the store object
	StateLinked

	// StateCopy means the path holds full content on an independent inode
	StateCopy

	// StatePlaceholder means the path holds a pointer record, no content
	StatePlaceholder
)

func (s EntryState) String() string {
	switch s {
	case StateUntracked:
		return "untracked"
	case StateLinked:
		return "linked"
	case StateCopy:
		return "copy"
	case StatePlaceholder:
		return "placeholder"
	default:
		return "unknown"
	}
}

// StateOf classifies the working file for an entry. Pointer recognition
// reads at most model.MaxPointerSize bytes; everything else is resolved
// from stat information alone.
func (e *Engine) StateOf(entry model.TrackedEntry) (EntryState, error) {
	info, err := os.Lstat(entry.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return StateUntracked, nil
		}
		return StateUntracked, err
	}

	same, err := store.SameFile(entry.Path, e.store.ObjectPath(entry.Oid))
	if err != nil {
		return StateUntracked, err
	}
	if same {
		return StateLinked, nil
	}

	if info.Size() <= model.MaxPointerSize {
		data, err := os.ReadFile(entry.Path)
		if err == nil {
			if _, perr := model.ParsePointer(data); perr == nil {
				return StatePlaceholder, nil
			}
		}
	}
	return StateCopy, nil
}
