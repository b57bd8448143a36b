package model

// Presence describes whether a tracked path currently carries real
// content or only a pointer placeholder.
type Presence string

const (
	// PresenceContent marks an entry whose object bytes are materialized
	PresenceContent Presence = "content"

	// PresencePlaceholder marks an entry standing in for absent bytes
	PresencePlaceholder Presence = "placeholder"
)

// TrackedEntry is a working-copy path associated with a stored object.
//
// The executable flag is derived from the tracked file mode, not from
// store state: store objects are always read-only and never executable.
type TrackedEntry struct {
	Path       string   `json:"path" yaml:"path"`
	Oid        ObjectID `json:"oid" yaml:"oid"`
	Size       int64    `json:"size" yaml:"size"`
	Presence   Presence `json:"presence" yaml:"presence"`
	Executable bool     `json:"executable" yaml:"executable"`
	_          struct{}
}
