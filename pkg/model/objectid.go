package model

import (
	"fmt"
)

const (
	// ObjectIDLen is the length of the lowercase hex representation of a
	// SHA-256 digest. The hash is fixed by the git-lfs pointer format the
	// store interoperates with.
	ObjectIDLen = 64

	// shardLen is the number of hex characters consumed by each of the two
	// fan-out directory levels: objects live at <root>/ab/cd/abcd....
	shardLen = 2
)

// ObjectID identifies the content of a stored object: the lowercase hex
// SHA-256 digest of its bytes. Immutable once assigned.
type ObjectID string

// BadObjectID is the error returned when parsing a malformed object id.
type BadObjectID struct {
	ID string
}

func (b *BadObjectID) Error() string {
	return fmt.Sprintf("%q is not a %d-character lowercase hex object id", b.ID, ObjectIDLen)
}

// ParseObjectID validates a candidate object id string.
func ParseObjectID(s string) (ObjectID, error) {
	if !isHexName(s) {
		return "", &BadObjectID{ID: s}
	}
	return ObjectID(s), nil
}

// MustObjectID parses an object id and panics on malformed input.
// Reserved for tests and compile-time constants.
func MustObjectID(s string) ObjectID {
	id, err := ParseObjectID(s)
	if err != nil {
		panic(err.Error())
	}
	return id
}

func (id ObjectID) String() string {
	return string(id)
}

// Shards returns the two fan-out directory components for this id.
func (id ObjectID) Shards() (string, string) {
	return string(id[:shardLen]), string(id[shardLen : 2*shardLen])
}

// IsObjectIDName reports whether a file name looks like an object id.
// Used by store scans to recognize object files among shard directories
// and foreign droppings.
func IsObjectIDName(name string) bool {
	return isHexName(name)
}

func isHexName(s string) bool {
	if len(s) != ObjectIDLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
