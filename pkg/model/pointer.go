package model

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	units "github.com/docker/go-units"
)

const (
	// PointerVersion is the schema version marker on the first line of a
	// pointer file. The three-line format is produced and consumed by the
	// git-lfs ecosystem and is treated here as a fixed wire format.
	PointerVersion = "https://git-lfs.github.com/spec/v1"

	// MaxPointerSize bounds the size of a file still considered a pointer
	// candidate. Anything larger is real content.
	MaxPointerSize = 1 * units.KiB

	oidPrefix = "sha256:"
)

// Pointer is the parsed form of a large-object pointer record.
type Pointer struct {
	Oid  ObjectID `json:"oid" yaml:"oid"`
	Size int64    `json:"size" yaml:"size"`
	_    struct{}
}

// Marshal renders the fixed three-line wire format:
//
//	version https://git-lfs.github.com/spec/v1
//	oid sha256:<id>
//	size <n>
func (p Pointer) Marshal() []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "version %s\n", PointerVersion)
	fmt.Fprintf(&b, "oid %s%s\n", oidPrefix, p.Oid)
	fmt.Fprintf(&b, "size %d\n", p.Size)
	return b.Bytes()
}

// ParsePointer decodes the three-line pointer wire format. It is strict
// about line order and the sha256 oid scheme, and rejects oversized input
// outright so callers may feed it the head of arbitrary working files.
func ParsePointer(data []byte) (*Pointer, error) {
	if len(data) > MaxPointerSize {
		return nil, fmt.Errorf("pointer candidate exceeds %d bytes", MaxPointerSize)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 3 {
		return nil, fmt.Errorf("pointer must have exactly 3 lines, got %d", len(lines))
	}

	version := strings.TrimPrefix(lines[0], "version ")
	if version == lines[0] || version != PointerVersion {
		return nil, fmt.Errorf("unsupported pointer version line %q", lines[0])
	}

	rawOid := strings.TrimPrefix(lines[1], "oid ")
	if rawOid == lines[1] || !strings.HasPrefix(rawOid, oidPrefix) {
		return nil, fmt.Errorf("invalid pointer oid line %q", lines[1])
	}
	oid, err := ParseObjectID(strings.TrimPrefix(rawOid, oidPrefix))
	if err != nil {
		return nil, err
	}

	rawSize := strings.TrimPrefix(lines[2], "size ")
	if rawSize == lines[2] {
		return nil, fmt.Errorf("invalid pointer size line %q", lines[2])
	}
	size, err := strconv.ParseInt(rawSize, 10, 64)
	if err != nil || size < 0 {
		return nil, fmt.Errorf("invalid pointer size %q", rawSize)
	}

	return &Pointer{Oid: oid, Size: size}, nil
}
