// Package status exports the errors produced by the lfslink engine packages.
package status

import (
	"github.com/oneconcern/lfslink/pkg/errors"
)

var (
	// ErrNotRegularFile indicates an ingest source that is not a plain file
	// (directory, symlink, device...)
	ErrNotRegularFile = errors.New("source is not a regular file")

	// ErrPermissionInvariant indicates that the store tree does not honor the
	// permission invariants of the selected sharing mode
	ErrPermissionInvariant = errors.New("store permissions violate the repository sharing mode")

	// ErrMissingObject indicates an object that is neither in the local store
	// nor available from any alternate
	ErrMissingObject = errors.New("object not found in store or alternates")

	// ErrCrossDeviceLink indicates a hard link attempt across filesystem
	// devices. This is never downgraded to a copy: copying would silently
	// break deduplication.
	ErrCrossDeviceLink = errors.New("hard link would cross filesystem devices")

	// ErrAlternateUnavailable indicates that every candidate alternate was
	// probed and none could provide the object
	ErrAlternateUnavailable = errors.New("no alternate store could provide the object")

	// ErrStoreLayoutCorrupt indicates an entry in the store tree that
	// contradicts the sharded layout (e.g. a file where a shard directory
	// is expected)
	ErrStoreLayoutCorrupt = errors.New("object store layout is corrupt")
)
