package linker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/oneconcern/lfslink/internal/rand"
	"github.com/oneconcern/lfslink/pkg/dlogger"
	"github.com/oneconcern/lfslink/pkg/errors"
	"github.com/oneconcern/lfslink/pkg/model"
	"github.com/oneconcern/lfslink/pkg/status"
	"github.com/oneconcern/lfslink/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

type fakeCheckout struct {
	content      []byte
	pointer      model.Pointer
	contentCalls [][]string
	pointerCalls [][]string
}

func (f *fakeCheckout) CheckoutContent(_ context.Context, paths []string) error {
	f.contentCalls = append(f.contentCalls, paths)
	for _, p := range paths {
		if err := os.WriteFile(p, f.content, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeCheckout) CheckoutPointer(_ context.Context, paths []string) error {
	f.pointerCalls = append(f.pointerCalls, paths)
	for _, p := range paths {
		if err := os.WriteFile(p, f.pointer.Marshal(), 0o644); err != nil {
			return err
		}
	}
	return nil
}

type fakeUpdater struct {
	marked [][]string
}

func (f *fakeUpdater) MarkUnmodified(_ context.Context, paths []string) error {
	f.marked = append(f.marked, paths)
	return nil
}

type fixture struct {
	engine *Engine
	store  *store.Store
	work   string
	entry  model.TrackedEntry
	data   []byte
}

func newFixture(t testing.TB, opts ...Option) *fixture {
	t.Helper()
	quiet := dlogger.MustGetLogger(dlogger.LogLevelNone)
	s := store.New(filepath.Join(t.TempDir(), "lfs", "objects"), store.Logger(quiet))
	work := t.TempDir()

	data := rand.Bytes(2048)
	seed := filepath.Join(work, "seed.bin")
	require.NoError(t, os.WriteFile(seed, data, 0o644))
	id, size, err := s.Ingest(seed)
	require.NoError(t, err)
	require.NoError(t, os.Remove(seed))

	opts = append([]Option{Logger(quiet)}, opts...)
	e, err := New(s, nil, opts...)
	require.NoError(t, err)

	return &fixture{
		engine: e,
		store:  s,
		work:   work,
		data:   data,
		entry: model.TrackedEntry{
			Path:     filepath.Join(work, "asset.bin"),
			Oid:      id,
			Size:     size,
			Presence: model.PresenceContent,
		},
	}
}

func nlinkOf(t testing.TB, path string) uint64 {
	t.Helper()
	var st unix.Stat_t
	require.NoError(t, unix.Stat(path, &st))
	return uint64(st.Nlink)
}

func TestMaterializeLink(t *testing.T) {
	f := newFixture(t)
	objPath := f.store.ObjectPath(f.entry.Oid)

	require.NoError(t, f.engine.MaterializeLink(f.entry))

	same, err := store.SameFile(objPath, f.entry.Path)
	require.NoError(t, err)
	assert.True(t, same)
	assert.Equal(t, []string{f.entry.Path}, f.engine.Relinked())

	got, err := os.ReadFile(f.entry.Path)
	require.NoError(t, err)
	assert.Equal(t, f.data, got)

	info, err := os.Stat(f.entry.Path)
	require.NoError(t, err)
	assert.Equal(t, store.ObjectFileMode, info.Mode()&os.ModePerm)
}

func TestMaterializeLinkIdempotent(t *testing.T) {
	f := newFixture(t)
	objPath := f.store.ObjectPath(f.entry.Oid)

	require.NoError(t, f.engine.MaterializeLink(f.entry))
	links := nlinkOf(t, objPath)

	// second call detects the correct link and mutates nothing
	require.NoError(t, f.engine.MaterializeLink(f.entry))
	assert.Equal(t, links, nlinkOf(t, objPath))
	assert.Equal(t, []string{f.entry.Path}, f.engine.Relinked())
}

func TestMaterializeLinkExecutable(t *testing.T) {
	f := newFixture(t)
	f.entry.Executable = true
	objPath := f.store.ObjectPath(f.entry.Oid)

	require.NoError(t, f.engine.MaterializeLink(f.entry))

	// executables are never hard-linked
	same, err := store.SameFile(objPath, f.entry.Path)
	require.NoError(t, err)
	assert.False(t, same)

	info, err := os.Stat(f.entry.Path)
	require.NoError(t, err)
	assert.Equal(t, executableFileMode, info.Mode()&os.ModePerm)

	got, err := os.ReadFile(f.entry.Path)
	require.NoError(t, err)
	assert.Equal(t, f.data, got)

	// mutating the executable leaves the canonical object intact
	require.NoError(t, os.WriteFile(f.entry.Path, []byte("patched"), 0o755))
	stored, err := os.ReadFile(objPath)
	require.NoError(t, err)
	assert.Equal(t, f.data, stored)
}

func TestMaterializeLinkExecutableIdempotent(t *testing.T) {
	f := newFixture(t)
	f.entry.Executable = true

	require.NoError(t, f.engine.MaterializeLink(f.entry))
	require.Equal(t, []string{f.entry.Path}, f.engine.Relinked())
	_, ino, err := store.FileID(f.entry.Path)
	require.NoError(t, err)

	// second call recognizes the untouched copy and mutates nothing
	require.NoError(t, f.engine.MaterializeLink(f.entry))
	assert.Equal(t, []string{f.entry.Path}, f.engine.Relinked())
	_, inoAfter, err := store.FileID(f.entry.Path)
	require.NoError(t, err)
	assert.Equal(t, ino, inoAfter)

	// an edited copy is rewritten, and reported again
	require.NoError(t, os.WriteFile(f.entry.Path, []byte("patched"), 0o755))
	require.NoError(t, f.engine.MaterializeLink(f.entry))
	assert.Equal(t, []string{f.entry.Path, f.entry.Path}, f.engine.Relinked())
	got, err := os.ReadFile(f.entry.Path)
	require.NoError(t, err)
	assert.Equal(t, f.data, got)
}

func TestMaterializeLinkMissing(t *testing.T) {
	f := newFixture(t)
	sum := sha256.Sum256([]byte("nowhere"))
	f.entry.Oid = model.MustObjectID(hex.EncodeToString(sum[:]))

	err := f.engine.MaterializeLink(f.entry)
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrMissingObject))
	assert.False(t, errors.Is(err, status.ErrAlternateUnavailable), "no alternates configured")
	assert.NoFileExists(t, f.entry.Path)
}

func TestMaterializeLinkAlternatesExhausted(t *testing.T) {
	quiet := dlogger.MustGetLogger(dlogger.LogLevelNone)

	// an alternate is configured but holds nothing
	altRepo := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(altRepo, ".git", "lfs", "objects"), 0o700))

	primary := store.New(filepath.Join(t.TempDir(), "lfs", "objects"), store.Logger(quiet))
	require.NoError(t, os.MkdirAll(primary.Root(), 0o700))
	resolver := store.NewResolver(primary,
		store.ResolverLogger(quiet),
		store.WeakAlternates([]string{altRepo}),
	)
	e, err := New(primary, resolver, Logger(quiet))
	require.NoError(t, err)

	sum := sha256.Sum256([]byte("nowhere"))
	entry := model.TrackedEntry{
		Path: filepath.Join(t.TempDir(), "asset.bin"),
		Oid:  model.MustObjectID(hex.EncodeToString(sum[:])),
	}
	err = e.MaterializeLink(entry)
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrMissingObject))
	assert.True(t, errors.Is(err, status.ErrAlternateUnavailable))
}

func TestMaterializeLinkIgnoreMissing(t *testing.T) {
	f := newFixture(t, IgnoreMissing(true))
	sum := sha256.Sum256([]byte("nowhere"))
	f.entry.Oid = model.MustObjectID(hex.EncodeToString(sum[:]))

	require.NoError(t, f.engine.MaterializeLink(f.entry))
	assert.Equal(t, []string{f.entry.Path}, f.engine.Skipped())
	assert.Empty(t, f.engine.Relinked())
}

func TestMaterializeLinkBorrowsFromAlternate(t *testing.T) {
	quiet := dlogger.MustGetLogger(dlogger.LogLevelNone)

	// the object lives only in another repository's store
	altRepo := t.TempDir()
	alt := store.New(filepath.Join(altRepo, ".git", "lfs", "objects"), store.Logger(quiet))
	data := rand.Bytes(1024)
	seed := filepath.Join(altRepo, "seed.bin")
	require.NoError(t, os.WriteFile(seed, data, 0o644))
	id, size, err := alt.Ingest(seed)
	require.NoError(t, err)

	primary := store.New(filepath.Join(t.TempDir(), "lfs", "objects"), store.Logger(quiet))
	require.NoError(t, os.MkdirAll(primary.Root(), 0o700))
	resolver := store.NewResolver(primary,
		store.ResolverLogger(quiet),
		store.WeakAlternates([]string{altRepo}),
	)

	e, err := New(primary, resolver, Logger(quiet))
	require.NoError(t, err)

	work := t.TempDir()
	entry := model.TrackedEntry{
		Path: filepath.Join(work, "asset.bin"),
		Oid:  id,
		Size: size,
	}
	require.NoError(t, e.MaterializeLink(entry))
	assert.True(t, primary.Has(id))

	same, err := store.SameFile(entry.Path, alt.ObjectPath(id))
	require.NoError(t, err)
	assert.True(t, same, "primary object, alternate object and working file share one inode")
}

func TestMaterializeCopy(t *testing.T) {
	f := newFixture(t)
	co := &fakeCheckout{content: f.data}
	WithCheckout(co)(f.engine)
	objPath := f.store.ObjectPath(f.entry.Oid)

	require.NoError(t, f.engine.MaterializeLink(f.entry))
	linksBefore := nlinkOf(t, objPath)

	require.NoError(t, f.engine.MaterializeCopy(context.Background(), []model.TrackedEntry{f.entry}))
	require.Len(t, co.contentCalls, 1)

	// hard-link isolation: the copy has its own inode
	same, err := store.SameFile(objPath, f.entry.Path)
	require.NoError(t, err)
	assert.False(t, same)
	assert.Equal(t, linksBefore-1, nlinkOf(t, objPath))

	// mutating the copy must not reach the canonical object
	require.NoError(t, os.WriteFile(f.entry.Path, []byte("scribble"), 0o644))
	stored, err := os.ReadFile(objPath)
	require.NoError(t, err)
	assert.Equal(t, f.data, stored)
	sum := sha256.Sum256(stored)
	assert.Equal(t, f.entry.Oid.String(), hex.EncodeToString(sum[:]))
}

func TestMaterializePlaceholder(t *testing.T) {
	f := newFixture(t)
	co := &fakeCheckout{pointer: model.Pointer{Oid: f.entry.Oid, Size: f.entry.Size}}
	WithCheckout(co)(f.engine)

	require.NoError(t, f.engine.MaterializeLink(f.entry))
	require.NoError(t, f.engine.MaterializePlaceholder(context.Background(), []model.TrackedEntry{f.entry}))
	require.Len(t, co.pointerCalls, 1)

	state, err := f.engine.StateOf(f.entry)
	require.NoError(t, err)
	assert.Equal(t, StatePlaceholder, state)
}

func TestStateTransitions(t *testing.T) {
	f := newFixture(t)
	co := &fakeCheckout{
		content: f.data,
		pointer: model.Pointer{Oid: f.entry.Oid, Size: f.entry.Size},
	}
	WithCheckout(co)(f.engine)
	ctx := context.Background()

	state, err := f.engine.StateOf(f.entry)
	require.NoError(t, err)
	assert.Equal(t, StateUntracked, state)

	require.NoError(t, f.engine.MaterializeLink(f.entry))
	state, err = f.engine.StateOf(f.entry)
	require.NoError(t, err)
	assert.Equal(t, StateLinked, state)

	require.NoError(t, f.engine.MaterializeCopy(ctx, []model.TrackedEntry{f.entry}))
	state, err = f.engine.StateOf(f.entry)
	require.NoError(t, err)
	assert.Equal(t, StateCopy, state)

	// and back to the terminal linked state
	require.NoError(t, f.engine.MaterializeLink(f.entry))
	state, err = f.engine.StateOf(f.entry)
	require.NoError(t, err)
	assert.Equal(t, StateLinked, state)
}

func TestFlushIndexUpdates(t *testing.T) {
	f := newFixture(t)
	up := &fakeUpdater{}
	WithIndexUpdater(up)(f.engine)

	require.NoError(t, f.engine.FlushIndexUpdates(context.Background()))
	assert.Empty(t, up.marked, "nothing relinked, nothing reported")

	require.NoError(t, f.engine.MaterializeLink(f.entry))
	require.NoError(t, f.engine.FlushIndexUpdates(context.Background()))
	require.Len(t, up.marked, 1)
	assert.Equal(t, []string{f.entry.Path}, up.marked[0])
}
