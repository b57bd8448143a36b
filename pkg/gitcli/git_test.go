package gitcli

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/oneconcern/lfslink/pkg/dlogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	dir  string
	name string
	args []string
}

// fakeRunner scripts subprocess behavior keyed by the subcommand verb.
type fakeRunner struct {
	calls   []call
	outputs map[string][]byte
	errs    map[string]error
}

func (f *fakeRunner) Run(_ context.Context, dir string, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, call{dir: dir, name: name, args: args})
	verb := ""
	for _, a := range args {
		if !strings.HasPrefix(a, "-") {
			verb = a
			break
		}
	}
	if err, ok := f.errs[verb]; ok && err != nil {
		return nil, fmt.Errorf("%s %s: %w", name, verb, err)
	}
	return f.outputs[verb], nil
}

func testGit(t testing.TB, f *fakeRunner) *Git {
	t.Helper()
	quiet := dlogger.MustGetLogger(dlogger.LogLevelNone)
	return NewGit("/repo", GitRunner(f), GitLogger(quiet))
}

func TestGitDir(t *testing.T) {
	f := &fakeRunner{outputs: map[string][]byte{
		"rev-parse": []byte("/repo/.git\n"),
	}}
	g := testGit(t, f)

	dir, err := g.GitDir(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/repo/.git", dir)
	require.Len(t, f.calls, 1)
	assert.Equal(t, "/repo", f.calls[0].dir)
	assert.Equal(t, []string{"rev-parse", "--absolute-git-dir"}, f.calls[0].args)
}

func TestConfigGet(t *testing.T) {
	f := &fakeRunner{outputs: map[string][]byte{
		"config": []byte("objects/info/alternates\n"),
	}}
	g := testGit(t, f)

	v, ok, err := g.ConfigGet(context.Background(), "lfslink.alternates")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "objects/info/alternates", v)
}

func TestConfigGetUnset(t *testing.T) {
	f := &fakeRunner{errs: map[string]error{
		"config": &ExitError{Code: 1},
	}}
	g := testGit(t, f)

	// exit status 1 means the key is simply not set
	v, ok, err := g.ConfigGet(context.Background(), "lfslink.alternates")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, v)

	values, err := g.ConfigGetAll(context.Background(), "lfslink.alternates")
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestConfigGetFailure(t *testing.T) {
	f := &fakeRunner{errs: map[string]error{
		"config": &ExitError{Code: 128, Stderr: "fatal: not in a git directory"},
	}}
	g := testGit(t, f)

	_, _, err := g.ConfigGet(context.Background(), "lfslink.alternates")
	require.Error(t, err)

	code, ok := exitCode(err)
	require.True(t, ok)
	assert.Equal(t, 128, code)
}

func TestLsFiles(t *testing.T) {
	f := &fakeRunner{outputs: map[string][]byte{
		"ls-files": []byte("assets/a.bin\x00assets/name with spaces.bin\x00"),
	}}
	g := testGit(t, f)

	paths, err := g.LsFiles(context.Background(), "assets")
	require.NoError(t, err)
	assert.Equal(t, []string{"assets/a.bin", "assets/name with spaces.bin"}, paths)
	assert.Equal(t, []string{"ls-files", "-z", "--", "assets"}, f.calls[0].args)
}

func TestCheckAttr(t *testing.T) {
	f := &fakeRunner{outputs: map[string][]byte{
		"check-attr": []byte("a.bin\x00filter\x00lfs\x00b.txt\x00filter\x00unspecified\x00"),
	}}
	g := testGit(t, f)

	values, err := g.CheckAttr(context.Background(), "filter", []string{"a.bin", "b.txt"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"a.bin": "lfs",
		"b.txt": "unspecified",
	}, values)
}

func TestCheckAttrMalformed(t *testing.T) {
	f := &fakeRunner{outputs: map[string][]byte{
		"check-attr": []byte("a.bin\x00filter\x00"),
	}}
	g := testGit(t, f)

	_, err := g.CheckAttr(context.Background(), "filter", []string{"a.bin"})
	require.Error(t, err)
}

func TestCheckoutPaths(t *testing.T) {
	f := &fakeRunner{}
	g := testGit(t, f)
	ctx := context.Background()

	require.NoError(t, g.CheckoutPaths(ctx, true, []string{"a.bin"}))
	require.Len(t, f.calls, 1)
	assert.Equal(t, []string{"checkout", "--", "a.bin"}, f.calls[0].args)

	require.NoError(t, g.CheckoutPaths(ctx, false, []string{"a.bin"}))
	require.Len(t, f.calls, 2)
	assert.Equal(t, []string{
		"-c", "filter.lfs.smudge=",
		"-c", "filter.lfs.process=",
		"-c", "filter.lfs.required=false",
		"checkout", "--", "a.bin",
	}, f.calls[1].args)
}

func TestIndexUpdaterStrategies(t *testing.T) {
	ctx := context.Background()

	f := &fakeRunner{}
	g := testGit(t, f)
	up := NewIndexUpdater(ctx, g)
	require.IsType(t, assumeUnchangedUpdater{}, up)
	require.NoError(t, up.MarkUnmodified(ctx, []string{"a.bin", "b.bin"}))
	last := f.calls[len(f.calls)-1]
	assert.Equal(t, []string{"update-index", "--assume-unchanged", "--", "a.bin", "b.bin"}, last.args)

	// capability probe failure falls back to re-adding paths
	f = &fakeRunner{errs: map[string]error{
		"update-index": &ExitError{Code: 129, Stderr: "usage: ..."},
	}}
	g = testGit(t, f)
	up = NewIndexUpdater(ctx, g)
	require.IsType(t, reAddUpdater{}, up)
	require.NoError(t, up.MarkUnmodified(ctx, []string{"a.bin"}))
	last = f.calls[len(f.calls)-1]
	assert.Equal(t, []string{"add", "--", "a.bin"}, last.args)
}

func TestSupportsAssumeUnchangedCached(t *testing.T) {
	f := &fakeRunner{}
	g := testGit(t, f)
	ctx := context.Background()

	assert.True(t, g.SupportsAssumeUnchanged(ctx))
	assert.True(t, g.SupportsAssumeUnchanged(ctx))
	assert.Len(t, f.calls, 1, "the probe runs once")
}

func TestChunkPaths(t *testing.T) {
	paths := make([]string, maxPathsPerCall+3)
	for i := range paths {
		paths[i] = fmt.Sprintf("f%04d.bin", i)
	}

	chunks := chunkPaths(paths)
	require.Len(t, chunks, 2)
	assert.Len(t, chunks[0], maxPathsPerCall)
	assert.Len(t, chunks[1], 3)
	assert.Empty(t, chunkPaths(nil))
}
