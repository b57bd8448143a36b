package gitcli

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/oneconcern/lfslink/pkg/dlogger"
	"go.uber.org/zap"
)

// maxPathsPerCall bounds the paths handed to a single subprocess so the
// argument list stays clear of the platform limit.
const maxPathsPerCall = 512

// Git drives the version-control tool in one working copy.
type Git struct {
	runner  Runner
	workDir string
	program string
	l       *zap.Logger

	assumeUnchanged *bool
}

// GitOption configures a Git
type GitOption func(*Git)

// GitLogger sets a logger for this collaborator
func GitLogger(l *zap.Logger) GitOption {
	return func(g *Git) {
		if l != nil {
			g.l = l
		}
	}
}

// GitRunner replaces the subprocess runner, typically with a test fake.
func GitRunner(r Runner) GitOption {
	return func(g *Git) {
		if r != nil {
			g.runner = r
		}
	}
}

// NewGit creates a collaborator rooted at the given working copy.
func NewGit(workDir string, opts ...GitOption) *Git {
	g := &Git{
		runner:  ExecRunner{},
		workDir: workDir,
		program: "git",
		l:       dlogger.MustGetLogger(dlogger.LogLevelInfo),
	}
	for _, apply := range opts {
		apply(g)
	}
	return g
}

// WorkDir returns the working copy root this collaborator operates in.
func (g *Git) WorkDir() string {
	return g.workDir
}

func (g *Git) run(ctx context.Context, args ...string) ([]byte, error) {
	g.l.Debug("exec", zap.String("program", g.program), zap.Strings("args", args))
	return g.runner.Run(ctx, g.workDir, g.program, args...)
}

// GitDir resolves the absolute repository metadata directory.
func (g *Git) GitDir(ctx context.Context) (string, error) {
	out, err := g.run(ctx, "rev-parse", "--absolute-git-dir")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// TopLevel resolves the absolute working copy root.
func (g *Git) TopLevel(ctx context.Context) (string, error) {
	out, err := g.run(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// ConfigGet returns a single-valued configuration entry. An unset key is
// not an error: the second return reports presence.
func (g *Git) ConfigGet(ctx context.Context, key string) (string, bool, error) {
	out, err := g.run(ctx, "config", "--get", key)
	if err != nil {
		if code, ok := exitCode(err); ok && code == 1 {
			return "", false, nil
		}
		return "", false, err
	}
	return strings.TrimSpace(string(out)), true, nil
}

// ConfigGetAll returns every value of a multi-valued configuration entry,
// in definition order. An unset key yields an empty list.
func (g *Git) ConfigGetAll(ctx context.Context, key string) ([]string, error) {
	out, err := g.run(ctx, "config", "--get-all", key)
	if err != nil {
		if code, ok := exitCode(err); ok && code == 1 {
			return nil, nil
		}
		return nil, err
	}
	var values []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			values = append(values, line)
		}
	}
	return values, nil
}

// LsFiles lists tracked paths matching the pathspecs, NUL-delimited so
// unusual file names survive.
func (g *Git) LsFiles(ctx context.Context, pathspecs ...string) ([]string, error) {
	args := append([]string{"ls-files", "-z", "--"}, pathspecs...)
	out, err := g.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	return splitNUL(out), nil
}

// CheckAttr resolves one attribute for a set of paths, returning
// path -> attribute value. Paths with the attribute unspecified map to
// "unspecified", matching the tool's own convention.
func (g *Git) CheckAttr(ctx context.Context, attr string, paths []string) (map[string]string, error) {
	values := make(map[string]string, len(paths))
	for _, chunk := range chunkPaths(paths) {
		args := append([]string{"check-attr", "-z", attr, "--"}, chunk...)
		out, err := g.run(ctx, args...)
		if err != nil {
			return nil, err
		}
		// -z output is a flat sequence of path, attribute, value records
		fields := splitNUL(out)
		if len(fields)%3 != 0 {
			return nil, fmt.Errorf("check-attr: malformed output (%d fields)", len(fields))
		}
		for i := 0; i < len(fields); i += 3 {
			values[fields[i]] = fields[i+2]
		}
	}
	return values, nil
}

// SupportsAssumeUnchanged probes once whether the index supports the
// assume-unchanged bit. The probe is an empty invocation: support shows
// as a clean exit, absence as a usage error.
func (g *Git) SupportsAssumeUnchanged(ctx context.Context) bool {
	if g.assumeUnchanged != nil {
		return *g.assumeUnchanged
	}
	_, err := g.run(ctx, "update-index", "--assume-unchanged", "--")
	supported := err == nil
	g.assumeUnchanged = &supported
	return supported
}

// UpdateIndexAssumeUnchanged marks paths as unmodified in the index.
func (g *Git) UpdateIndexAssumeUnchanged(ctx context.Context, paths []string) error {
	for _, chunk := range chunkPaths(paths) {
		args := append([]string{"update-index", "--assume-unchanged", "--"}, chunk...)
		if _, err := g.run(ctx, args...); err != nil {
			return err
		}
	}
	return nil
}

// Add re-stages paths, refreshing their index entries.
func (g *Git) Add(ctx context.Context, paths []string) error {
	for _, chunk := range chunkPaths(paths) {
		args := append([]string{"add", "--"}, chunk...)
		if _, err := g.run(ctx, args...); err != nil {
			return err
		}
	}
	return nil
}

// CheckoutPaths restores paths from the index. With smudge enabled the
// content filters run and full content lands in the working copy; with
// smudge disabled the raw pointer records land instead.
func (g *Git) CheckoutPaths(ctx context.Context, smudge bool, paths []string) error {
	var prefix []string
	if !smudge {
		prefix = []string{
			"-c", "filter.lfs.smudge=",
			"-c", "filter.lfs.process=",
			"-c", "filter.lfs.required=false",
		}
	}
	for _, chunk := range chunkPaths(paths) {
		args := append(append([]string{}, prefix...), "checkout", "--")
		args = append(args, chunk...)
		if _, err := g.run(ctx, args...); err != nil {
			return err
		}
	}
	return nil
}

// CheckoutContent satisfies the link engine's checkout collaborator.
func (g *Git) CheckoutContent(ctx context.Context, paths []string) error {
	return g.CheckoutPaths(ctx, true, paths)
}

// CheckoutPointer satisfies the link engine's checkout collaborator.
func (g *Git) CheckoutPointer(ctx context.Context, paths []string) error {
	return g.CheckoutPaths(ctx, false, paths)
}

func chunkPaths(paths []string) [][]string {
	var chunks [][]string
	for len(paths) > maxPathsPerCall {
		chunks = append(chunks, paths[:maxPathsPerCall])
		paths = paths[maxPathsPerCall:]
	}
	if len(paths) > 0 {
		chunks = append(chunks, paths)
	}
	return chunks
}

func splitNUL(out []byte) []string {
	var fields []string
	for _, f := range bytes.Split(out, []byte{0}) {
		if len(f) > 0 {
			fields = append(fields, string(f))
		}
	}
	return fields
}
