// Package lfsext drives the large-object transfer extension. All network
// transfer and history scanning stays in the extension; this package only
// hands it ids, path filters, and retention parameters.
package lfsext

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/docker/go-units"
	"github.com/oneconcern/lfslink/pkg/dlogger"
	"github.com/oneconcern/lfslink/pkg/gitcli"
	"github.com/oneconcern/lfslink/pkg/model"
	"go.uber.org/zap"
)

// Extension runs transfer-extension subcommands in one working copy.
type Extension struct {
	runner  gitcli.Runner
	workDir string
	program string
	l       *zap.Logger
}

// ExtOption configures an Extension
type ExtOption func(*Extension)

// ExtLogger sets a logger for this extension
func ExtLogger(l *zap.Logger) ExtOption {
	return func(e *Extension) {
		if l != nil {
			e.l = l
		}
	}
}

// ExtRunner replaces the subprocess runner, typically with a test fake.
func ExtRunner(r gitcli.Runner) ExtOption {
	return func(e *Extension) {
		if r != nil {
			e.runner = r
		}
	}
}

// New creates an extension collaborator rooted at the given working copy.
func New(workDir string, opts ...ExtOption) *Extension {
	e := &Extension{
		runner:  gitcli.ExecRunner{},
		workDir: workDir,
		program: "git",
		l:       dlogger.MustGetLogger(dlogger.LogLevelInfo),
	}
	for _, apply := range opts {
		apply(e)
	}
	return e
}

func (e *Extension) run(ctx context.Context, args ...string) ([]byte, error) {
	e.l.Debug("exec", zap.String("program", e.program), zap.Strings("args", args))
	return e.runner.Run(ctx, e.workDir, e.program, args...)
}

// ListObjects enumerates the tracked large objects of the working copy:
// object id, presence, path, and size for each entry. The executable bit
// is not part of the listing; callers overlay it from the index or the
// working tree.
func (e *Extension) ListObjects(ctx context.Context) ([]model.TrackedEntry, error) {
	out, err := e.run(ctx, "lfs", "ls-files", "--long", "--size")
	if err != nil {
		return nil, err
	}

	var entries []model.TrackedEntry
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		entry, err := parseListing(line)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// parseListing decodes one listing line:
//
//	<64-hex-id> <marker> <path> (<human size>)
//
// where the marker is "*" for materialized content and "-" for a
// placeholder. The path may contain spaces; the size annotation is the
// last parenthesized group.
func parseListing(line string) (model.TrackedEntry, error) {
	fields := strings.SplitN(line, " ", 3)
	if len(fields) != 3 {
		return model.TrackedEntry{}, fmt.Errorf("listing: malformed line %q", line)
	}

	id, err := model.ParseObjectID(fields[0])
	if err != nil {
		return model.TrackedEntry{}, fmt.Errorf("listing: %q: %w", line, err)
	}

	var presence model.Presence
	switch fields[1] {
	case "*":
		presence = model.PresenceContent
	case "-":
		presence = model.PresencePlaceholder
	default:
		return model.TrackedEntry{}, fmt.Errorf("listing: unknown marker %q in %q", fields[1], line)
	}

	rest := fields[2]
	size := int64(0)
	if open := strings.LastIndex(rest, " ("); open >= 0 && strings.HasSuffix(rest, ")") {
		size, err = units.FromHumanSize(rest[open+2 : len(rest)-1])
		if err != nil {
			return model.TrackedEntry{}, fmt.Errorf("listing: bad size in %q: %w", line, err)
		}
		rest = rest[:open]
	}

	return model.TrackedEntry{
		Path:     rest,
		Oid:      id,
		Size:     size,
		Presence: presence,
	}, nil
}

// Fetch downloads objects for the given paths into the local store, or
// every reachable object when no paths are given.
func (e *Extension) Fetch(ctx context.Context, paths []string) error {
	args := []string{"lfs", "fetch"}
	if len(paths) > 0 {
		args = append(args, "--include", strings.Join(paths, ","))
	}
	_, err := e.run(ctx, args...)
	return err
}

// Push uploads the given objects to a remote by id.
func (e *Extension) Push(ctx context.Context, remote string, ids []model.ObjectID) error {
	args := []string{"lfs", "push", "--object-id", remote}
	for _, id := range ids {
		args = append(args, id.String())
	}
	_, err := e.run(ctx, args...)
	return err
}

// Prune deletes local objects outside the retention window. The boundary
// remote, when given, must hold a copy of anything deleted.
func (e *Extension) Prune(ctx context.Context, boundaryRemote string, retentionDays int) error {
	days := strconv.Itoa(retentionDays)
	args := []string{
		"-c", "lfs.fetchrecentrefsdays=" + days,
		"-c", "lfs.fetchrecentcommitsdays=" + days,
		"-c", "lfs.pruneoffsetdays=0",
	}
	if boundaryRemote != "" {
		args = append(args, "-c", "lfs.pruneremotetocheck="+boundaryRemote)
	}
	args = append(args, "lfs", "prune")
	if boundaryRemote != "" {
		args = append(args, "--verify-remote")
	}
	_, err := e.run(ctx, args...)
	return err
}
