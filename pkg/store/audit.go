package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/oneconcern/lfslink/pkg/dlogger"
	"github.com/oneconcern/lfslink/pkg/status"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// permissionBits are the mode bits the audit compares: permissions plus
// the setuid/setgid/sticky markers. File type bits are irrelevant here.
const permissionBits = os.ModePerm | os.ModeSetuid | os.ModeSetgid | os.ModeSticky

// DetectShared inspects the persistent marker selecting the permission
// regime: an inherited set-group-id bit on the repository's top-level
// metadata directory.
func DetectShared(metaDir string) (bool, error) {
	info, err := os.Stat(metaDir)
	if err != nil {
		return false, fmt.Errorf("detect sharing mode: %w", err)
	}
	return info.Mode()&os.ModeSetgid != 0, nil
}

// Mismatch records one filesystem entry whose mode deviates from the
// regime's expectation, and the outcome of its repair when fix mode is on.
type Mismatch struct {
	Path     string
	Expected os.FileMode
	Actual   os.FileMode
	Fixed    bool
	Err      error
	_        struct{}
}

// Line renders the mismatch as one human-readable audit line.
func (m Mismatch) Line() string {
	switch {
	case m.Err != nil:
		return fmt.Sprintf("%s: mode %04o, want %04o (repair failed: %v)", m.Path, m.Actual, m.Expected, m.Err)
	case m.Fixed:
		return fmt.Sprintf("%s: mode %04o, want %04o (fixed)", m.Path, m.Actual, m.Expected)
	default:
		return fmt.Sprintf("%s: mode %04o, want %04o", m.Path, m.Actual, m.Expected)
	}
}

// AuditReport aggregates the outcome of one permission audit pass.
type AuditReport struct {
	Mismatches     []Mismatch
	RepairFailures int
}

// Lines returns the human-readable audit lines for all mismatches.
func (r *AuditReport) Lines() []string {
	out := make([]string, 0, len(r.Mismatches))
	for _, m := range r.Mismatches {
		out = append(out, m.Line())
	}
	return out
}

// Failed reports whether the audit outcome is a failure: any mismatch
// left unfixed, or any repair failure.
func (r *AuditReport) Failed() bool {
	if r.RepairFailures > 0 {
		return true
	}
	for _, m := range r.Mismatches {
		if !m.Fixed {
			return true
		}
	}
	return false
}

// Err maps a failed outcome to the permission invariant error, carrying
// the mismatch count in its message context.
func (r *AuditReport) Err() error {
	if !r.Failed() {
		return nil
	}
	return fmt.Errorf("%d mismatched entries: %w", len(r.Mismatches), status.ErrPermissionInvariant)
}

// Auditor verifies, and optionally repairs, the directory and file
// permission invariants of a store tree.
//
// Two regimes exist. Private: owner rwx on directories, no group/other
// bits. Shared: group rwx plus inherited set-group-id on directories, so
// files created by any group member remain group-accessible. Regular
// files are read-only for all principals in both regimes.
type Auditor struct {
	root       string
	tmpDirName string
	shared     bool
	fix        bool
	fs         afero.Fs
	l          *zap.Logger
}

// AuditOption configures an Auditor
type AuditOption func(*Auditor)

// AuditShared selects the shared (multi-user) regime expectations.
func AuditShared(shared bool) AuditOption {
	return func(a *Auditor) {
		a.shared = shared
	}
}

// AuditFix enables independent repair of each mismatch.
func AuditFix(fix bool) AuditOption {
	return func(a *Auditor) {
		a.fix = fix
	}
}

// AuditFs overrides the filesystem the audit walks (the OS filesystem by
// default).
func AuditFs(fs afero.Fs) AuditOption {
	return func(a *Auditor) {
		if fs != nil {
			a.fs = fs
		}
	}
}

// AuditTmpDirName overrides the temporary-files subdirectory name.
func AuditTmpDirName(name string) AuditOption {
	return func(a *Auditor) {
		if name != "" {
			a.tmpDirName = name
		}
	}
}

// AuditLogger sets a logger for this auditor
func AuditLogger(l *zap.Logger) AuditOption {
	return func(a *Auditor) {
		if l != nil {
			a.l = l
		}
	}
}

// NewAuditor creates an Auditor for the store tree rooted at root.
func NewAuditor(root string, opts ...AuditOption) *Auditor {
	a := &Auditor{
		root:       filepath.Clean(root),
		tmpDirName: DefaultTmpDirName,
		fs:         afero.NewOsFs(),
		l:          dlogger.MustGetLogger(dlogger.LogLevelInfo),
	}
	for _, apply := range opts {
		apply(a)
	}
	return a
}

func (a *Auditor) expectedDirMode() os.FileMode {
	if a.shared {
		return 0o770 | os.ModeSetgid
	}
	return 0o700
}

// Audit walks the entire store tree, comparing each entry's mode to the
// regime's expectation. Entries directly inside the temporary-files
// subdirectory are skipped (only the subdirectory's own mode is checked):
// the external transfer tool churns ephemeral files there with
// unpredictable, irrelevant permissions. In fix mode each mismatch is
// repaired independently; one failed repair does not abort the rest of
// the audit, but does fail the overall outcome.
func (a *Auditor) Audit() (*AuditReport, error) {
	report := &AuditReport{}
	tmpDir := filepath.Join(a.root, a.tmpDirName)

	err := afero.Walk(a.fs, a.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == a.root {
				return err
			}
			// entry vanished mid-walk: benign, keep auditing the rest
			a.l.Debug("audit skipping entry", zap.String("path", path), zap.Error(err))
			return nil
		}

		var expected os.FileMode
		switch {
		case info.IsDir():
			expected = a.expectedDirMode()
		case info.Mode().IsRegular():
			expected = ObjectFileMode
		default:
			// symlinks and other oddities are not part of the layout;
			// modes are meaningless on them
			return nil
		}

		actual := info.Mode() & permissionBits
		if actual != expected {
			m := a.repair(path, expected, actual)
			if m.Err != nil {
				report.RepairFailures++
			}
			report.Mismatches = append(report.Mismatches, m)
		}

		if info.IsDir() && path == tmpDir {
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("audit %q: %w", a.root, err)
	}

	a.l.Debug("audit complete",
		zap.Int("mismatches", len(report.Mismatches)),
		zap.Int("repair_failures", report.RepairFailures),
		zap.Bool("fix", a.fix),
	)
	return report, nil
}

func (a *Auditor) repair(path string, expected, actual os.FileMode) Mismatch {
	m := Mismatch{Path: path, Expected: expected, Actual: actual}
	if !a.fix {
		return m
	}
	if err := a.fs.Chmod(path, expected); err != nil {
		m.Err = err
		return m
	}
	m.Fixed = true
	return m
}
