package store

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/oneconcern/lfslink/pkg/dlogger"
	"github.com/oneconcern/lfslink/pkg/model"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// AlternatesFileName is the store-relative location of the primary
// alternates list: a newline-delimited file naming other object stores.
const AlternatesFileName = "info/alternates"

// AlternateRoot is a validated secondary store root: it exists, is a
// directory, and lives on the same filesystem device as the primary store.
// It is a read-only, non-owned view into another repository's store.
type AlternateRoot struct {
	Path string
	Dev  uint64
	_    struct{}
}

// Resolver discovers alternate store roots and borrows objects from them
// into the primary store by hard link.
type Resolver struct {
	store          *Store
	alternatesFile string
	weak           []string
	l              *zap.Logger

	euid int

	roots      []AlternateRoot
	discovered bool
}

// ResolverOption configures a Resolver
type ResolverOption func(*Resolver)

// ResolverLogger sets a logger for this resolver
func ResolverLogger(l *zap.Logger) ResolverOption {
	return func(r *Resolver) {
		if l != nil {
			r.l = l
		}
	}
}

// AlternatesFile overrides the location of the primary alternates list.
func AlternatesFile(path string) ResolverOption {
	return func(r *Resolver) {
		if path != "" {
			r.alternatesFile = path
		}
	}
}

// WeakAlternates appends secondary candidates, typically sourced from the
// repository configuration. They rank after the primary list.
func WeakAlternates(paths []string) ResolverOption {
	return func(r *Resolver) {
		r.weak = append(r.weak, paths...)
	}
}

// NewResolver creates a Resolver borrowing into the given primary store.
func NewResolver(s *Store, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		store:          s,
		alternatesFile: filepath.Join(s.Root(), filepath.FromSlash(AlternatesFileName)),
		l:              dlogger.MustGetLogger(dlogger.LogLevelInfo),
		euid:           os.Geteuid(),
	}
	for _, apply := range opts {
		apply(r)
	}
	return r
}

// Discover returns the ordered list of eligible alternate roots: entries
// from the primary alternates list first, then the weak alternates, each
// normalized to a store root and filtered. Candidates that do not exist,
// are not directories, or sit on a different filesystem device than the
// primary store are dropped (hard links cannot cross devices). Order is
// preserved; first-listed candidates are preferred.
func (r *Resolver) Discover() ([]AlternateRoot, error) {
	candidates, err := r.readAlternatesFile()
	if err != nil {
		return nil, err
	}
	candidates = append(candidates, r.weak...)

	primaryDev, err := DeviceOf(r.store.Root())
	if err != nil {
		// store root not created yet: resolve against its parent directory
		primaryDev, err = DeviceOf(filepath.Dir(r.store.Root()))
		if err != nil {
			return nil, err
		}
	}

	roots := make([]AlternateRoot, 0, len(candidates))
	seen := map[string]bool{r.store.Root(): true}
	for _, c := range candidates {
		root, ok := r.normalize(c)
		if !ok {
			r.l.Debug("alternate candidate dropped: no store root", zap.String("candidate", c))
			continue
		}
		if seen[root] {
			continue
		}
		dev, err := DeviceOf(root)
		if err != nil {
			r.l.Debug("alternate candidate dropped", zap.String("root", root), zap.Error(err))
			continue
		}
		if dev != primaryDev {
			r.l.Debug("alternate candidate dropped: different device",
				zap.String("root", root),
				zap.Uint64("device", dev),
				zap.Uint64("primary_device", primaryDev),
			)
			continue
		}
		seen[root] = true
		roots = append(roots, AlternateRoot{Path: root, Dev: dev})
	}

	r.roots = roots
	r.discovered = true
	return roots, nil
}

// Borrow probes each alternate root in order for the sharded object path
// and hard-links the first safe candidate into the primary store. It
// returns false only after all candidates are exhausted. Per-candidate
// failures, including a source vanishing mid-operation, are benign races:
// the next candidate is tried.
func (r *Resolver) Borrow(id model.ObjectID) (bool, error) {
	roots, err := r.rootsOnce()
	if err != nil {
		return false, err
	}

	a, b := id.Shards()
	for _, root := range roots {
		src := filepath.Join(root.Path, a, b, id.String())

		var st unix.Stat_t
		if err := unix.Stat(src, &st); err != nil {
			continue
		}
		if !r.eligible(src, &st) {
			r.l.Debug("alternate object not safe to borrow", zap.String("path", src))
			continue
		}
		if err := r.store.LinkObjectInto(id, src); err != nil {
			// tolerated: the source may have vanished or the link raced;
			// move on to the next candidate
			r.l.Debug("borrow attempt failed", zap.String("path", src), zap.Error(err))
			continue
		}
		r.l.Debug("borrowed object from alternate",
			zap.Stringer("oid", id),
			zap.String("alternate", root.Path),
		)
		return true, nil
	}
	return false, nil
}

// eligible applies the ownership/permission gate: borrow only what the
// current principal owns, or what nobody else can write and we can read.
func (r *Resolver) eligible(path string, st *unix.Stat_t) bool {
	if st.Mode&unix.S_IFMT != unix.S_IFREG {
		return false
	}
	if int(st.Uid) == r.euid {
		return true
	}
	if st.Mode&0o022 != 0 {
		// writable by group or other and not ours: not verifiably safe
		return false
	}
	return unix.Access(path, unix.R_OK) == nil
}

func (r *Resolver) rootsOnce() ([]AlternateRoot, error) {
	if r.discovered {
		return r.roots, nil
	}
	return r.Discover()
}

func (r *Resolver) readAlternatesFile() ([]string, error) {
	f, err := os.Open(r.alternatesFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, sc.Err()
}

// normalize resolves a candidate to its object-store root. Accepted
// spellings: a store root itself (<x>/lfs/objects), a git object database
// (<x>/.git/objects, as listed in git alternates files), a git directory,
// or a working-copy root. Relative candidates resolve against the
// directory holding the alternates list.
func (r *Resolver) normalize(c string) (string, bool) {
	if !filepath.IsAbs(c) {
		c = filepath.Join(filepath.Dir(r.alternatesFile), c)
	}
	c = filepath.Clean(c)

	var probes []string
	base := filepath.Base(c)
	parent := filepath.Dir(c)
	switch {
	case base == "objects" && filepath.Base(parent) == "lfs":
		probes = []string{c}
	case base == "objects":
		// a git object database: the large-object store sits beside it
		probes = []string{filepath.Join(parent, "lfs", "objects")}
	default:
		probes = []string{
			filepath.Join(c, "lfs", "objects"),
			filepath.Join(c, ".git", "lfs", "objects"),
		}
	}

	for _, p := range probes {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			return p, true
		}
	}
	return "", false
}
