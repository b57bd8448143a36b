package gitcli

import "context"

// IndexUpdater keeps the index consistent after working files change
// identity without changing content.
type IndexUpdater interface {
	MarkUnmodified(ctx context.Context, paths []string) error
}

// NewIndexUpdater resolves the updating strategy once per invocation:
// the assume-unchanged bit when the index supports it, a re-add of the
// affected paths otherwise.
func NewIndexUpdater(ctx context.Context, g *Git) IndexUpdater {
	if g.SupportsAssumeUnchanged(ctx) {
		return assumeUnchangedUpdater{g: g}
	}
	return reAddUpdater{g: g}
}

type assumeUnchangedUpdater struct {
	g *Git
}

func (u assumeUnchangedUpdater) MarkUnmodified(ctx context.Context, paths []string) error {
	return u.g.UpdateIndexAssumeUnchanged(ctx, paths)
}

type reAddUpdater struct {
	g *Git
}

func (u reAddUpdater) MarkUnmodified(ctx context.Context, paths []string) error {
	return u.g.Add(ctx, paths)
}
