package linker

import (
	"go.uber.org/zap"
)

// Option configures an Engine
type Option func(*Engine)

// Logger sets a logger for this engine
func Logger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.l = l
		}
	}
}

// IgnoreMissing makes missing objects non-fatal: entries are skipped and
// reported instead of aborting the invocation.
func IgnoreMissing(ignore bool) Option {
	return func(e *Engine) {
		e.ignoreMissing = ignore
	}
}

// WithCheckout sets the version-control collaborator performing full and
// placeholder checkouts.
func WithCheckout(c Checkout) Option {
	return func(e *Engine) {
		e.checkout = c
	}
}

// WithIndexUpdater sets the collaborator notified of relinked paths.
func WithIndexUpdater(u IndexUpdater) Option {
	return func(e *Engine) {
		e.updater = u
	}
}

// PresenceCacheSize sets the size of the local-presence cache.
func PresenceCacheSize(size int) Option {
	return func(e *Engine) {
		if size > 0 {
			e.presenceSize = size
		}
	}
}
