package store

import (
	"go.uber.org/zap"
)

// Option configures a Store
type Option func(*Store)

// Logger sets a logger for this store
func Logger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.l = l
		}
	}
}

// SharedRepository selects the multi-user permission regime: group rwx
// plus inherited set-group-id on directories. The default regime is
// private (owner-only directories).
func SharedRepository(shared bool) Option {
	return func(s *Store) {
		s.shared = shared
	}
}

// TmpDirName overrides the name of the temporary-files subdirectory
// reserved for the external transfer tool.
func TmpDirName(name string) Option {
	return func(s *Store) {
		if name != "" {
			s.tmpDirName = name
		}
	}
}
