package sqlite

import "github.com/okian/trendetl/pkg/logger"

// Option configures a Store.
type Option func(*Store)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}
