package api

import (
	"errors"
	"fmt"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest     = errors.New("bad request")
	ErrUnknownJobType = errors.New("unknown job type")
)

// WrapKind tags err with a sentinel kind and the failing operation.
func WrapKind(op string, kind, err error) error {
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

// NewKind reports a sentinel kind for op.
func NewKind(op string, kind error) error {
	return fmt.Errorf("%s: %w", op, kind)
}
