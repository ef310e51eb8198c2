package source

import "errors"

// ErrUnavailable is returned when the backing corpus cannot be read.
var ErrUnavailable = errors.New("video source unavailable")

// ErrMalformed is returned when the corpus is not a JSON array.
var ErrMalformed = errors.New("video source malformed")
