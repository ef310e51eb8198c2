package repository

import (
	"errors"

	"github.com/okian/trendetl/internal/domain/etlerr"
)

// Sentinel kinds for store errors. ErrNotFound also matches
// etlerr.ErrNotFound.
var (
	ErrNotFound      = etlerr.NotFound("repository", "record")
	ErrAlreadyExists = errors.New("record already exists")
	ErrJobSealed     = errors.New("job is not running")
	ErrUnknownField  = errors.New("unknown query field")
	ErrInvalidEntity = errors.New("invalid entity")
)
