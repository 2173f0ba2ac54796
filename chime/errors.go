package chime

import (
	"errors"
)

var (
	ErrNotMutable = errors.New("chime: schedule does not permit appends")
)
