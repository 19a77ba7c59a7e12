package horses

import "errors"

var (
	ErrHorseExists = errors.New("horse already exists")
	ErrInvalidName = errors.New("invalid horse name")
)
