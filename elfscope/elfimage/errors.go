package elfimage

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidFormat = errors.New("elf: invalid format")
	ErrOutOfRange    = errors.New("elf: index out of range")
	ErrMissingTable  = errors.New("elf: missing table")
)

// MissingTableError reports a required section type that the file lacks.
type MissingTableError struct {
	Table string
}

func (e *MissingTableError) Error() string {
	return fmt.Sprintf("elf: missing table %q", e.Table)
}

func (e *MissingTableError) Is(target error) bool {
	return target == ErrMissingTable
}
