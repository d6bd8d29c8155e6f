package report

import (
	"errors"
	"fmt"
)

var (
	ErrMissingColumn     = errors.New("missing required column")
	ErrInvalidDateFormat = errors.New("invalid start or end date format, use 'dd.mm.yyyy hh:mm:ss'")
)

// MissingColumnError names the schema field a deals export lacked.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing required column '%s' in the deals CSV", e.Column)
}

func (e *MissingColumnError) Unwrap() error {
	return ErrMissingColumn
}

func missingColumn(name string) error {
	return &MissingColumnError{Column: name}
}
