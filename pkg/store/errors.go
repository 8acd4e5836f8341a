package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrNotFound is returned when the target id is absent from the store.
var ErrNotFound = errors.New("not found")

// ErrInvalidArgument is returned for nil entities and out-of-range values.
var ErrInvalidArgument = errors.New("invalid argument")

func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}
