package model

import (
	"errors"
	"fmt"

	"github.com/trestlehq/trestle/internal/rules"
)

// ValidationError aggregates every rule failure from one Validate pass.
type ValidationError struct {
	Errors []*rules.RuleError
}

func (e *ValidationError) Error() string {
	switch len(e.Errors) {
	case 0:
		return "validation failed"
	case 1:
		return fmt.Sprintf("validation failed: %s", e.Errors[0].Error())
	default:
		return fmt.Sprintf("validation failed: %d errors", len(e.Errors))
	}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
