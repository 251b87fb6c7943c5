package service

import "fmt"

// Limits bounds the requested output dimensions.
type Limits struct {
	MaxWidth  int
	MaxHeight int
}

var DefaultLimits = Limits{MaxWidth: 2000, MaxHeight: 2000}

type Validator struct {
	limits Limits
}

func NewValidator(limits Limits) Validator {
	return Validator{limits: limits}
}

// Validate checks the present parameters against the limits. Nil means absent.
func (v Validator) Validate(width, height, quality *int) error {
	if width != nil && (*width <= 0 || *width > v.limits.MaxWidth) {
		return &ServiceError{
			Kind:    KindInvalidParameters,
			Message: fmt.Sprintf("Width must be between 1 and %d", v.limits.MaxWidth),
		}
	}
	if height != nil && (*height <= 0 || *height > v.limits.MaxHeight) {
		return &ServiceError{
			Kind:    KindInvalidParameters,
			Message: fmt.Sprintf("Height must be between 1 and %d", v.limits.MaxHeight),
		}
	}
	if quality != nil && (*quality < 1 || *quality > 100) {
		return &ServiceError{
			Kind:    KindInvalidParameters,
			Message: "Quality must be between 1 and 100",
		}
	}
	return nil
}
