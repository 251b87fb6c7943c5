package service

import "errors"

type ErrorKind int

const (
	KindInvalidParameters ErrorKind = iota + 1
	KindImageNotFound
	KindUnsupportedFormat
	KindProcessingFailed
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidParameters:
		return "invalid parameters"
	case KindImageNotFound:
		return "image not found"
	case KindUnsupportedFormat:
		return "unsupported format"
	default:
		return "error processing image"
	}
}

// ServiceError is the only error type FindImage returns. errors.Is matches on Kind,
// so callers compare against the Err* values below.
type ServiceError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

var (
	ErrInvalidParameters = &ServiceError{Kind: KindInvalidParameters}
	ErrImageNotFound     = &ServiceError{Kind: KindImageNotFound}
	ErrUnsupportedFormat = &ServiceError{Kind: KindUnsupportedFormat}
	ErrProcessingFailed  = &ServiceError{Kind: KindProcessingFailed}
)

func (e *ServiceError) Error() string {
	msg := e.Kind.String()
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(tgt error) bool {
	t, ok := tgt.(*ServiceError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of err; errors outside the taxonomy count as processing failures.
func KindOf(err error) ErrorKind {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindProcessingFailed
}
