package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidSymbol      = errors.New("barcode symbol is required")
	ErrInvalidProductName = errors.New("product name is required")
)

// Scan error taxonomy. Each sentinel below wraps one of the five kinds so
// callers can test with errors.Is against either the kind or the detail.
var (
	ErrDevice           = errors.New("camera unavailable")
	ErrPermissionDenied = fmt.Errorf("%w: permission denied", ErrDevice)
	ErrNoFrame          = fmt.Errorf("%w: stream has not produced a frame", ErrDevice)

	ErrValidation       = errors.New("validation failed")
	ErrNoFileSelected   = fmt.Errorf("%w: no file selected", ErrValidation)
	ErrUnsupportedImage = fmt.Errorf("%w: unsupported image", ErrValidation)

	ErrDecode = errors.New("barcode decoder unavailable")

	ErrNotFound        = errors.New("not found")
	ErrNoSymbol        = fmt.Errorf("no barcode detected: %w", ErrNotFound)
	ErrProductNotFound = fmt.Errorf("product %w", ErrNotFound)

	ErrWrite = errors.New("inventory write failed")
)

// Kind classifies an error into the scan error taxonomy
type Kind string

const (
	KindDevice     Kind = "device"
	KindValidation Kind = "validation"
	KindDecode     Kind = "decode"
	KindNotFound   Kind = "not_found"
	KindWrite      Kind = "write"
	KindUnknown    Kind = "unknown"
)

// Classify returns the Kind of err, or KindUnknown when it is outside the taxonomy
func Classify(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDevice):
		return KindDevice
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrDecode):
		return KindDecode
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrWrite):
		return KindWrite
	default:
		return KindUnknown
	}
}
