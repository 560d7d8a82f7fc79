package descriptor

import (
	"errors"
	"fmt"

	"github.com/decker502/sparkfx/internal/particle"
)

// Sentinel errors. Every load or validation failure wraps one of these
// inside a *ParseError.
var (
	ErrInvalidCapacity  = errors.New("capacity must be greater than zero")
	ErrInvalidParameter = errors.New("invalid modifier parameter")
	ErrUnknownVariant   = errors.New("unknown variant")
	ErrMultipleVariants = errors.New("more than one variant set")
	ErrUnknownFormat    = errors.New("unknown descriptor format")
	ErrMissingName      = errors.New("effect name is required")

	ErrInvalidRange = particle.ErrInvalidRange
	ErrCurveOrder   = particle.ErrCurveOrder
	ErrKeyframeTime = particle.ErrKeyframeTime
)

// ParseError reports a descriptor that cannot be turned into an effect.
// Source names the file or library entry when known; Path is the dotted
// field path inside the descriptor.
type ParseError struct {
	Source string
	Path   string
	Err    error
}

func (e *ParseError) Error() string {
	msg := "descriptor"
	if e.Source != "" {
		msg += " " + e.Source
	}
	if e.Path != "" {
		msg += ": " + e.Path
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// withSource attaches a source name to err, wrapping it in a ParseError if needed.
func withSource(source string, err error) error {
	if err == nil {
		return nil
	}
	var pe *ParseError
	if errors.As(err, &pe) {
		if pe.Source == "" {
			pe.Source = source
		}
		return pe
	}
	return &ParseError{Source: source, Err: err}
}
