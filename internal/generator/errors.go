package generator

import (
	"encoding/json"
	"fmt"
)

// ValidationError reports a generated batch that does not conform to the
// question schema.
type ValidationError struct {
	Content json.RawMessage
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid generated questions: %v", e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// UnavailableError reports that the model could not be reached.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("question generator unavailable: %v", e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }
