package replay

import "errors"

// MemoryError implements errors unique to a replay memory.
type MemoryError struct {
	Op  string
	Err error
}

// Error satisfies the error interface
func (e *MemoryError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

// Unwrap returns the underlying error condition
func (e *MemoryError) Unwrap() error {
	return e.Err
}

var errInsufficientData = errors.New("fewer stored transitions than requested")

// IsInsufficientData returns whether an error reports that the memory
// holds fewer transitions than a Sample call requested. This is an
// expected condition early in training, before the observation phase
// has filled the memory.
func IsInsufficientData(err error) bool {
	if memErr, ok := err.(*MemoryError); ok {
		err = memErr.Err
	}
	return err == errInsufficientData
}
