package kernelutil

import (
	"fmt"

	"github.com/pkg/errors"
)

// WrapError annotates err with an operation name, preserving it for
// errors.Is/As unwrapping. If err is nil, a new error carrying only msg is
// returned.
func WrapError(err error, msg string) error {
	if err == nil {
		return fmt.Errorf("%s", msg)
	}
	return errors.WithMessage(err, msg)
}

// TimeoutError builds a descriptive timeout error for the named operation.
func TimeoutError(operation string) error {
	return fmt.Errorf("%s: operation timed out", operation)
}
