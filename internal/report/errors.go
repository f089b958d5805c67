package report

import (
	"errors"
	"fmt"
)

// DataError marks an evaluation payload that is structurally unrecoverable.
// Missing leaf fields never produce a DataError; they resolve to defaults.
type DataError struct {
	Field  string
	Reason string
}

func (e *DataError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid evaluation data: %s", e.Reason)
	}
	return fmt.Sprintf("invalid evaluation data: field %q: %s", e.Field, e.Reason)
}

// IsDataError reports whether err wraps a DataError.
func IsDataError(err error) bool {
	var de *DataError
	return errors.As(err, &de)
}
