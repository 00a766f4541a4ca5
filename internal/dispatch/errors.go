package dispatch

import (
	"fmt"
	"time"
)

// ValidationError is a caller mistake. Always answered with 400.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// TimeoutError reports that the overall generation budget ran out.
type TimeoutError struct {
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("Request timed out after %d seconds. Please try again with a simpler prompt.", int(e.After.Seconds()))
}
