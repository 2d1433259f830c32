package relax

import "fmt"

// ConfigurationError reports scan metadata or partitioning that cannot
// produce a valid pipeline. It is structural: nothing has been written when
// it surfaces.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration: " + e.Reason
}

func configErrorf(format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

// ShapeMismatchError reports a raw channel row whose length does not match
// the step count the metadata declares.
type ShapeMismatchError struct {
	Row  int
	Got  int
	Want int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("row %d holds %d steps, metadata declares %d", e.Row, e.Got, e.Want)
}
