package animator

import "fmt"

// ConfigurationError reports an animator that cannot be built from the
// supplied path and timing.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "animator: invalid configuration: " + e.Reason
}

func configErrorf(format string, args ...any) error {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}
