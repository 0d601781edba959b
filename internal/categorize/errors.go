package categorize

// ConfigurationError is returned when a category model cannot be built from
// the given samples
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "invalid category model: " + e.Reason
}
