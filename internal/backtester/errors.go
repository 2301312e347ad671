package backtester

import "fmt"

// ConfigurationError reports an invalid run parameter. It is returned before
// any simulation state is created.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InsufficientDataError reports that the price store holds fewer points than
// the moving-average period requires for the requested window.
type InsufficientDataError struct {
	Symbol   string
	Found    int
	Required int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s: found %d points, need %d", e.Symbol, e.Found, e.Required)
}

// UpstreamDataError reports that the price provider itself failed or returned
// nothing usable, as opposed to returning too little data.
type UpstreamDataError struct {
	Symbol string
	Err    error
}

func (e *UpstreamDataError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("price provider returned no usable data for %s", e.Symbol)
	}
	return fmt.Sprintf("price provider failed for %s: %v", e.Symbol, e.Err)
}

func (e *UpstreamDataError) Unwrap() error {
	return e.Err
}
