// internal/domain/errors.go
package domain

import "fmt"

// EmptyResultError means the requested filters matched no rows. Callers
// should treat it as "nothing to ship", not as a failure.
type EmptyResultError struct {
	Filter string
}

func (e *EmptyResultError) Error() string {
	if e.Filter == "" {
		return "no rows matched the requested filters"
	}
	return fmt.Sprintf("no rows matched filter %s", e.Filter)
}

// ConfigurationError means a column or table the allocator depends on could
// not be located. It is fatal: degrading to a zero-shipment answer would
// under-report shortage.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// Warning codes for data-quality diagnostics.
const (
	WarnCoercedValue   = "coerced_value"
	WarnDuplicateRows  = "duplicate_rows_aggregated"
	WarnMissingColumn  = "optional_column_missing"
	WarnUnmatchedGroup = "merchandise_group_unmatched"
)

// Warning is a non-fatal data-quality diagnostic collected during a
// computation and returned alongside the result.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	return w.Code + ": " + w.Message
}

// Warnf builds a Warning with a formatted message.
func Warnf(code, format string, args ...interface{}) Warning {
	return Warning{Code: code, Message: fmt.Sprintf(format, args...)}
}
