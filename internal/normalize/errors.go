package normalize

import (
	"fmt"
	"strings"
)

// SchemaError reports a CSV whose headers cannot be mapped to the canonical
// shape. The whole upload is rejected.
type SchemaError struct {
	Missing []string
	Header  []string
}

func (e *SchemaError) Error() string {
	if len(e.Missing) == 1 && e.Missing[0] == "amount" {
		return "normalize: no usable amount column found (need amount, or debit/credit)"
	}
	return fmt.Sprintf("normalize: csv must include a date and description column (missing %s)",
		strings.Join(e.Missing, ", "))
}

// RowParseError describes a single dropped row. It is collected, never fatal.
type RowParseError struct {
	Line  int    // 1-based line in the source file, header is line 1
	Field string // "date" or "amount"
	Value string
}

func (e RowParseError) Error() string {
	return fmt.Sprintf("line %d: unparsable %s %q", e.Line, e.Field, e.Value)
}
