package vm

import (
	"strings"

	"loxvm/pkg/bytecode"
)

// renderValue is what PRINT and println() actually write: a value's
// normal string form, except that a string value's literal two-character
// `\n` escape (the scanner passes strings through unprocessed otherwise)
// is substituted with a real line feed at print time.
func renderValue(v bytecode.Value) string {
	if !v.IsString() {
		return v.String()
	}
	return strings.ReplaceAll(v.AsString(), `\n`, "\n")
}
