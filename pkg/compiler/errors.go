package compiler

import "fmt"

// Error is a single compile-time diagnostic: a message anchored to the
// token that triggered it. The compiler stops at the first one — the
// language has no error-recovery mode, so there is never a list of these.
type Error struct {
	Line    int
	AtEnd   bool
	Where   string // the offending lexeme; ignored when AtEnd
	Message string
}

func (e *Error) Error() string {
	if e.AtEnd {
		return fmt.Sprintf("[line %d] Error at end: %s", e.Line, e.Message)
	}
	return fmt.Sprintf("[line %d] Error at '%s': %s", e.Line, e.Where, e.Message)
}
