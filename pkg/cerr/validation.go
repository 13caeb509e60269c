package cerr

import "fmt"

// NewValidationError reports a rejected input field. The rule id is
// "<field>.<rule>" so clients can map it back to a form control.
func NewValidationError(field, rule, msg string) *Error {
	e := NewError(InvalidArgument, fmt.Sprintf("invalid %s", field), nil)
	_ = e.AddDetailMessageWithCode(msg, field+"."+rule)
	return e
}
