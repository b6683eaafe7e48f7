package tools

import "fmt"

// CallError is the only failure a tool reports to its caller. It carries a
// short, stable message and no cause.
type CallError struct {
	Message string
}

func (e *CallError) Error() string {
	return e.Message
}

// NewCallError formats a CallError message.
func NewCallError(format string, args ...any) *CallError {
	return &CallError{Message: fmt.Sprintf(format, args...)}
}

// Error represents a registry-level failure such as an unknown tool.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

const ErrCodeToolNotFound = "tool_not_found"
