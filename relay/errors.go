package relay

import "fmt"

// ErrorKind classifies a failed relay call.
type ErrorKind string

const (
	KindTransport ErrorKind = "transport"
	KindUpstream  ErrorKind = "upstream"
	KindParse     ErrorKind = "parse"
)

// Error is the single error type returned by Client.Call.
type Error struct {
	Kind    ErrorKind
	Tool    string
	Status  int // HTTP status for KindUpstream, zero otherwise
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func transportError(tool string, err error) *Error {
	return &Error{Kind: KindTransport, Tool: tool, Message: fmt.Sprintf("relay request failed: %v", err), Err: err}
}

func parseError(tool string, err error) *Error {
	return &Error{Kind: KindParse, Tool: tool, Message: fmt.Sprintf("invalid relay response: %v", err), Err: err}
}
