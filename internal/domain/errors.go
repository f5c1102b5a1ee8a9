package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures crossing an agent boundary.
type ErrorKind string

const (
	// KindValidation: malformed or missing arguments; the operation was not attempted.
	KindValidation ErrorKind = "validation"
	// KindTransport: network, SMTP or model-call failure.
	KindTransport ErrorKind = "transport"
	// KindData: the operation ran but produced nothing usable.
	KindData ErrorKind = "data"
	// KindProtocol: the call envelope itself could not be decoded.
	KindProtocol ErrorKind = "protocol"
	// KindInternal covers everything unclassified, including recovered panics.
	KindInternal ErrorKind = "internal"
)

// Error is a classified error. Msg is what callers see; Err is the cause.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg == "" && e.Err != nil:
		return e.Err.Error()
	case e.Err != nil:
		return e.Msg + ": " + e.Err.Error()
	default:
		return e.Msg
	}
}

func (e *Error) Unwrap() error { return e.Err }

func Validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func Dataf(format string, args ...any) error {
	return &Error{Kind: KindData, Msg: fmt.Sprintf(format, args...)}
}

// Transport wraps a collaborator failure. msg may be empty to surface the
// cause verbatim.
func Transport(err error, msg string) error {
	return &Error{Kind: KindTransport, Msg: msg, Err: err}
}

func Protocol(err error, msg string) error {
	return &Error{Kind: KindProtocol, Msg: msg, Err: err}
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
