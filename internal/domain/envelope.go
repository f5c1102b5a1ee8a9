package domain

import (
	"encoding/json"
	"fmt"
)

// Status is the outcome of a single agent call. The zero value is not a
// valid status, so an unset Response is never mistaken for a success.
type Status int

const (
	StatusSuccess Status = iota + 1
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusError:
		return "ERROR"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case "SUCCESS":
		*s = StatusSuccess
	case "ERROR":
		*s = StatusError
	default:
		return fmt.Errorf("unknown status %q", name)
	}
	return nil
}

// DefaultMessage is the message carried by successful responses.
const DefaultMessage = "OK"

// TerminationSentinel tells the orchestration runtime that the workflow is complete.
const TerminationSentinel = "TERMINATE"

// Request is the generic envelope handed to an agent. Content is either a
// free-form string or a map of named arguments.
type Request struct {
	Content any `json:"content"`
}

// Args returns the content as an argument map, or nil for string content.
func (r Request) Args() map[string]any {
	m, _ := r.Content.(map[string]any)
	return m
}

// Response is the generic envelope returned by every agent.
type Response struct {
	Content any    `json:"content"`
	Status  Status `json:"status"`
	Message string `json:"message"`
	// Kind classifies an ERROR response; empty on success.
	Kind ErrorKind `json:"-"`
}

// Success builds a SUCCESS response with the default message.
func Success(content any) Response {
	return Response{Content: content, Status: StatusSuccess, Message: DefaultMessage}
}

// SuccessWithMessage builds a SUCCESS response; an empty message falls back to "OK".
func SuccessWithMessage(content any, message string) Response {
	if message == "" {
		message = DefaultMessage
	}
	return Response{Content: content, Status: StatusSuccess, Message: message}
}

// Failure converts err into an ERROR response. The message is never empty.
func Failure(err error) Response {
	return FailureWithContent(nil, err)
}

// FailureWithContent is Failure with diagnostic detail attached as content.
func FailureWithContent(content any, err error) Response {
	msg := "unknown error"
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	kind := KindOf(err)
	if kind == "" {
		kind = KindInternal
	}
	return Response{Content: content, Status: StatusError, Message: msg, Kind: kind}
}

// OK reports whether the response carries a usable result.
func (r Response) OK() bool {
	return r.Status == StatusSuccess
}

// Normalize repairs responses built without the constructors: an unknown
// status becomes an internal ERROR, and empty messages get their defaults.
func (r Response) Normalize() Response {
	switch r.Status {
	case StatusSuccess:
		if r.Message == "" {
			r.Message = DefaultMessage
		}
		return r
	case StatusError:
		if r.Message == "" {
			r.Message = "unknown error"
		}
		if r.Kind == "" {
			r.Kind = KindInternal
		}
		return r
	default:
		return FailureWithContent(r.Content, &Error{Kind: KindInternal, Msg: fmt.Sprintf("agent returned invalid status %s", r.Status)})
	}
}
