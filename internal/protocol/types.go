package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Version is the wire protocol revision. Requests carrying any other value
// are answered with a VersionMismatch failure and the session ends.
const Version uint32 = 1

// RequestKind names a request variant.
type RequestKind string

const (
	KindPush         RequestKind = "Push"
	KindPop          RequestKind = "Pop"
	KindForceProcess RequestKind = "ForceProcess"
	KindClear        RequestKind = "Clear"
	KindList         RequestKind = "List"
	KindQuit         RequestKind = "Quit"
)

// ResponseKind names a response variant.
type ResponseKind string

const (
	KindSuccess ResponseKind = "Success"
	KindItems   ResponseKind = "List"
	KindFailure ResponseKind = "Failure"
)

// FailureKind names a failure variant.
type FailureKind string

const (
	FailureIo              FailureKind = "Io"
	FailureMalformed       FailureKind = "Malformed"
	FailureUnwrap          FailureKind = "Unwrap"
	FailureVersionMismatch FailureKind = "VersionMismatch"
	FailureAuth            FailureKind = "Auth"
)

// envelope is the adjacent tagging shared by every variant type.
type envelope struct {
	Type string          `json:"type"`
	Body json.RawMessage `json:"body,omitempty"`
}

func (e envelope) hasBody() bool {
	trimmed := bytes.TrimSpace(e.Body)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

func decodeEnvelope(data []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return envelope{}, err
	}
	if env.Type == "" {
		return envelope{}, errors.New("missing type tag")
	}
	return env, nil
}

func encodeEnvelope(tag string, body any) ([]byte, error) {
	env := envelope{Type: tag}
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		env.Body = raw
	}
	return json.Marshal(env)
}

func decodeBody(env envelope, target any) error {
	if !env.hasBody() {
		return fmt.Errorf("%s requires a body", env.Type)
	}
	if err := json.Unmarshal(env.Body, target); err != nil {
		return fmt.Errorf("%s body: %w", env.Type, err)
	}
	return nil
}

// Request is one client message.
type Request struct {
	Protocol uint32      `json:"protocol"`
	Body     RequestBody `json:"body"`
}

// NewRequest wraps body with the current protocol version.
func NewRequest(body RequestBody) Request {
	return Request{Protocol: Version, Body: body}
}

// RequestBody is the tagged request payload. URL is set for Push and Pop.
type RequestBody struct {
	Kind RequestKind
	URL  string
}

func Push(url string) RequestBody { return RequestBody{Kind: KindPush, URL: url} }
func Pop(url string) RequestBody  { return RequestBody{Kind: KindPop, URL: url} }
func ForceProcess() RequestBody   { return RequestBody{Kind: KindForceProcess} }
func Clear() RequestBody          { return RequestBody{Kind: KindClear} }
func List() RequestBody           { return RequestBody{Kind: KindList} }
func Quit() RequestBody           { return RequestBody{Kind: KindQuit} }

// MarshalJSON implements json.Marshaler.
func (b RequestBody) MarshalJSON() ([]byte, error) {
	switch b.Kind {
	case KindPush, KindPop:
		return encodeEnvelope(string(b.Kind), b.URL)
	case KindForceProcess, KindClear, KindList, KindQuit:
		return encodeEnvelope(string(b.Kind), nil)
	default:
		return nil, fmt.Errorf("unknown request kind %q", b.Kind)
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *RequestBody) UnmarshalJSON(data []byte) error {
	env, err := decodeEnvelope(data)
	if err != nil {
		return err
	}
	kind := RequestKind(env.Type)
	switch kind {
	case KindPush, KindPop:
		var url string
		if err := decodeBody(env, &url); err != nil {
			return err
		}
		*b = RequestBody{Kind: kind, URL: url}
	case KindForceProcess, KindClear, KindList, KindQuit:
		*b = RequestBody{Kind: kind}
	default:
		return fmt.Errorf("unknown request type %q", env.Type)
	}
	return nil
}

// Response is one agent message. Exactly one of the payload fields is
// meaningful, selected by Kind.
type Response struct {
	Kind    ResponseKind
	Message string
	Items   []string
	Failure Failure
}

// Success builds a Success response.
func Success(message string) Response {
	return Response{Kind: KindSuccess, Message: message}
}

// OK is the acknowledgement used by every mutating request.
func OK() Response {
	return Success("OK")
}

// Items builds a List response; a nil slice is sent as an empty array.
func Items(urls []string) Response {
	if urls == nil {
		urls = []string{}
	}
	return Response{Kind: KindItems, Items: urls}
}

// Fail builds a Failure response.
func Fail(f Failure) Response {
	return Response{Kind: KindFailure, Failure: f}
}

// MarshalJSON implements json.Marshaler.
func (r Response) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case KindSuccess:
		return encodeEnvelope(string(r.Kind), r.Message)
	case KindItems:
		items := r.Items
		if items == nil {
			items = []string{}
		}
		return encodeEnvelope(string(r.Kind), items)
	case KindFailure:
		return encodeEnvelope(string(r.Kind), r.Failure)
	default:
		return nil, fmt.Errorf("unknown response kind %q", r.Kind)
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Response) UnmarshalJSON(data []byte) error {
	env, err := decodeEnvelope(data)
	if err != nil {
		return err
	}
	kind := ResponseKind(env.Type)
	switch kind {
	case KindSuccess:
		var message string
		if err := decodeBody(env, &message); err != nil {
			return err
		}
		*r = Success(message)
	case KindItems:
		var items []string
		if err := decodeBody(env, &items); err != nil {
			return err
		}
		*r = Items(items)
	case KindFailure:
		var failure Failure
		if err := decodeBody(env, &failure); err != nil {
			return err
		}
		*r = Fail(failure)
	default:
		return fmt.Errorf("unknown response type %q", env.Type)
	}
	return nil
}

// Failure describes why a request was rejected. Message is carried by Io,
// Malformed and Unwrap; Version by VersionMismatch; Auth has no payload.
type Failure struct {
	Kind    FailureKind
	Message string
	Version uint32
}

func Io(message string) Failure        { return Failure{Kind: FailureIo, Message: message} }
func Malformed(message string) Failure { return Failure{Kind: FailureMalformed, Message: message} }
func Unwrap(message string) Failure    { return Failure{Kind: FailureUnwrap, Message: message} }
func Auth() Failure                    { return Failure{Kind: FailureAuth} }

// VersionMismatch reports the version the agent expects.
func VersionMismatch(expected uint32) Failure {
	return Failure{Kind: FailureVersionMismatch, Version: expected}
}

// String renders the failure for humans.
func (f Failure) String() string {
	switch f.Kind {
	case FailureVersionMismatch:
		return fmt.Sprintf("protocol version mismatch (agent speaks %d)", f.Version)
	case FailureAuth:
		return "authentication failed"
	case FailureIo:
		return "i/o error: " + f.Message
	case FailureMalformed:
		return "malformed request: " + f.Message
	case FailureUnwrap:
		return "agent error: " + f.Message
	default:
		return string(f.Kind)
	}
}

// MarshalJSON implements json.Marshaler.
func (f Failure) MarshalJSON() ([]byte, error) {
	switch f.Kind {
	case FailureIo, FailureMalformed, FailureUnwrap:
		return encodeEnvelope(string(f.Kind), f.Message)
	case FailureVersionMismatch:
		return encodeEnvelope(string(f.Kind), f.Version)
	case FailureAuth:
		return encodeEnvelope(string(f.Kind), nil)
	default:
		return nil, fmt.Errorf("unknown failure kind %q", f.Kind)
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Failure) UnmarshalJSON(data []byte) error {
	env, err := decodeEnvelope(data)
	if err != nil {
		return err
	}
	kind := FailureKind(env.Type)
	switch kind {
	case FailureIo, FailureMalformed, FailureUnwrap:
		var message string
		if err := decodeBody(env, &message); err != nil {
			return err
		}
		*f = Failure{Kind: kind, Message: message}
	case FailureVersionMismatch:
		var version uint32
		if err := decodeBody(env, &version); err != nil {
			return err
		}
		*f = VersionMismatch(version)
	case FailureAuth:
		*f = Auth()
	default:
		return fmt.Errorf("unknown failure type %q", env.Type)
	}
	return nil
}
