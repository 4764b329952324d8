// Package errs defines the typed error kinds shared by the codec, transport
// and protocol engine layers.
package errs

import "fmt"

// EncodeErr is raised by the generic encoder: a required field was absent, or
// a value's LEB128 encoding exceeded its size cap.
type EncodeErr struct{ msg string }

func (e *EncodeErr) Error() string { return "encode: " + e.msg }

// NewEncodeError builds an *EncodeErr.
func NewEncodeError(format string, args ...any) *EncodeErr {
	return &EncodeErr{msg: fmt.Sprintf(format, args...)}
}

// DecodeErr is raised by the generic decoder: the byte source was exhausted
// prematurely, the response magic byte or an opcode was unknown, or a LEB128
// sequence was too long.
type DecodeErr struct{ msg string }

func (e *DecodeErr) Error() string { return "decode: " + e.msg }

// NewDecodeError builds a *DecodeErr.
func NewDecodeError(format string, args ...any) *DecodeErr {
	return &DecodeErr{msg: fmt.Sprintf(format, args...)}
}

// ConnectionErr covers every transport-level failure: not connected, already
// connected, connection refused, socket broken, remote hung up, timeout.
type ConnectionErr struct{ msg string }

func (e *ConnectionErr) Error() string { return "connection: " + e.msg }

// NewConnectionError builds a *ConnectionErr.
func NewConnectionError(format string, args ...any) *ConnectionErr {
	return &ConnectionErr{msg: fmt.Sprintf(format, args...)}
}

// SerializationErr is raised by a value serializer when its input does not
// fit the serializer's contract.
type SerializationErr struct{ msg string }

func (e *SerializationErr) Error() string { return "serialization: " + e.msg }

// NewSerializationError builds a *SerializationErr.
func NewSerializationError(format string, args ...any) *SerializationErr {
	return &SerializationErr{msg: fmt.Sprintf(format, args...)}
}

// ResponseErr wraps a decoded error response. Response holds the concrete
// decoded response value (typically *protocol.ErrorResponse) for diagnostics;
// it is typed as any here to avoid an import cycle between errs and protocol.
type ResponseErr struct {
	msg      string
	Response any
}

func (e *ResponseErr) Error() string { return "response: " + e.msg }

// NewResponseError builds a generic *ResponseErr for a non-OK status that
// isn't otherwise interpreted as a client or server error.
func NewResponseError(msg string, response any) *ResponseErr {
	return &ResponseErr{msg: msg, Response: response}
}

// ClientErr is a ResponseErr for statuses attributable to the request itself
// (unknown command/version, parse error, bad correlation id/magic).
type ClientErr struct{ *ResponseErr }

func (e *ClientErr) Error() string { return "client error: " + e.msg }

// NewClientError builds a *ClientErr.
func NewClientError(msg string, response any) *ClientErr {
	return &ClientErr{ResponseErr: &ResponseErr{msg: msg, Response: response}}
}

// ServerErr is a ResponseErr for statuses attributable to the server
// (internal server error, command timeout).
type ServerErr struct{ *ResponseErr }

func (e *ServerErr) Error() string { return "server error: " + e.msg }

// NewServerError builds a *ServerErr.
func NewServerError(msg string, response any) *ServerErr {
	return &ServerErr{ResponseErr: &ResponseErr{msg: msg, Response: response}}
}

// ProtocolErr signals an internal consistency violation, such as a decoded
// response correlation id that does not match the request that was sent.
type ProtocolErr struct{ msg string }

func (e *ProtocolErr) Error() string { return "protocol: " + e.msg }

// NewProtocolError builds a *ProtocolErr.
func NewProtocolError(format string, args ...any) *ProtocolErr {
	return &ProtocolErr{msg: fmt.Sprintf(format, args...)}
}
