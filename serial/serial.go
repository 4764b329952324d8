// Package serial converts between application values and the raw bytes
// carried as Hot Rod keys and values, mirroring the pluggable
// serialization layer the original client exposed for keys/values.
package serial

import (
	"encoding/json"

	"github.com/infinispan/go-hotrod/internal/errs"
)

// Serializer converts an application value to and from wire bytes.
type Serializer interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSONSerializer is the default serializer: values are encoded with
// encoding/json, the idiomatic Go analogue of the original client's
// jsonpickle default.
type JSONSerializer struct{}

// Marshal encodes v as JSON.
func (JSONSerializer) Marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errs.NewSerializationError("json marshal: %v", err)
	}
	return b, nil
}

// Unmarshal decodes data as JSON into v.
func (JSONSerializer) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return errs.NewSerializationError("json unmarshal: %v", err)
	}
	return nil
}

// BytesSerializer passes []byte values through unchanged. Marshal/Unmarshal
// both fail for any other Go type.
type BytesSerializer struct{}

// Marshal returns v's bytes unchanged.
func (BytesSerializer) Marshal(v any) ([]byte, error) {
	b, ok := v.([]byte)
	if !ok {
		return nil, errs.NewSerializationError("bytes serializer: expected []byte, got %T", v)
	}
	return b, nil
}

// Unmarshal stores data directly into *v ([]byte).
func (BytesSerializer) Unmarshal(data []byte, v any) error {
	p, ok := v.(*[]byte)
	if !ok {
		return errs.NewSerializationError("bytes serializer: expected *[]byte, got %T", v)
	}
	*p = data
	return nil
}

// StringSerializer encodes/decodes string values as their raw UTF-8 bytes,
// mirroring the original client's UTF8 serializer.
type StringSerializer struct{}

// Marshal returns v's UTF-8 bytes unchanged.
func (StringSerializer) Marshal(v any) ([]byte, error) {
	s, ok := v.(string)
	if !ok {
		return nil, errs.NewSerializationError("string serializer: expected string, got %T", v)
	}
	return []byte(s), nil
}

// Unmarshal stores data as a string into *v (string).
func (StringSerializer) Unmarshal(data []byte, v any) error {
	p, ok := v.(*string)
	if !ok {
		return errs.NewSerializationError("string serializer: expected *string, got %T", v)
	}
	*p = string(data)
	return nil
}
