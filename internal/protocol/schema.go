package protocol

import "fmt"

// FieldOp is a single schema field's encode/decode behavior for a message of
// type T. Fields are assembled once, at package init, into an ordered slice
// per message variant; the generic Encode/Decode walkers below then apply
// that slice uniformly to every variant instead of each variant hand-rolling
// its own wire layout.
//
// Condition, when non-nil, is evaluated against the partially built message
// to decide whether the field is present on the wire at all (both encode and
// decode must reach the same verdict, since they read/write the same sibling
// fields in the same order).
type FieldOp[T any] struct {
	Name      string
	Condition func(*T) bool
	Encode    func(e *Encoder, m *T) error
	Decode    func(d *Decoder, m *T) error
}

// EncodeFields walks fields in order, writing present ones to e.
func EncodeFields[T any](e *Encoder, m *T, fields []FieldOp[T]) error {
	for _, f := range fields {
		if f.Condition != nil && !f.Condition(m) {
			continue
		}
		if err := f.Encode(e, m); err != nil {
			return fmt.Errorf("field %q: %w", f.Name, err)
		}
	}
	return nil
}

// DecodeFields walks fields in order, reading present ones from d.
func DecodeFields[T any](d *Decoder, m *T, fields []FieldOp[T]) error {
	return decodeFieldsFrom(d, m, fields, 0)
}

// decodeFieldsFrom decodes fields[from:] in order. DecodeFields calls it
// with from=0.
func decodeFieldsFrom[T any](d *Decoder, m *T, fields []FieldOp[T], from int) error {
	for _, f := range fields[from:] {
		if f.Condition != nil && !f.Condition(m) {
			continue
		}
		if err := f.Decode(d, m); err != nil {
			return fmt.Errorf("field %q: %w", f.Name, err)
		}
	}
	return nil
}

func byteField[T any](name string, get func(*T) byte, set func(*T, byte)) FieldOp[T] {
	return FieldOp[T]{
		Name: name,
		Encode: func(e *Encoder, m *T) error {
			e.PutByte(get(m))
			return nil
		},
		Decode: func(d *Decoder, m *T) error {
			b, err := d.Byte()
			if err != nil {
				return err
			}
			set(m, b)
			return nil
		},
	}
}

func ushortField[T any](name string, get func(*T) uint16, set func(*T, uint16)) FieldOp[T] {
	return FieldOp[T]{
		Name: name,
		Encode: func(e *Encoder, m *T) error {
			e.PutUShort(get(m))
			return nil
		},
		Decode: func(d *Decoder, m *T) error {
			v, err := d.UShort()
			if err != nil {
				return err
			}
			set(m, v)
			return nil
		},
	}
}

func splitByteField[T any](name string, getHi, getLo func(*T) byte, setHi, setLo func(*T, byte)) FieldOp[T] {
	return FieldOp[T]{
		Name: name,
		Encode: func(e *Encoder, m *T) error {
			e.PutSplitByte(getHi(m), getLo(m))
			return nil
		},
		Decode: func(d *Decoder, m *T) error {
			hi, lo, err := d.SplitByte()
			if err != nil {
				return err
			}
			setHi(m, hi)
			setLo(m, lo)
			return nil
		},
	}
}

func uvarintField[T any](name string, get func(*T) uint64, set func(*T, uint64)) FieldOp[T] {
	return FieldOp[T]{
		Name: name,
		Encode: func(e *Encoder, m *T) error {
			return e.PutUvarint(get(m))
		},
		Decode: func(d *Decoder, m *T) error {
			v, err := d.Uvarint()
			if err != nil {
				return err
			}
			set(m, v)
			return nil
		},
	}
}

func uvarlongField[T any](name string, get func(*T) uint64, set func(*T, uint64)) FieldOp[T] {
	return FieldOp[T]{
		Name: name,
		Encode: func(e *Encoder, m *T) error {
			return e.PutUvarlong(get(m))
		},
		Decode: func(d *Decoder, m *T) error {
			v, err := d.Uvarlong()
			if err != nil {
				return err
			}
			set(m, v)
			return nil
		},
	}
}

func stringField[T any](name string, get func(*T) string, set func(*T, string)) FieldOp[T] {
	return FieldOp[T]{
		Name: name,
		Encode: func(e *Encoder, m *T) error {
			return e.PutString(get(m))
		},
		Decode: func(d *Decoder, m *T) error {
			s, err := d.String()
			if err != nil {
				return err
			}
			set(m, s)
			return nil
		},
	}
}

// optionalStringField models a field whose absence and whose empty value are
// indistinguishable on the wire (both encode as the lone 0x00 byte, per the
// string wire format). Decoding therefore always yields nil for an empty
// read, matching the field's "default: absent" behavior.
func optionalStringField[T any](name string, get func(*T) *string, set func(*T, *string)) FieldOp[T] {
	return FieldOp[T]{
		Name: name,
		Encode: func(e *Encoder, m *T) error {
			if p := get(m); p != nil {
				return e.PutString(*p)
			}
			return e.PutString("")
		},
		Decode: func(d *Decoder, m *T) error {
			s, err := d.String()
			if err != nil {
				return err
			}
			if s == "" {
				set(m, nil)
				return nil
			}
			set(m, &s)
			return nil
		},
	}
}

func bytesField[T any](name string, get func(*T) []byte, set func(*T, []byte)) FieldOp[T] {
	return FieldOp[T]{
		Name: name,
		Encode: func(e *Encoder, m *T) error {
			return e.PutBytes(get(m))
		},
		Decode: func(d *Decoder, m *T) error {
			b, err := d.Bytes()
			if err != nil {
				return err
			}
			set(m, b)
			return nil
		},
	}
}

func conditionalUvarintField[T any](name string, get func(*T) uint64, set func(*T, uint64), cond func(*T) bool) FieldOp[T] {
	f := uvarintField(name, get, set)
	f.Condition = cond
	return f
}

func conditionalBytesField[T any](name string, get func(*T) []byte, set func(*T, []byte), cond func(*T) bool) FieldOp[T] {
	f := bytesField(name, get, set)
	f.Condition = cond
	return f
}

// compositeField inlines a nested message's own field schema at this
// position: encoding recurses into the nested fields in order, with no
// length prefix or marker of its own.
func compositeField[T any, C any](name string, get func(*T) *C, fields []FieldOp[C]) FieldOp[T] {
	return FieldOp[T]{
		Name: name,
		Encode: func(e *Encoder, m *T) error {
			return EncodeFields(e, get(m), fields)
		},
		Decode: func(d *Decoder, m *T) error {
			return DecodeFields(d, get(m), fields)
		},
	}
}

func conditionalCompositeField[T any, C any](name string, get func(*T) *C, fields []FieldOp[C], cond func(*T) bool) FieldOp[T] {
	f := compositeField(name, get, fields)
	f.Condition = cond
	return f
}

// listField encodes/decodes a run of elements whose count is not
// self-describing on the wire: the decoder consults size(message), which
// reads a sibling field that was already decoded earlier in the schema.
func listField[T any, E any](name string, get func(*T) *[]E, size func(*T) int, fields []FieldOp[E], newElem func() E) FieldOp[T] {
	return FieldOp[T]{
		Name: name,
		Encode: func(e *Encoder, m *T) error {
			list := *get(m)
			for i := range list {
				if err := EncodeFields(e, &list[i], fields); err != nil {
					return err
				}
			}
			return nil
		},
		Decode: func(d *Decoder, m *T) error {
			n := size(m)
			list := make([]E, n)
			for i := 0; i < n; i++ {
				list[i] = newElem()
				if err := DecodeFields(d, &list[i], fields); err != nil {
					return err
				}
			}
			*get(m) = list
			return nil
		},
	}
}
