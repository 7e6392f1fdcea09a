// internal/secret/secret.go
//
// Masked value wrapper.
//
// Context
// -------
// Connector metadata, fraud-check configs, and credential blobs travel
// through request handlers, services, and loggers.  Wrapping them in
// Secret keeps the inner value out of every default output path:
//
//   - fmt verbs (%v, %+v, %#v, %s) print a mask,
//   - zap fields (zap.Any, zap.Object) print a mask,
//   - encoding/json marshals a mask.
//
// The only ways to reach the inner value are Expose() and the
// database/sql Valuer, which the storage layer calls when persisting.
//
// Notes
// -----
//   - UnmarshalJSON accepts the plain inner value so request bodies can
//     carry secrets in.  Output never round-trips.
//   - Oxford commas, two spaces after periods.
package secret

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"reflect"

	"go.uber.org/zap/zapcore"
)

// Mask is what every formatting path prints in place of the inner value.
const Mask = "*** redacted ***"

// Secret holds a value of type T that must not leak through formatting or
// logging.  The zero value wraps T's zero value.
type Secret[T any] struct {
	inner T
}

// New wraps v.
func New[T any](v T) Secret[T] { return Secret[T]{inner: v} }

// Ptr wraps v and returns a pointer, handy for nullable fields.
func Ptr[T any](v T) *Secret[T] {
	s := New(v)
	return &s
}

// Expose returns the inner value.  Call sites are greppable on purpose.
func (s Secret[T]) Expose() T { return s.inner }

// String implements fmt.Stringer.
func (s Secret[T]) String() string { return s.masked() }

// GoString implements fmt.GoStringer so %#v stays masked.
func (s Secret[T]) GoString() string { return s.masked() }

// Format implements fmt.Formatter for every verb.
func (s Secret[T]) Format(f fmt.State, _ rune) {
	_, _ = f.Write([]byte(s.masked()))
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (s Secret[T]) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("value", Mask)
	enc.AddString("type", typeName[T]())
	return nil
}

// MarshalJSON always emits the mask.
func (s Secret[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(Mask)
}

// UnmarshalJSON decodes the plain inner value.
func (s *Secret[T]) UnmarshalJSON(b []byte) error {
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("secret: decode %s: %w", typeName[T](), err)
	}
	s.inner = v
	return nil
}

// Value implements driver.Valuer.  Values that are themselves Valuers are
// delegated to; anything else is stored as JSON.
func (s Secret[T]) Value() (driver.Value, error) {
	if v, ok := any(s.inner).(driver.Valuer); ok {
		return v.Value()
	}
	if raw, ok := any(s.inner).(json.RawMessage); ok {
		return []byte(raw), nil
	}
	return json.Marshal(s.inner)
}

// Scan implements sql.Scanner for JSON columns.
func (s *Secret[T]) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		var zero T
		s.inner = zero
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("secret: cannot scan %T into %s", src, typeName[T]())
	}

	if sc, ok := any(&s.inner).(interface{ Scan(any) error }); ok {
		return sc.Scan(b)
	}
	if raw, ok := any(&s.inner).(*json.RawMessage); ok {
		*raw = append((*raw)[:0], b...)
		return nil
	}
	return json.Unmarshal(b, &s.inner)
}

func (s Secret[T]) masked() string { return Mask }

func typeName[T any]() string {
	return reflect.TypeOf((*T)(nil)).Elem().String()
}
