// Package encryption carries ciphertext produced by the external encryption
// service.  Nothing here encrypts or decrypts; the type only moves opaque
// bytes between the API layer, the merge logic, and the database.
package encryption

import (
	"bytes"
	"database/sql/driver"
	"encoding/base64"
	"fmt"
)

// Encryption is an encrypted payload.  The zero value is an empty payload.
type Encryption struct {
	inner []byte
}

// New copies b into a new Encryption.
func New(b []byte) Encryption {
	return Encryption{inner: bytes.Clone(b)}
}

// Bytes returns a copy of the ciphertext.
func (e Encryption) Bytes() []byte { return bytes.Clone(e.inner) }

// IsEmpty reports whether the payload carries no bytes.
func (e Encryption) IsEmpty() bool { return len(e.inner) == 0 }

// Equal compares ciphertexts byte for byte.
func (e Encryption) Equal(o Encryption) bool { return bytes.Equal(e.inner, o.inner) }

// String never prints ciphertext, only its length.
func (e Encryption) String() string { return fmt.Sprintf("Encryption(%d bytes)", len(e.inner)) }

// Value implements driver.Valuer.  The column is NOT NULL, so an empty
// payload is written as an empty blob rather than NULL.
func (e Encryption) Value() (driver.Value, error) {
	if e.inner == nil {
		return []byte{}, nil
	}
	return e.inner, nil
}

// Scan implements sql.Scanner.
func (e *Encryption) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		e.inner = nil
	case []byte:
		e.inner = bytes.Clone(v)
	case string:
		e.inner = []byte(v)
	default:
		return fmt.Errorf("encryption: cannot scan %T", src)
	}
	return nil
}

// MarshalText and UnmarshalText let request bodies carry the blob as a
// base64 string via encoding/json.
func (e Encryption) MarshalText() ([]byte, error) {
	return []byte(base64.StdEncoding.EncodeToString(e.inner)), nil
}

func (e *Encryption) UnmarshalText(b []byte) error {
	out := make([]byte, base64.StdEncoding.DecodedLen(len(b)))
	n, err := base64.StdEncoding.Decode(out, b)
	if err != nil {
		return fmt.Errorf("encryption: decode: %w", err)
	}
	e.inner = out[:n]
	return nil
}
