// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// `Load` calls `validateStruct` right after it unmarshals the merged Koanf
// tree.  Any validation error aborts startup, so the binary never runs
// with partial or malformed configuration.
//
// Custom rules
// ------------
//   - dsn_template: the string carries exactly one %s verb and no other
//     %, because Database.ConnString passes it to fmt.Sprintf.
package config

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

//
// validator instance (package-level singleton)
//

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	_ = val.RegisterValidation("dsn_template", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return strings.Count(s, "%s") == 1 && strings.Count(s, "%") == 1
	})
	return val
}

//
// public API
//

// validateStruct returns the validation errors, or nil on success.
func validateStruct(c *Config) error {
	return v.Struct(c)
}
