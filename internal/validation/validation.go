// Package validation runs the declarative input schemas and reports every
// failing field at once.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// FieldError describes one rule violation on one input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Errors is the full list of violations found in a single input.
type Errors []FieldError

func (e Errors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, fe := range e {
		msgs = append(msgs, fe.Message)
	}
	return strings.Join(msgs, "; ")
}

// Normalizer is implemented by schemas that trim input or apply defaults.
type Normalizer interface {
	Normalize()
}

// Struct normalizes in (when it implements Normalizer) and validates it.
// A non-nil result is always of type Errors.
func Struct(in any) error {
	if n, ok := in.(Normalizer); ok {
		n.Normalize()
	}
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Errors{{Field: "", Message: err.Error(), Type: "invalid"}}
	}
	out := make(Errors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{
			Field:   fe.Field(),
			Message: message(fe),
			Type:    fe.Tag(),
		})
	}
	return out
}

// Decode reads one JSON document from r into dst, rejecting unknown fields,
// then validates dst. Decoding problems are reported as Errors as well.
func Decode(r io.Reader, dst any) error {
	if err := Unmarshal(r, dst); err != nil {
		return err
	}
	return Struct(dst)
}

// DecodeBytes is Decode for an already buffered document.
func DecodeBytes(raw []byte, dst any) error {
	return Decode(bytes.NewReader(raw), dst)
}

// Unmarshal only decodes, with the same strictness and error shape as Decode.
func Unmarshal(r io.Reader, dst any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return decodeErrors(err)
	}
	return nil
}

// UnmarshalBytes is Unmarshal for an already buffered document.
func UnmarshalBytes(raw []byte, dst any) error {
	return Unmarshal(bytes.NewReader(raw), dst)
}

// As reports whether err carries field errors and returns them.
func As(err error) (Errors, bool) {
	var verrs Errors
	if errors.As(err, &verrs) {
		return verrs, true
	}
	return nil, false
}

func decodeErrors(err error) Errors {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			return Errors{{Field: "", Message: fmt.Sprintf("value must be of type %s", typeErr.Type.String()), Type: "type"}}
		}
		return Errors{{
			Field:   field,
			Message: fmt.Sprintf("%q must be of type %s", field, typeName(typeErr.Type)),
			Type:    "type",
		}}
	}
	msg := err.Error()
	if strings.HasPrefix(msg, "json: unknown field ") {
		field := strings.Trim(strings.TrimPrefix(msg, "json: unknown field "), `"`)
		return Errors{{Field: field, Message: fmt.Sprintf("%q is not allowed", field), Type: "unknown"}}
	}
	if errors.Is(err, io.EOF) {
		return Errors{{Field: "", Message: "request body is required", Type: "required"}}
	}
	return Errors{{Field: "", Message: "invalid request body", Type: "syntax"}}
}

func typeName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Bool:
		return "boolean"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Struct:
		if t.String() == "time.Time" {
			return "date"
		}
		return "object"
	default:
		return t.Kind().String()
	}
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%q is required", field)
	case "email":
		return fmt.Sprintf("%q must be a valid email", field)
	case "oneof":
		return fmt.Sprintf("%q must be one of [%s]", field, strings.Join(strings.Fields(fe.Param()), ", "))
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%q length must be at least %s characters long", field, fe.Param())
		}
		return fmt.Sprintf("%q must be greater than or equal to %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%q length must be less than or equal to %s characters long", field, fe.Param())
		}
		return fmt.Sprintf("%q must be less than or equal to %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%q must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%q must be greater than or equal to %s", field, fe.Param())
	default:
		return fmt.Sprintf("%q failed on the %s rule", field, fe.Tag())
	}
}
