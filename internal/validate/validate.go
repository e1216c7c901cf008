// Package validate checks relay request bodies: a byte ceiling first, then
// the endpoint's shape.
package validate

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

const (
	// DefaultMaxBytes bounds AI endpoint bodies.
	DefaultMaxBytes = 30000
	// SearchMaxBytes bounds the search-ingest body.
	SearchMaxBytes = 20000
)

var (
	ErrPayloadTooLarge = errors.New("payload too large")
	ErrInvalidInput    = errors.New("invalid input")
)

// Error carries the outcome kind and a readable diagnostic.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func tooLarge(limit int64) *Error {
	return &Error{Kind: ErrPayloadTooLarge, Message: fmt.Sprintf("Payload exceeds %dKB", limit/1000)}
}

func invalid(format string, args ...any) *Error {
	return &Error{Kind: ErrInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// Validator is safe for concurrent use.
type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return &Validator{v: v}
}

// ReadLimited reads at most limit bytes from r. Bodies longer than limit are
// rejected without reading the remainder.
func ReadLimited(r io.Reader, limit int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, invalid("unable to read request body")
	}
	if int64(len(body)) > limit {
		return nil, tooLarge(limit)
	}
	return body, nil
}

// Decode enforces the ceiling and then decodes and validates body into dst.
func (v *Validator) Decode(r io.Reader, limit int64, dst any) error {
	body, err := ReadLimited(r, limit)
	if err != nil {
		return err
	}
	return v.DecodeBytes(body, dst)
}

// DecodeBytes validates an already size-checked body.
func (v *Validator) DecodeBytes(body []byte, dst any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return invalid("request body is empty")
	}

	if err := json.Unmarshal(body, dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return invalid("%s: expected %s, received %s", typeErr.Field, typeErr.Type.Kind(), typeErr.Value)
		}
		return invalid("request body must be a JSON object")
	}

	if err := v.v.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return invalid("%s", describe(verrs))
		}
		return invalid("%s", err.Error())
	}

	return nil
}

func describe(verrs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldPath(fe)+": "+reason(fe))
	}
	return strings.Join(msgs, "; ")
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at most %s items", fe.Param())
		}
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s items", fe.Param())
		}
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}
