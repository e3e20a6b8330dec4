package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type FieldErrors map[string]string

// FromBindError turns a gin bind/validation error into field -> message,
// keyed by the json name of dst's fields.
func FromBindError(err error, dst any) FieldErrors {
	out := FieldErrors{}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			out[fieldKey(dst, fe.StructField())] = messageForTag(fe.Tag(), fe.Param())
		}
		return out
	}

	// malformed JSON, wrong types
	out["_"] = "Request body is invalid."
	return out
}

func fieldKey(dst any, structField string) string {
	t := reflect.TypeOf(dst)
	if t == nil {
		return lowerFirst(structField)
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return lowerFirst(structField)
	}
	f, ok := t.FieldByName(structField)
	if !ok {
		return lowerFirst(structField)
	}
	tag, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if tag == "" || tag == "-" {
		return lowerFirst(structField)
	}
	return tag
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func messageForTag(tag, param string) string {
	switch tag {
	case "required":
		return "This field is required."
	case "email":
		return "Must be a valid email address."
	case "min":
		return "Must be at least " + param + " characters."
	case "max":
		return "Must be at most " + param + " characters."
	case "len":
		return "Must be exactly " + param + " characters."
	case "uuid", "uuid4":
		return "Must be a valid id."
	case "url", "http_url":
		return "Must be a valid URL."
	case "excluded_with":
		return "Cannot be combined with " + param + "."
	default:
		return "Invalid value."
	}
}
