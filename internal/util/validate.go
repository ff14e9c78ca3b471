package util

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct checks the validate tags of v and returns the failing
// fields keyed by their lower-cased path, e.g. "address.zip" or "sizes[0].name".
// A nil map means v is valid.
func ValidateStruct(v interface{}) (map[string]string, error) {
	err := validate.Struct(v)
	if err == nil {
		return nil, nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil, err
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldPath(fe)] = describeFieldError(fe)
	}
	return fields, nil
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.StructNamespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	return strings.ToLower(ns)
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "hexcolor":
		return "must be a hex color"
	}
	return "is invalid"
}
