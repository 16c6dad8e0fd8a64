package validators

import (
	"errors"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Violations maps a field name to what is wrong with it
type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Check records err under field when it is not nil
func (v Violations) Check(field string, err error) {
	if err != nil {
		v[field] = err.Error()
	}
}

// Register installs the custom binding tags "token" and "apiname" on gin's
// validator engine. Safe to call more than once.
func Register() error {
	engine, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected binding validator engine")
	}

	// Report fields by their JSON names
	engine.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	err := engine.RegisterValidation("token", func(fl validator.FieldLevel) bool {
		return TokenValidator(fl.Field().String()) == nil
	})
	if err != nil {
		return err
	}

	return engine.RegisterValidation("apiname", func(fl validator.FieldLevel) bool {
		return APINameValidator(fl.Field().String()) == nil
	})
}

// FromBinding turns a gin binding error into per-field messages. ok is false
// when err is not a validation failure, e.g. malformed JSON.
func FromBinding(err error) (v Violations, ok bool) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, false
	}

	v = Violations{}
	for _, fe := range verrs {
		v[lowerFirst(fe.Field())] = message(fe)
	}

	return v, true
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "email":
		return ErrEmailInvalid.Error()
	case "token":
		return ErrTokenInvalid.Error()
	case "apiname":
		return ErrAPINameUnsupported.Error()
	case "min", "max":
		return "must be " + fe.Tag() + " " + fe.Param() + " characters"
	default:
		return "invalid value"
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
