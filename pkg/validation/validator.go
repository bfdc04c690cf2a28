package validation

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// passwordSymbols is the fixed set of symbols a password may (and must) contain.
const passwordSymbols = "@$!%*?&"

// strongPassword enforces the registration password rule: at least one
// uppercase letter, one lowercase letter, one digit and one symbol from the
// allowed set, with no characters outside letters, digits and that set.
func strongPassword(fl validator.FieldLevel) bool {
	pwd := fl.Field().String()
	var upper, lower, digit, symbol bool
	for _, r := range pwd {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSymbols, r):
			symbol = true
		default:
			return false
		}
	}
	return upper && lower && digit && symbol
}

// Init configures the global validator used by Gin's binding.
// - Uses JSON tag names in errors.
// - Registers the strongpwd rule used by registration and password changes.
func Init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("strongpwd", strongPassword)
	}
}

// FieldError is a single failed validation rule, reported for the first
// failing field in declaration order.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *FieldError) Error() string {
	return e.Field + " " + e.Message
}

// RegisterInput carries registration fields. String fields are trimmed by
// Normalize before the rules run.
type RegisterInput struct {
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Username string `json:"userName" binding:"required,alphanum,min=3,max=16"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=255,strongpwd"`
}

// Normalize trims all string fields in place.
func (in *RegisterInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
}

var std = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.SetTagName("binding")
	_ = v.RegisterValidation("strongpwd", strongPassword)
	return v
}()

// ValidateRegister normalizes in and checks it against the registration
// rules. Only the first failing rule is reported.
func ValidateRegister(in *RegisterInput) *FieldError {
	in.Normalize()
	if err := std.Struct(in); err != nil {
		return First(err)
	}
	return nil
}

// First converts a validation error into the single FieldError for the first
// failing field in declaration order.
func First(err error) *FieldError {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &FieldError{Field: fe.Field(), Message: messageFor(fe)}
	}
	var se *json.SyntaxError
	var ute *json.UnmarshalTypeError
	if errors.As(err, &se) || errors.As(err, &ute) {
		return &FieldError{Field: "payload", Message: "invalid json"}
	}
	return &FieldError{Field: "payload", Message: "invalid payload"}
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param() + " characters long"
	case "max":
		return "must be at most " + fe.Param() + " characters long"
	case "alphanum":
		return "must contain alphanumeric characters only"
	case "email":
		return "must be a valid email address"
	case "strongpwd":
		return "must contain at least one uppercase letter, one lowercase letter, one number and one special character"
	default:
		return "is invalid"
	}
}
