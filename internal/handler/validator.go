package handler

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/accounts-api/internal/apperror"
	"github.com/sakif/accounts-api/internal/model"
)

// Validator wraps go-playground/validator with the API's custom rules.
//
// Request structs declare their shape with `validate` tags; Check turns a
// failure into a single ValidationError that lists EVERY failing field, so
// the client can fix a whole form in one round trip instead of replaying the
// request per field.
type Validator struct {
	validate *validator.Validate
}

// NewValidator builds the validator and registers the custom rules.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// "userpassword": the account password complexity policy. Registered as
	// a tag so request structs and the service share model.ValidatePassword
	// as the single source of the rule.
	_ = v.RegisterValidation("userpassword", func(fl validator.FieldLevel) bool {
		return model.ValidatePassword(fl.Field().String())
	})

	return &Validator{validate: v}
}

// Check validates a request struct. On failure it returns an
// apperror.ValidationFailed carrying one message per failing field.
func (v *Validator) Check(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperror.ValidationFailed(msgMissing)
	}

	fields := make([]string, 0, len(validationErrors))
	messages := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		field := jsonFieldName(fe.Field())
		fields = append(fields, field)
		messages = append(messages, fieldMessage(field, fe.Tag()))
	}

	return apperror.ValidationFailed(strings.Join(messages, " "), fields...)
}

// jsonFieldName lowercases the first rune of a struct field name, which for
// this API's request structs matches the JSON key (firstName, oauthToken...).
func jsonFieldName(name string) string {
	if name == "" {
		return name
	}
	return strings.ToLower(name[:1]) + name[1:]
}

// fieldMessage renders one failing field as a client-facing sentence.
func fieldMessage(field, tag string) string {
	switch tag {
	case "required":
		return fmt.Sprintf("The %s field is required.", field)
	case "email":
		return fmt.Sprintf("The %s field must be a valid email address.", field)
	case "oneof":
		return fmt.Sprintf("The %s field has an unsupported value.", field)
	case "userpassword":
		return "A valid password consists of at least 1 uppercase letter, 1 special character, 1 number, and is between 8 - 15 characters long."
	default:
		return fmt.Sprintf("The %s field is invalid.", field)
	}
}
