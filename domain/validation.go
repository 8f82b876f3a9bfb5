package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// PayloadField names the whole inbound frame when it cannot be decoded.
const PayloadField = "payload"

var (
	userNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_\- ]*$`)
	validate        = newValidator()
)

// ValidationError is the single, field-level reason a payload was refused.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their wire name so notices match what clients sent.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return userNamePattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// ParseChatMessage decodes a raw inbound frame and validates it.
// The frame is either a JSON object or a JSON string holding that object.
func ParseChatMessage(raw []byte) (ChatMessage, error) {
	payload := bytes.TrimSpace(raw)
	if len(payload) > 0 && payload[0] == '"' {
		var inner string
		if err := json.Unmarshal(payload, &inner); err != nil {
			return ChatMessage{}, ValidationError{Field: PayloadField, Message: err.Error()}
		}
		payload = []byte(inner)
	}

	var message ChatMessage
	if err := json.Unmarshal(payload, &message); err != nil {
		return ChatMessage{}, ValidationError{Field: PayloadField, Message: err.Error()}
	}
	if err := ValidateChatMessage(message); err != nil {
		return ChatMessage{}, err
	}
	return message, nil
}

// ValidateChatMessage checks the field constraints. The first violated
// constraint, in field order, is the only one reported.
func ValidateChatMessage(message ChatMessage) error {
	err := validate.Struct(message)
	if err == nil {
		return nil
	}
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return ValidationError{Field: PayloadField, Message: err.Error()}
	}
	first := fieldErrors[0]
	return ValidationError{Field: first.Field(), Message: describe(first)}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s %s", fe.Field(), fe.Param(), characters(fe.Param()))
	case "max":
		return fmt.Sprintf("%s must be at most %s %s", fe.Field(), fe.Param(), characters(fe.Param()))
	case "username":
		return fmt.Sprintf("%s must start with a letter and contain only letters, digits, dashes, underscores or spaces", fe.Field())
	default:
		return fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag())
	}
}

func characters(n string) string {
	if n == "1" {
		return "character"
	}
	return "characters"
}
