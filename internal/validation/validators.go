package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/benvon/insight-coach/internal/models"
	"github.com/go-playground/validator/v10"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	if err := Validate.RegisterValidation("chat_role", validateChatRole); err != nil {
		panic(fmt.Sprintf("failed to register chat_role validator: %v", err))
	}
	if err := Validate.RegisterValidation("feedback_rating", validateFeedbackRating); err != nil {
		panic(fmt.Sprintf("failed to register feedback_rating validator: %v", err))
	}
}

func validateChatRole(fl validator.FieldLevel) bool {
	switch models.ChatRole(fl.Field().String()) {
	case models.ChatRoleUser, models.ChatRoleAssistant:
		return true
	default:
		return false
	}
}

func validateFeedbackRating(fl validator.FieldLevel) bool {
	switch models.FeedbackRating(fl.Field().String()) {
	case models.FeedbackPositive, models.FeedbackNegative:
		return true
	default:
		return false
	}
}

// SanitizeText trims whitespace and removes control characters other than
// newline and tab
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// InsightRequest sanitizes the free-text fields of req in place and validates
// it. The returned error message is safe to show to a client.
func InsightRequest(req *models.InsightRequest) error {
	req.UserID = SanitizeText(req.UserID)
	req.Question = SanitizeText(req.Question)
	req.Lens = strings.ToLower(SanitizeText(req.Lens))
	req.Timezone = strings.TrimSpace(req.Timezone)

	if err := Validate.Struct(req); err != nil {
		return errors.New(Describe(err))
	}
	return nil
}

// Describe turns a validator error into a short client-facing sentence
// naming the first failing field.
func Describe(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return "Validation failed"
	}

	fe := validationErrors[0]
	field := jsonFieldName(fe.Namespace())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s exceeds maximum length of %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "chat_role":
		return fmt.Sprintf("%s must be 'user' or 'assistant'", field)
	case "feedback_rating":
		return fmt.Sprintf("%s must be 'positive' or 'negative'", field)
	case "timezone":
		return fmt.Sprintf("%s is not a known time zone", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// jsonFieldName converts "InsightRequest.ChatHistory[0].Role" to
// "chatHistory[0].role".
func jsonFieldName(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		switch {
		case strings.HasPrefix(p, "UserID"):
			parts[i] = "userId" + strings.TrimPrefix(p, "UserID")
		case p != "":
			parts[i] = strings.ToLower(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, ".")
}
