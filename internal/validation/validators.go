package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/benvon/smart-snippets/internal/apperror"
	"github.com/benvon/smart-snippets/internal/models"
	"github.com/go-playground/validator/v10"
)

const (
	// MaxTitleLength is the maximum length for a snippet title
	MaxTitleLength = 200
	// MaxCodeLength is the maximum length for a snippet body
	MaxCodeLength = 100000
	// MaxTags is the maximum number of tags on one snippet
	MaxTags = 50
	// MaxTagLength is the maximum length of a single tag
	MaxTagLength = 64
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Report json names so field errors line up with the request body
	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	if err := Validate.RegisterValidation("snippet_language", validateLanguage); err != nil {
		panic(fmt.Sprintf("failed to register snippet_language validator: %v", err))
	}
	if err := Validate.RegisterValidation("snippet_tag", validateTag); err != nil {
		panic(fmt.Sprintf("failed to register snippet_tag validator: %v", err))
	}
}

// validateLanguage validates that a string is one of the supported languages
func validateLanguage(fl validator.FieldLevel) bool {
	return models.Language(fl.Field().String()).Valid()
}

func validateTag(fl validator.FieldLevel) bool {
	tag := fl.Field().String()
	if strings.TrimSpace(tag) == "" || len(tag) > MaxTagLength {
		return false
	}
	for _, r := range tag {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}

// Struct validates v and converts any failures into a validation AppError
// listing every offending field.
func Struct(v any) error {
	err := Validate.Struct(v)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return apperror.ValidationFailed("", err.Error())
	}
	fields := make([]apperror.FieldError, 0, len(validationErrors))
	for _, fe := range validationErrors {
		fields = append(fields, apperror.FieldError{
			Field:   fieldPath(fe),
			Message: describe(fe),
		})
	}
	return apperror.Validation(fields...)
}

// fieldPath drops the top-level struct name from the namespace
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "snippet_language":
		return fmt.Sprintf("must be one of %s", languageList())
	case "snippet_tag":
		return fmt.Sprintf("must be non-empty, at most %d characters, without control characters", MaxTagLength)
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

func languageList() string {
	names := make([]string, len(models.Languages))
	for i, l := range models.Languages {
		names[i] = string(l)
	}
	return strings.Join(names, ", ")
}

// ValidateLanguage validates a language string value, e.g. from a query parameter
func ValidateLanguage(value string) error {
	if !models.Language(value).Valid() {
		return apperror.ValidationFailed("language", fmt.Sprintf("invalid language %q: must be one of %s", value, languageList()))
	}
	return nil
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	// Remove control characters except newline and tab
	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// SanitizeCode strips control characters other than newline, carriage return
// and tab. Leading and trailing whitespace is significant in code and kept.
func SanitizeCode(code string) string {
	var sanitized strings.Builder
	sanitized.Grow(len(code))
	for _, r := range code {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}
	return sanitized.String()
}

// SanitizeTags removes control characters, collapses inner whitespace and
// drops entries left blank. A nil input stays nil so "tags not supplied"
// survives sanitisation.
func SanitizeTags(tags models.Tags) models.Tags {
	if tags == nil {
		return nil
	}
	out := make(models.Tags, 0, len(tags))
	for _, tag := range tags {
		tag = strings.Join(strings.Fields(SanitizeText(tag)), " ")
		if tag != "" {
			out = append(out, tag)
		}
	}
	return out
}
