package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/lifeloop/lifeloop/pkg/errors"
	appValidator "github.com/lifeloop/lifeloop/pkg/validator"
)

// fieldMessages overrides the generated message for a field/tag pair.
type fieldMessages map[string]map[string]*appErrors.AppError

// bindFormAndValidate binds a urlencoded, multipart or JSON body into dest and
// runs struct validation. The first failing field, in declaration order,
// decides the error. When binding or validation fails an error response is
// written and false is returned.
func bindFormAndValidate[T any](c *gin.Context, dest *T, overrides fieldMessages, normalize func(*T)) bool {
	if err := c.ShouldBind(dest); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(c, errUploadTooLarge)
			return false
		}
		writeError(c, appErrors.NewInvalidInput("Invalid form payload."))
		return false
	}

	if normalize != nil {
		normalize(dest)
	}

	if err := appValidator.ValidateStruct(dest); err != nil {
		writeError(c, validationError(err, overrides))
		return false
	}

	return true
}

func validationError(err error, overrides fieldMessages) *appErrors.AppError {
	var ve appValidator.ValidationErrors
	if errors.As(err, &ve) {
		if first, ok := ve.First(); ok {
			if byTag, ok := overrides[first.Field]; ok {
				if appErr, ok := byTag[first.Tag]; ok {
					return appErr
				}
			}
		}
	}
	return appErrors.NewInvalidInput(formatValidationError(err))
}

func formatValidationError(err error) string {
	if err == nil {
		return "invalid request payload"
	}

	var ve appValidator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return "invalid request payload"
	}

	failure := ve[0]
	field := prettifyFieldName(failure.Field)
	switch failure.Tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, failure.Param)
	default:
		if failure.Param != "" {
			return fmt.Sprintf("%s failed validation: %s=%s", field, failure.Tag, failure.Param)
		}
		return fmt.Sprintf("%s failed validation: %s", field, failure.Tag)
	}
}

// prettifyFieldName turns camelCase form names into lower case words.
func prettifyFieldName(name string) string {
	if name == "" {
		return "field"
	}
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte(' ')
			}
			r += 'a' - 'A'
		}
		if r == '_' {
			r = ' '
		}
		b.WriteRune(r)
	}
	return b.String()
}
