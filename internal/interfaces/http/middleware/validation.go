package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/kotek/backend/internal/interfaces/http/dto"
)

// RequestIDContextKey is the gin context key set by the RequestID middleware
const RequestIDContextKey = "request_id"

// Algerian numbers: mobile 05/06/07 plus 8 digits, landline 0 plus region
// code, optionally with the +213 country prefix instead of the leading 0.
var dzPhonePattern = regexp.MustCompile(`^(\+213|0)[5-7][0-9]{8}$|^(\+213|0)[2-4][0-9]{7}$`)

// SetupValidator wires the domain validation tags into gin's binder.
// Must run once before the router starts accepting requests.
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}

	// report fields under their wire names, not Go struct names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})

	// wilaya: valid Algerian province code
	_ = v.RegisterValidation("wilaya", func(fl validator.FieldLevel) bool {
		w := fl.Field().Int()
		return w >= 1 && w <= 58
	})

	// phone_dz: phone number the carrier can actually dial
	_ = v.RegisterValidation("phone_dz", func(fl validator.FieldLevel) bool {
		return dzPhonePattern.MatchString(fl.Field().String())
	})
}

// FormatValidationErrors turns validator errors into the field-level
// response shape the storefront renders next to its form inputs
func FormatValidationErrors(err error, requestID string) dto.Response {
	var details []dto.ValidationDetail

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, e := range verrs {
			details = append(details, dto.ValidationDetail{
				Field:   e.Field(),
				Message: validationMessage(e),
			})
		}
	}

	return dto.NewValidationErrorResponse(
		"Request validation failed",
		requestID,
		details,
	)
}

// HandleValidationError writes a 400 with field-level details
func HandleValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, FormatValidationErrors(err, contextRequestID(c)))
}

func contextRequestID(c *gin.Context) string {
	if id := c.GetString(RequestIDContextKey); id != "" {
		return id
	}
	return c.GetHeader(requestIDHeader)
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "wilaya":
		return "Must be a wilaya code between 1 and 58"
	case "phone_dz":
		return "Must be a valid Algerian phone number"
	case "email":
		return "Invalid email format"
	case "uuid":
		return "Invalid UUID format"
	case "oneof":
		return "Must be one of: " + e.Param()
	case "min":
		if e.Type().Kind() == reflect.String {
			return "Must be at least " + e.Param() + " characters"
		}
		return "Must be at least " + e.Param()
	case "max":
		if e.Type().Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		return "Must be at most " + e.Param()
	case "gte":
		return "Must be greater than or equal to " + e.Param()
	case "lte":
		return "Must be less than or equal to " + e.Param()
	case "gt":
		return "Must be greater than " + e.Param()
	case "lt":
		return "Must be less than " + e.Param()
	default:
		return "Invalid value"
	}
}
