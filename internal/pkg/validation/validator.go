package validation

import (
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// StructValidator is the process-wide validator instance.
var StructValidator = validator.New(validator.WithRequiredStructEnabled())

// ErrorResponse describes one failed validation rule.
type ErrorResponse struct {
	FailedField string `json:"failed_field"`
	Tag         string `json:"tag"`
	Value       string `json:"value"`
	Message     string `json:"message"`
}

// ValidateStruct validates payload and returns nil on success.
func ValidateStruct(payload interface{}) []*ErrorResponse {
	var errs []*ErrorResponse
	if err := StructValidator.Struct(payload); err != nil {
		for _, fe := range err.(validator.ValidationErrors) {
			errs = append(errs, &ErrorResponse{
				FailedField: fe.StructNamespace(),
				Tag:         fe.Tag(),
				Value:       fmt.Sprintf("%v", fe.Value()),
				Message:     validationMessage(fe),
			})
		}
	}
	return errs
}

func validationMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", field)
	case "oneof":
		return fmt.Sprintf("The %s field must be one of: %s.", field, fe.Param())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("The %s field must have at least %s characters.", field, fe.Param())
		}
		return fmt.Sprintf("The %s field must be at least %s.", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("The %s field must have at most %s characters.", field, fe.Param())
		}
		return fmt.Sprintf("The %s field must be at most %s.", field, fe.Param())
	default:
		return fmt.Sprintf("The %s field is not valid (tag: %s).", field, fe.Tag())
	}
}

// ParseQueryAndValidate binds query parameters into payload and validates
// them, writing the error response itself on failure.
func ParseQueryAndValidate(c *fiber.Ctx, payload interface{}) bool {
	if err := c.QueryParser(payload); err != nil {
		c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Invalid query parameters",
			"details": err.Error(),
		})
		return false
	}
	return respondValidation(c, payload)
}

// ParseAndValidate binds the request body into payload and validates it.
func ParseAndValidate(c *fiber.Ctx, payload interface{}) bool {
	if err := c.BodyParser(payload); err != nil {
		c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return false
	}
	return respondValidation(c, payload)
}

func respondValidation(c *fiber.Ctx, payload interface{}) bool {
	if errs := ValidateStruct(payload); errs != nil {
		c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Validation failed",
			"details": errs,
		})
		return false
	}
	return true
}
