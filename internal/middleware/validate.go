package middleware

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/bilgisen/illustrate/internal/errs"
)

// Validator wraps a shared validator instance.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

// Validate checks s against its struct tags. Failures are ErrValidation
// listing each failing field and tag.
func (v *Validator) Validate(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate: %w", err)
	}

	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", strings.ToLower(fe.Field()), fe.Tag()))
	}
	sort.Strings(fields)
	return errs.Validation("invalid fields: %s", strings.Join(fields, ", "))
}

// BindBody parses the JSON body into dst and validates it.
func (v *Validator) BindBody(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return errs.Validation("invalid request body: %v", err)
	}
	return v.Validate(dst)
}

// BindQuery parses query parameters into dst and validates it.
func (v *Validator) BindQuery(c *fiber.Ctx, dst interface{}) error {
	if err := c.QueryParser(dst); err != nil {
		return errs.Validation("invalid query parameters: %v", err)
	}
	return v.Validate(dst)
}
