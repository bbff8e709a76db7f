package http

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"kern/internal/api"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report errors under the form field name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("txstatus", func(fl validator.FieldLevel) bool {
		return api.TransactionStatus(fl.Field().String()).Valid()
	})

	return v
}

type loginForm struct {
	Email    string `form:"email" validate:"required,email,max=254"`
	Password string `form:"password" validate:"required"`
}

type transactionForm struct {
	Date          string `form:"date" validate:"required,datetime=2006-01-02"`
	Amount        string `form:"amount" validate:"required,numeric"`
	Description   string `form:"description" validate:"max=500"`
	Merchant      string `form:"merchant" validate:"max=200"`
	PaymentMethod string `form:"payment_method" validate:"max=100"`
	Notes         string `form:"notes" validate:"max=2000"`
}

type statusForm struct {
	Status string `form:"status" validate:"required,txstatus"`
}

// formErrors maps a form field to a user-facing message.
type formErrors map[string]string

func (e formErrors) Error() string {
	parts := make([]string, 0, len(e))
	for field, msg := range e {
		parts = append(parts, field+": "+msg)
	}
	return "invalid form: " + strings.Join(parts, ", ")
}

// Has reports whether field failed validation.
func (e formErrors) Has(field string) bool {
	_, ok := e[field]
	return ok
}

// First returns the message of the first failing field in order.
func (e formErrors) First(fields ...string) string {
	for _, f := range fields {
		if msg, ok := e[f]; ok {
			return msg
		}
	}
	return ""
}

// validateForm returns nil when form passes its validate tags.
func validateForm(form any) formErrors {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return formErrors{"": err.Error()}
	}
	out := make(formErrors, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fieldMessage(fe)
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "Enter a valid email address"
	case "datetime":
		return "Enter a date as YYYY-MM-DD"
	case "numeric":
		return "Enter a valid amount"
	case "txstatus":
		return "Unknown status"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
