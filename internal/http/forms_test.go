package http

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateLoginForm(t *testing.T) {
	assert.Nil(t, validateForm(loginForm{Email: "ada@example.com", Password: "secret"}))

	errs := validateForm(loginForm{Email: "ada@example.com"})
	require.NotNil(t, errs)
	assert.Equal(t, "password is required", errs["password"])
	assert.False(t, errs.Has("email"))

	errs = validateForm(loginForm{Email: "not-an-email", Password: "x"})
	require.NotNil(t, errs)
	assert.Equal(t, "Enter a valid email address", errs.First("email", "password"))
}

func TestValidateTransactionForm(t *testing.T) {
	tests := []struct {
		name  string
		form  transactionForm
		field string
		want  string
	}{
		{
			name: "valid",
			form: transactionForm{Date: "2024-03-15", Amount: "-42.50"},
		},
		{
			name:  "date format",
			form:  transactionForm{Date: "15/03/2024", Amount: "1"},
			field: "date",
			want:  "Enter a date as YYYY-MM-DD",
		},
		{
			name:  "missing amount",
			form:  transactionForm{Date: "2024-03-15"},
			field: "amount",
			want:  "amount is required",
		},
		{
			name:  "amount not numeric",
			form:  transactionForm{Date: "2024-03-15", Amount: "12abc"},
			field: "amount",
			want:  "Enter a valid amount",
		},
		{
			name:  "description too long",
			form:  transactionForm{Date: "2024-03-15", Amount: "1", Description: strings.Repeat("x", 501)},
			field: "description",
			want:  "description must be at most 500 characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := validateForm(tt.form)
			if tt.field == "" {
				assert.Nil(t, errs)
				return
			}
			require.NotNil(t, errs)
			assert.Equal(t, tt.want, errs[tt.field])
		})
	}
}

func TestValidateStatusForm(t *testing.T) {
	assert.Nil(t, validateForm(statusForm{Status: "reviewed"}))

	errs := validateForm(statusForm{Status: "archived"})
	require.NotNil(t, errs)
	assert.Equal(t, "Unknown status", errs.First("status"))

	errs = validateForm(statusForm{})
	require.NotNil(t, errs)
	assert.Equal(t, "status is required", errs.First("status"))
}

func TestFormErrorsError(t *testing.T) {
	err := formErrors{"date": "Enter a date as YYYY-MM-DD"}
	assert.Equal(t, "invalid form: date: Enter a date as YYYY-MM-DD", err.Error())
}
