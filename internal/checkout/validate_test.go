package checkout

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validAddress() Address {
	return Address{
		FullName:   "John Doe",
		Email:      "john@example.com",
		Phone:      "9876543210",
		Address:    "12 MG Road",
		City:       "Bengaluru",
		PostalCode: "560001",
	}
}

func TestValidateField(t *testing.T) {
	t.Parallel()

	tests := []struct {
		field, value string
		wantErr      bool
	}{
		{"fullName", "John Doe", false},
		{"fullName", "J0hn", true},
		{"fullName", "", true},
		{"fullName", "Anne-Marie", true},
		{"phone", "9876543210", false},
		{"phone", "98765", true},
		{"phone", "98765432101", true},
		{"phone", "98765abcde", true},
		{"address", "12 MG", false},
		{"address", "12 M", true},
		{"address", "\U0001F3E0\U0001F3E0", true},
		{"address", "\U0001F3E0\U0001F3E0a", false},
		{"city", "New Delhi", false},
		{"city", "Delhi 6", true},
		{"postalCode", "560001", false},
		{"postalCode", "5600", true},
		{"postalCode", "56000a", true},
		{"country", "anything", false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.field+"="+tt.value, func(t *testing.T) {
			t.Parallel()
			msg := ValidateField(tt.field, tt.value)
			if tt.wantErr {
				assert.Equal(t, messages[tt.field], msg)
			} else {
				assert.Empty(t, msg)
			}
		})
	}
}

func TestValidate_Cumulative(t *testing.T) {
	t.Parallel()

	require.NoError(t, Validate(validAddress()))

	bad := validAddress()
	bad.FullName = "J0hn"
	bad.Phone = "98765"
	bad.PostalCode = "5600"
	err := Validate(bad)
	require.Error(t, err)

	var ve ValidationErrors
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, ValidationErrors{
		"fullName":   "Full name should contain only alphabets",
		"phone":      "Phone number must be exactly 10 digits",
		"postalCode": "Postal code must be exactly 6 digits",
	}, ve)
	assert.Contains(t, err.Error(), "phone: Phone number must be exactly 10 digits")
}

func TestShipping_DefaultsCountry(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "India", validAddress().shipping().Country)
	a := validAddress()
	a.Country = "Nepal"
	assert.Equal(t, "Nepal", a.shipping().Country)
}
