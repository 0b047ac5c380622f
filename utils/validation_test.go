package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhoneRuleValidate(t *testing.T) {
	rule := PhoneRule{Prefix: "+380", Length: 13}

	tests := []struct {
		name    string
		phone   string
		wantErr bool
	}{
		{"valid number", "+380501234567", false},
		{"empty", "", true},
		{"missing prefix", "0501234567", true},
		{"wrong country", "+490501234567", true},
		{"too short", "+38050123456", true},
		{"too long", "+3805012345678", true},
		{"letters after prefix", "+38050123456a", true},
		{"space after prefix", "+38050 123456", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := rule.Validate(tt.phone)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsValidationError(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPhoneRuleOtherPrefix(t *testing.T) {
	rule := PhoneRule{Prefix: "+48", Length: 12}
	assert.NoError(t, rule.Validate("+48501234567"))
	assert.Error(t, rule.Validate("+380501234567"))
}

func TestValidateEmail(t *testing.T) {
	ok, _ := ValidateEmail("user@example.com")
	assert.True(t, ok)

	for _, email := range []string{"", "not-an-email", "user@", "@example.com"} {
		ok, msg := ValidateEmail(email)
		assert.False(t, ok, email)
		assert.NotEmpty(t, msg)
	}
}

func TestValidateSKU(t *testing.T) {
	ok, _ := ValidateSKU("TV-001_a")
	assert.True(t, ok)

	for _, sku := range []string{"", "has space", "bad/char"} {
		ok, _ := ValidateSKU(sku)
		assert.False(t, ok, sku)
	}
}
