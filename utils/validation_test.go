package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePhone(t *testing.T) {
	for _, ok := range []string{"+1 (555) 123-0000", "+447946001800", "5551230000"} {
		assert.True(t, ValidatePhone(ok), ok)
	}
	for _, bad := range []string{"", "call me", "+0123456789", "12345", "+1 555 abc 0000"} {
		assert.False(t, ValidatePhone(bad), bad)
	}
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "+15551230000", NormalizePhone("+1 (555) 123-0000"))
	assert.Equal(t, "+5551230000", NormalizePhone(" 555-123-0000 "))
	assert.Equal(t, "", NormalizePhone("  "))
}
