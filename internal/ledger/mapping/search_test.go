package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSearch(t *testing.T) {
	assert.Equal(t, "abc123", NormalizeSearch("  ABC-123 "))
	assert.Equal(t, "relay24vdc", NormalizeSearch("Relay, 24 VDC!"))
	assert.Equal(t, "", NormalizeSearch("--/ /--"))
}

func TestCheckGTIN(t *testing.T) {
	tests := []struct {
		code       string
		applicable bool
		valid      bool
	}{
		{"4006381333931", true, true},
		{"4006381333932", true, false},
		{"036000291452", true, true},
		{"96385074", true, true},
		{"P-100", false, false},
		{"12345", false, false},
		{"40063813339A1", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			applicable, valid := CheckGTIN(tt.code)
			assert.Equal(t, tt.applicable, applicable)
			assert.Equal(t, tt.valid, valid)
		})
	}
}
