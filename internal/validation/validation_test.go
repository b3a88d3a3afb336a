package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateTemplateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "python-dev", false},
		{"with underscores", "c_cpp_env", false},
		{"alphanumeric", "node22", false},
		{"empty", "", true},
		{"path traversal", "../etc", true},
		{"embedded slash", "foo/bar", true},
		{"whitespace", "my template", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTemplateName(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateSystem(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"x86_64 linux", "x86_64-linux", false},
		{"aarch64 darwin", "aarch64-darwin", false},
		{"empty", "", true},
		{"missing os", "x86_64", true},
		{"uppercase", "X86_64-Linux", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSystem(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
