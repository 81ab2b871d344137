package version

import (
	"testing"

	"github.com/rxtech-lab/argo-futures/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckConfigCompatibility(t *testing.T) {
	tests := []struct {
		name          string
		binaryVersion string
		configVersion string
		expectCode    errors.ErrorCode
		errorContains string
	}{
		{name: "exact match", binaryVersion: "0.4.0", configVersion: "0.4.0"},
		{name: "config patch higher", binaryVersion: "0.4.0", configVersion: "0.4.3"},
		{name: "binary patch higher", binaryVersion: "0.4.7", configVersion: "0.4.0"},
		{name: "v prefix on both", binaryVersion: "v0.4.0", configVersion: "v0.4.1"},
		{name: "prerelease binary", binaryVersion: "0.4.0-rc.1", configVersion: "0.4.0"},
		{name: "binary is main", binaryVersion: "main", configVersion: "9.9.9"},
		{name: "config is main", binaryVersion: "0.4.0", configVersion: "main"},
		{name: "empty config version", binaryVersion: "0.4.0", configVersion: ""},
		{
			name:          "minor differs",
			binaryVersion: "0.5.0",
			configVersion: "0.4.0",
			expectCode:    errors.ErrCodeVersionMismatch,
			errorContains: "minor version mismatch",
		},
		{
			name:          "major differs",
			binaryVersion: "1.0.0",
			configVersion: "0.4.0",
			expectCode:    errors.ErrCodeVersionMismatch,
			errorContains: "major version mismatch",
		},
		{
			name:          "invalid binary version",
			binaryVersion: "not-a-version",
			configVersion: "0.4.0",
			expectCode:    errors.ErrCodeInvalidVersion,
			errorContains: "invalid binary version",
		},
		{
			name:          "invalid config version",
			binaryVersion: "0.4.0",
			configVersion: "four",
			expectCode:    errors.ErrCodeInvalidVersion,
			errorContains: "invalid config version",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckConfigCompatibility(tt.binaryVersion, tt.configVersion)

			if tt.expectCode == 0 {
				require.NoError(t, err)

				return
			}

			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.expectCode))
			assert.Contains(t, err.Error(), tt.errorContains)
		})
	}
}

func TestGetVersion(t *testing.T) {
	assert.Equal(t, Version, GetVersion())
}
