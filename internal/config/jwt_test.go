package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJWTConfig_DefaultValues(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-key")
	t.Setenv("JWT_EXPIRATION_HOURS", "")

	cfg, err := NewJWTConfig()
	require.NoError(t, err)
	assert.Equal(t, "test-secret-key", cfg.Secret)
	assert.Equal(t, 24, cfg.ExpirationHours, "should use default expiration of 24 hours")
	assert.Equal(t, DefaultJWTIssuer, cfg.Issuer)
}

func TestNewJWTConfig_Expiration(t *testing.T) {
	tests := []struct {
		name          string
		expiration    string
		expectedHours int
		wantErr       bool
	}{
		{"custom 12 hours", "12", 12, false},
		{"minimum 1 hour", "1", 1, false},
		{"one week", "168", 168, false},
		{"non-numeric", "invalid", 0, true},
		{"zero", "0", 0, true},
		{"negative", "-1", 0, true},
		{"float", "12.5", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "test-secret-key")
			t.Setenv("JWT_EXPIRATION_HOURS", tt.expiration)

			cfg, err := NewJWTConfig()
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, cfg)
				assert.Contains(t, err.Error(), "JWT_EXPIRATION_HOURS")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedHours, cfg.ExpirationHours)
		})
	}
}

func TestNewJWTConfig_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	cfg, err := NewJWTConfig()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestOptionalJWTConfig(t *testing.T) {
	t.Run("unset disables auth", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		cfg, err := OptionalJWTConfig()
		require.NoError(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("set enables auth", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "s3cret")
		t.Setenv("JWT_EXPIRATION_HOURS", "2")
		cfg, err := OptionalJWTConfig()
		require.NoError(t, err)
		require.NotNil(t, cfg)
		assert.Equal(t, 2, cfg.ExpirationHours)
	})

	t.Run("set but invalid still errors", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "s3cret")
		t.Setenv("JWT_EXPIRATION_HOURS", "soon")
		_, err := OptionalJWTConfig()
		assert.Error(t, err)
	})
}
