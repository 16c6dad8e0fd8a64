package config

import (
	"testing"

	v "github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func valid() {
	v.Reset()
	Defaults()
	v.Set("secrets.values.jwt", genSecret())
	v.Set("secrets.values.api_key", genSecret())
	v.Set("mail.host", "smtp.example.com")
	v.Set("mail.sender", "noreply@example.com")
}

func TestValidate(t *testing.T) {
	t.Cleanup(v.Reset)

	valid()
	assert.NoError(t, Validate())

	tests := []struct {
		name  string
		key   string
		value any
		msg   string
	}{
		{"log level", "app.log_level", "loud", "invalid log level"},
		{"env", "app.env", "staging", "app.env"},
		{"port", "host.port", 0, "invalid port"},
		{"ssl without cert", "host.ssl.enabled", true, "certificate path"},
		{"driver", "database.driver", "oracle", "invalid database driver"},
		{"uri", "database.uri", "", "database.uri"},
		{"jwt secret", "secrets.values.jwt", "", "secrets.values.jwt"},
		{"provider", "secrets.provider", "vault", "invalid secrets provider"},
		{"aws region", "secrets.provider", "aws", "secrets.aws.region"},
		{"mail host", "mail.host", "", "mail.host"},
		{"mail sender", "mail.sender", "", "mail.sender"},
		{"api names", "apikeys.supported", []string{}, "apikeys.supported"},
		{"cleanup", "cleanup.interval", "0s", "cleanup.interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid()
			v.Set(tt.key, tt.value)

			err := Validate()
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.msg)
			}
		})
	}
}

func TestGenSecret(t *testing.T) {
	a, b := genSecret(), genSecret()
	assert.Len(t, a, 128)
	assert.NotEqual(t, a, b)
}
