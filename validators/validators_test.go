package validators

import (
	"strings"
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailValidator(t *testing.T) {
	tests := []struct {
		in  string
		err error
	}{
		{"a@x.com", nil},
		{"", ErrEmailEmpty},
		{"not-an-email", ErrEmailInvalid},
		{"Bob <bob@x.com>", ErrEmailInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.err, EmailValidator(tt.in))
		})
	}

	assert.Equal(t, "a@x.com", NormalizeEmail("  A@X.com "))
}

func TestPasswordValidator(t *testing.T) {
	assert.Equal(t, ErrPasswordEmpty, PasswordValidator(""))
	assert.Equal(t, ErrPasswordTooShort, PasswordValidator("short"))
	assert.Equal(t, ErrPasswordTooLong, PasswordValidator(strings.Repeat("a", 256)))
	assert.NoError(t, PasswordValidator("Passw0rd!"))

	assert.Equal(t, ErrPasswordMismatch, PasswordPair("Passw0rd!", "Passw0rd?"))
	assert.NoError(t, PasswordPair("Passw0rd!", "Passw0rd!"))
}

func TestTokenValidator(t *testing.T) {
	assert.NoError(t, TokenValidator(strings.Repeat("ab", 32)))
	assert.Error(t, TokenValidator(strings.Repeat("AB", 32)))
	assert.Error(t, TokenValidator(strings.Repeat("a", 63)))
	assert.Error(t, TokenValidator(strings.Repeat("g", 64)))
}

func TestAPINameValidator(t *testing.T) {
	assert.NoError(t, APINameValidator("Api-travel"))
	assert.Equal(t, ErrAPINameUnsupported, APINameValidator("Api-unknown"))

	viper.Set("apikeys.supported", []string{"Api-unknown"})
	defer viper.Set("apikeys.supported", nil)

	assert.NoError(t, APINameValidator("Api-unknown"))
	assert.Error(t, APINameValidator("Api-travel"))
}

type sample struct {
	Email   string `json:"email" binding:"required,email"`
	APIName string `json:"apiName" binding:"required,apiname"`
	Token   string `json:"token" binding:"token"`
}

func TestFromBinding(t *testing.T) {
	require.NoError(t, Register())

	err := binding.Validator.ValidateStruct(&sample{Email: "nope", APIName: "Api-x", Token: "123"})
	require.Error(t, err)

	v, ok := FromBinding(err)
	require.True(t, ok)
	assert.Equal(t, Violations{
		"email":   ErrEmailInvalid.Error(),
		"apiName": ErrAPINameUnsupported.Error(),
		"token":   ErrTokenInvalid.Error(),
	}, v)

	_, ok = FromBinding(assert.AnError)
	assert.False(t, ok)
}

func TestViolations(t *testing.T) {
	v := Violations{}
	v.Check("a", nil)
	assert.True(t, v.Empty())

	v.Check("b", ErrPasswordEmpty)
	assert.Equal(t, Violations{"b": ErrPasswordEmpty.Error()}, v)
}
