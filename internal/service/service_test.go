package service

import (
	"context"
	"testing"
	"time"

	"bitwise74/account-api/internal/model"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestLinks(t *testing.T) {
	viper.Set("host.domain", "example.com")
	viper.Set("host.ssl.enabled", true)
	defer viper.Set("host.ssl.enabled", false)

	l := NewLinks()
	assert.Equal(t, "https://example.com/api", l.Base)
	assert.Equal(t, "https://example.com/api/users/activationAccount/abc", l.Activation("abc"))
	assert.Equal(t, "https://example.com/api/users/resetPassword/abc", l.PasswordReset("abc"))
	assert.Equal(t, "https://example.com/api/users/resetEmail/abc", l.EmailReset("abc"))
	assert.Equal(t, "https://example.com/api/apiKeys/confirmRenewal/abc", l.Renewal("abc"))
}

func TestMailEscapesNames(t *testing.T) {
	u := &model.User{Firstname: "<b>", Lastname: "x", Email: "a@x.com"}

	m := WelcomeMail(u)
	assert.Equal(t, []string{"a@x.com"}, m.To)
	assert.NotContains(t, m.Body, "<b>")
	assert.Contains(t, m.Body, "&lt;b&gt;")
}

func TestSMTPMailerRejects(t *testing.T) {
	m := NewSMTPMailer("localhost", 25, "noreply@x.com", "", time.Second)

	assert.ErrorIs(t, m.Send(context.Background(), &Mail{}), ErrNoRecipients)
}
