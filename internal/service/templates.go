package service

import (
	"fmt"
	"html"

	"bitwise74/account-api/internal/model"

	"github.com/spf13/viper"
)

// Links builds the URLs embedded in outgoing mail
type Links struct {
	Base string
}

func NewLinks() *Links {
	var s string
	if viper.GetBool("host.ssl.enabled") {
		s = "s"
	}

	return &Links{Base: fmt.Sprintf("http%v://%v/api", s, viper.GetString("host.domain"))}
}

func (l *Links) Activation(token string) string {
	return l.Base + "/users/activationAccount/" + token
}

func (l *Links) PasswordReset(token string) string {
	return l.Base + "/users/resetPassword/" + token
}

func (l *Links) EmailReset(token string) string {
	return l.Base + "/users/resetEmail/" + token
}

func (l *Links) Renewal(token string) string {
	return l.Base + "/apiKeys/confirmRenewal/" + token
}

func greet(u *model.User) string {
	return "Hello " + html.EscapeString(u.FullName()) + ",<br><br>"
}

func ActivationMail(u *model.User, link string) *Mail {
	return &Mail{
		To:      []string{u.Email},
		Subject: "Activate your account",
		Body:    greet(u) + fmt.Sprintf("Click <a href='%v'>here</a> to activate your account.<br><br>This link will expire in 10 minutes", link),
	}
}

func WelcomeMail(u *model.User) *Mail {
	return &Mail{
		To:      []string{u.Email},
		Subject: "Your account is active",
		Body:    greet(u) + "Your account has been activated. Welcome aboard.",
	}
}

func PasswordResetMail(u *model.User, link string) *Mail {
	return &Mail{
		To:      []string{u.Email},
		Subject: "Reset your password",
		Body:    greet(u) + fmt.Sprintf("Click <a href='%v'>here</a> to choose a new password.<br><br>This link will expire in 10 minutes. Ignore this mail if you did not ask for it.", link),
	}
}

func PasswordChangedMail(u *model.User) *Mail {
	return &Mail{
		To:      []string{u.Email},
		Subject: "Your password was changed",
		Body:    greet(u) + "Your password has just been changed. Contact an administrator if this was not you.",
	}
}

func EmailResetMail(u *model.User, link string) *Mail {
	return &Mail{
		To:      []string{u.Email},
		Subject: "Change your email address",
		Body:    greet(u) + fmt.Sprintf("Click <a href='%v'>here</a> to set a new email address.<br><br>This link will expire in 10 minutes.", link),
	}
}

func EmailChangedMail(u *model.User) *Mail {
	return &Mail{
		To:      []string{u.Email},
		Subject: "Your email address was changed",
		Body:    greet(u) + "This is now the address of your account.",
	}
}

func APIKeyRequestMail(admins []string, u *model.User, apiName string) *Mail {
	return &Mail{
		To:      admins,
		Subject: "New API key request",
		Body:    fmt.Sprintf("%s (%s) asked for a key to %s. Approve or deny it from the admin panel.", html.EscapeString(u.FullName()), html.EscapeString(u.Email), html.EscapeString(apiName)),
	}
}

func APIKeyApprovedMail(u *model.User, apiName, key string) *Mail {
	return &Mail{
		To:      []string{u.Email},
		Subject: "Your API key is ready",
		Body:    greet(u) + fmt.Sprintf("Your key for %s is <code>%s</code>. It is valid for one year.", html.EscapeString(apiName), key),
	}
}

func APIKeyDeniedMail(u *model.User, apiName string) *Mail {
	return &Mail{
		To:      []string{u.Email},
		Subject: "Your API key request was denied",
		Body:    greet(u) + fmt.Sprintf("Your request for a %s key was denied.", html.EscapeString(apiName)),
	}
}

func RenewalMail(u *model.User, apiName, link string) *Mail {
	return &Mail{
		To:      []string{u.Email},
		Subject: "Confirm your API key renewal",
		Body:    greet(u) + fmt.Sprintf("Click <a href='%v'>here</a> to renew your %s key.<br><br>This link will expire in 10 minutes.", link, html.EscapeString(apiName)),
	}
}

func RenewedMail(u *model.User, apiName, key string) *Mail {
	return &Mail{
		To:      []string{u.Email},
		Subject: "Your API key was renewed",
		Body:    greet(u) + fmt.Sprintf("Your new %s key is <code>%s</code>. The previous one no longer works.", html.EscapeString(apiName), key),
	}
}
