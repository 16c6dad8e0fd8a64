package validators

import "errors"

var (
	ErrPasswordTooShort = errors.New("password must be at least 8 characters long")
	ErrPasswordTooLong  = errors.New("password is too long")
	ErrPasswordEmpty    = errors.New("no password provided")
	ErrPasswordMismatch = errors.New("passwords do not match")
)

func PasswordValidator(p string) error {
	if p == "" {
		return ErrPasswordEmpty
	}

	if len(p) < 8 {
		return ErrPasswordTooShort
	}

	if len(p) > 255 {
		return ErrPasswordTooLong
	}

	return nil
}

// PasswordPair validates p and checks that the confirmation matches it
func PasswordPair(p, confirm string) error {
	if err := PasswordValidator(p); err != nil {
		return err
	}

	if p != confirm {
		return ErrPasswordMismatch
	}

	return nil
}
