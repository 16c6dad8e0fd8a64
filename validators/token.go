package validators

import (
	"errors"
	"regexp"
)

var (
	ErrTokenInvalid = errors.New("token is malformed")

	tokenRe = regexp.MustCompile(`^[0-9a-f]{64}$`)
)

// TokenValidator checks the 64 hex char shape of activation, reset and renewal
// tokens before any lookup
func TokenValidator(t string) error {
	if !tokenRe.MatchString(t) {
		return ErrTokenInvalid
	}

	return nil
}
