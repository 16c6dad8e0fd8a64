package validators

import (
	"errors"
	"slices"

	"github.com/spf13/viper"
)

var ErrAPINameUnsupported = errors.New("unsupported api name")

// DefaultAPINames is used when apikeys.supported is not configured
var DefaultAPINames = []string{"Api-travel", "Api-weather", "Api-geo"}

func SupportedAPINames() []string {
	if names := viper.GetStringSlice("apikeys.supported"); len(names) > 0 {
		return names
	}
	return DefaultAPINames
}

func APINameValidator(name string) error {
	if !slices.Contains(SupportedAPINames(), name) {
		return ErrAPINameUnsupported
	}

	return nil
}
