package environment

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownEnvironment is returned by Parse for an unrecognised value.
var ErrUnknownEnvironment = errors.New("environment: unknown value")

// Environment is the deployment mode of the process.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Parse maps a raw value (typically APP_ENV) onto an Environment. Short
// aliases are accepted and an empty value means development. Anything else is
// rejected, so a misspelt production value never falls back to development.
func Parse(raw string) (Environment, error) {
	switch v := strings.ToLower(strings.TrimSpace(raw)); v {
	case "production", "prod":
		return Production, nil
	case "staging", "stage":
		return Staging, nil
	case "development", "dev", "":
		return Development, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownEnvironment, raw)
	}
}

func (e Environment) IsProduction() bool {
	return e == Production
}

func (e Environment) IsDevelopment() bool {
	return e == Development
}

func (e Environment) IsStaging() bool {
	return e == Staging
}

func (e Environment) String() string {
	return string(e)
}
