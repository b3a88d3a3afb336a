package validation

import (
	"fmt"
	"regexp"
)

var (
	templateNameRe = regexp.MustCompile(`^[a-zA-Z0-9-_]+$`)
	systemRe       = regexp.MustCompile(`^[a-z0-9_]+-[a-z0-9]+$`)
)

func ValidateTemplateName(name string) error {
	if name == "" {
		return fmt.Errorf("template name cannot be empty")
	}

	if !templateNameRe.MatchString(name) {
		return fmt.Errorf("template name must contain only alphanumeric characters, hyphens, and underscores")
	}

	return nil
}

// ValidateSystem checks a nix system identifier such as x86_64-linux.
func ValidateSystem(system string) error {
	if system == "" {
		return fmt.Errorf("system cannot be empty")
	}

	if !systemRe.MatchString(system) {
		return fmt.Errorf("invalid system identifier: %s", system)
	}

	return nil
}
