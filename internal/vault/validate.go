package vault

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateDraft checks a create payload before it is sent anywhere.
func ValidateDraft(d *Draft) error {
	if err := validate.Struct(d); err != nil {
		return asValidationError(err)
	}
	if err := validateVariables(d.Variables); err != nil {
		return err
	}
	return nil
}

// ValidatePatch checks a partial update before it is sent anywhere.
func ValidatePatch(p *Patch) error {
	if err := validate.Struct(p); err != nil {
		return asValidationError(err)
	}
	if p.Variables != nil {
		if err := validateVariables(*p.Variables); err != nil {
			return err
		}
	}
	return nil
}

// validateVariables rejects placeholder names that cannot round-trip
// through the {name} substitution syntax.
func validateVariables(vars map[string]string) error {
	for name := range vars {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			return &ValidationError{Field: "variables", Msg: "variable name must not be empty"}
		}
		if strings.ContainsAny(trimmed, "{}") {
			return &ValidationError{Field: "variables", Msg: "variable name must not contain braces: " + trimmed}
		}
	}
	return nil
}

func asValidationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		f := verrs[0]
		return &ValidationError{Field: strings.ToLower(f.Field()), Msg: "failed " + f.Tag() + " constraint"}
	}
	return &ValidationError{Msg: err.Error()}
}
