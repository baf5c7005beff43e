package app

import (
	"errors"
	"fmt"
	"strings"

	"pos-ledger/internal/core"

	"github.com/go-playground/validator/v10"
)

// ErrForbidden is returned when the actor may not touch the requested resource.
var ErrForbidden = errors.New("forbidden")

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateRequest runs struct tag validation and reports failures as
// core.ErrValidation listing each offending field.
func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", core.ErrValidation, err)
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %s", fe.Namespace(), fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", core.ErrValidation, strings.Join(parts, "; "))
}
