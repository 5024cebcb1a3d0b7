package shortener

import (
	"github.com/go-playground/validator/v10"

	"shortlink/internal/apperr"
)

var validate = validator.New()

// ValidateURL accepts absolute http and https URLs only.
func ValidateURL(raw string) error {
	if raw == "" {
		return apperr.ErrURLRequired
	}
	if err := validate.Var(raw, "http_url"); err != nil {
		return apperr.ErrInvalidURL
	}
	return nil
}

// ValidateCustomCode enforces ^[A-Za-z0-9]{3,20}$.
func ValidateCustomCode(code string) error {
	if err := validate.Var(code, "required,alphanum,min=3,max=20"); err != nil {
		return apperr.ErrInvalidCode
	}
	return nil
}
