package validation

import (
	validatorv10 "github.com/go-playground/validator/v10"
)

// New returns the validator used for request bodies. Cross-line rules such as
// repeated product ids are left to the order service, which reports them as a
// product set mismatch.
func New() *validatorv10.Validate {
	return validatorv10.New()
}
