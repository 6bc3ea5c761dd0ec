package validation

import (
	validatorv10 "github.com/go-playground/validator/v10"
)

// New returns a configured validator with custom struct-level validation
// registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// an update request that provides no fields would be a silent no-op;
	// reject it at the boundary instead.
	v.RegisterStructValidation(updateOrderEditStructValidation, UpdateOrderEditRequest{})

	return v
}

func updateOrderEditStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(UpdateOrderEditRequest)
	if req.InternalNote == nil {
		sl.ReportError(req.InternalNote, "internal_note", "InternalNote", "at_least_one_field", "")
	}
}
