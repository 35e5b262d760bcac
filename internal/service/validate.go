package service

import (
	"errors"
	"fmt"
	"github.com/go-playground/validator/v10"
	errors2 "github.com/pkg/errors"
	"nodeconductor/internal/trigger"
)

var ErrInvalidParams = errors.New("invalid parameters")

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("cron", func(fl validator.FieldLevel) bool {
		return trigger.Validate(fl.Field().String()) == nil
	})
	return v
}

func runValidator(v *validator.Validate, param interface{}) error {
	err := v.Struct(param)
	if err == nil {
		return nil
	}

	var validationError validator.ValidationErrors
	if errors.As(err, &validationError) {
		for _, nextErr := range validationError {
			if nextErr.Tag() == "cron" {
				return errors2.Wrapf(trigger.ErrInvalidScheduleFormat, "%v", nextErr.Value())
			}
			return errors2.Wrap(ErrInvalidParams, fmt.Sprintf("invalid value provided for: %s", nextErr.Field()))
		}
	}
	return errors2.Wrap(ErrInvalidParams, err.Error())
}
