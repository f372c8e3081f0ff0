// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/AleutianAI/stampsweep/cmd/stampsweep/internal/commands"
)

// ErrInvalidConfig is returned when a SweepConfig fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// configValidate is the validator instance for sweep configs.
// Initialized in init() with custom validators.
var configValidate *validator.Validate

func init() {
	configValidate = validator.New()
	configValidate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = configValidate.RegisterValidation("pow2", validatePow2)
	_ = configValidate.RegisterValidation("variant", validateVariant)
}

// validatePow2 accepts positive powers of two.
func validatePow2(fl validator.FieldLevel) bool {
	n := fl.Field().Int()
	return n > 0 && n&(n-1) == 0
}

// validateVariant accepts "all" or a known variant key.
func validateVariant(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == SpecificAll {
		return true
	}
	_, err := commands.ParseVariant(s)
	return err == nil
}

// Validate checks every field and reports all problems at once.
//
// # Outputs
//
//   - error: ErrInvalidConfig listing each failing field, or nil
func (c SweepConfig) Validate() error {
	err := configValidate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}

// describe turns one validation failure into a flag-oriented message.
func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "SweepConfig.")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "required_with":
		return fmt.Sprintf("%s is required when %s is set", field, strings.ToLower(fe.Param()))
	case "min":
		return fmt.Sprintf("%s must be at least %s (got %v)", field, fe.Param(), fe.Value())
	case "pow2":
		return fmt.Sprintf("%s must be a power of two (got %v)", field, fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s] (got %q)", field, fe.Param(), fe.Value())
	case "variant":
		return fmt.Sprintf("%s must be %q or a benchmark variant (got %q)", field, SpecificAll, fe.Value())
	case "startswith":
		return fmt.Sprintf("%s must start with %s", field, fe.Param())
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}
