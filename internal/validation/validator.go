// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

// Package validation wraps a shared go-playground/validator instance.
//
// Fields are reported by their json tag name. Besides the built-in tags it
// registers "fullmonth", which accepts month strings like "March 2024".
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// FullMonthLayout is the request month format.
const FullMonthLayout = "January 2006"

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError is one failed rule.
type FieldError struct {
	Field   string
	Tag     string
	Param   string
	Message string
}

// RequestValidationError collects every failed rule of one struct.
type RequestValidationError struct {
	Fields []FieldError
}

func (ve *RequestValidationError) Error() string {
	if len(ve.Fields) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(ve.Fields))
	for i, f := range ve.Fields {
		msgs[i] = f.Message
	}
	return strings.Join(msgs, "; ")
}

// Details returns the failed fields in the API error details shape.
func (ve *RequestValidationError) Details() map[string]interface{} {
	fields := make([]map[string]string, len(ve.Fields))
	for i, f := range ve.Fields {
		fields[i] = map[string]string{"field": f.Field, "tag": f.Tag, "message": f.Message}
	}
	return map[string]interface{}{"fields": fields}
}

// GetValidator returns the shared validator.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
		if err := v.RegisterValidation("fullmonth", validateFullMonth); err != nil {
			panic(fmt.Sprintf("validation: register fullmonth: %v", err))
		}
		validate = v
	})
	return validate
}

func validateFullMonth(fl validator.FieldLevel) bool {
	_, err := ParseFullMonth(fl.Field().String())
	return err == nil
}

// ParseFullMonth parses "March 2024" into the first day of that month, UTC.
func ParseFullMonth(s string) (time.Time, error) {
	t, err := time.Parse(FullMonthLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q, expected e.g. %q", s, "March 2024")
	}
	return t, nil
}

// ValidateStruct validates s. It returns nil or a *RequestValidationError.
func ValidateStruct(s interface{}) error {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}
	return toRequestError(err)
}

func toRequestError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &RequestValidationError{Fields: []FieldError{{Field: "unknown", Tag: "unknown", Message: err.Error()}}}
	}

	fields := make([]FieldError, len(verrs))
	for i, fe := range verrs {
		field := fe.Field()
		if field == "" {
			field = "body"
		}
		fields[i] = FieldError{
			Field:   field,
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Message: translate(fe),
		}
	}
	return &RequestValidationError{Fields: fields}
}

// ValidateVar validates a single value against rule, e.g. "required,dive,keys,required,endkeys".
func ValidateVar(v interface{}, rule string) error {
	err := GetValidator().Var(v, rule)
	if err == nil {
		return nil
	}
	return toRequestError(err)
}

var messages = map[string]string{
	"required":  "%s is required",
	"email":     "%s must be a valid email address",
	"fullmonth": "%s must be a month like \"March 2024\"",
	"len":       "%s must be %s characters",
	"min":       "%s must be at least %s characters",
	"max":       "%s must be at most %s characters",
	"oneof":     "%s must be one of: %s",
	"numeric":   "%s must be numeric",
}

func translate(fe validator.FieldError) string {
	field := fe.Field()
	if field == "" {
		field = "body"
	}
	tmpl, ok := messages[fe.Tag()]
	if !ok {
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
	if strings.Count(tmpl, "%s") == 2 {
		return fmt.Sprintf(tmpl, field, fe.Param())
	}
	return fmt.Sprintf(tmpl, field)
}
