// Package validation registers the domain binding tags on gin's validator and turns
// binding failures into per-field messages.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/ikkim/bloodlink-backend/internal/app/model"
)

var registerOnce sync.Once

// Register installs the bloodgroup, urgency, gender and hospitaltype tags and reports
// json field names in errors. Safe to call more than once.
func Register() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = errors.New("gin validator engine is not validator/v10")
			return
		}
		err = RegisterOn(v)
	})
	return err
}

// RegisterOn installs the custom tags on v.
func RegisterOn(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})

	tags := map[string]validator.Func{
		"bloodgroup": func(fl validator.FieldLevel) bool {
			return model.BloodGroup(fl.Field().String()).IsValid()
		},
		"urgency": func(fl validator.FieldLevel) bool {
			return model.Urgency(fl.Field().String()).IsValid()
		},
		"gender": func(fl validator.FieldLevel) bool {
			switch model.Gender(fl.Field().String()) {
			case model.GenderMale, model.GenderFemale, model.GenderOther:
				return true
			}
			return false
		},
		"hospitaltype": func(fl validator.FieldLevel) bool {
			switch model.HospitalType(fl.Field().String()) {
			case model.HospitalTypeGovernment, model.HospitalTypePrivate, model.HospitalTypeCharitable:
				return true
			}
			return false
		},
	}
	for tag, fn := range tags {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("register %s: %w", tag, err)
		}
	}
	return nil
}

// FieldErrors maps each failing field to a readable message. ok is false when err is not
// a validation failure (malformed JSON, wrong types).
func FieldErrors(err error) (fields map[string]string, ok bool) {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil, false
	}
	fields = make(map[string]string, len(ve))
	for _, fe := range ve {
		fields[fe.Field()] = message(fe)
	}
	return fields, true
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "numeric":
		return "must contain digits only"
	case "bloodgroup":
		return "must be one of " + strings.Join(bloodGroupNames(), ", ")
	case "urgency":
		return "must be normal, urgent or emergency"
	case "gender":
		return "must be male, female or other"
	case "hospitaltype":
		return "must be government, private or charitable"
	}
	return fmt.Sprintf("failed on %s", fe.Tag())
}

func bloodGroupNames() []string {
	names := make([]string, len(model.AllBloodGroups))
	for i, g := range model.AllBloodGroups {
		names[i] = string(g)
	}
	return names
}
