package validation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"decorbook/internal/lifecycle"
	"decorbook/internal/models"

	"github.com/go-playground/validator/v10"
)

// FieldError is one user-facing complaint about a form field.
type FieldError struct {
	Field   string
	Message string
}

// Errors collects every failed field of a form.
type Errors []FieldError

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fe.Message)
	}
	return strings.Join(parts, "; ")
}

// Has reports whether field failed.
func (e Errors) Has(field string) bool {
	for _, fe := range e {
		if fe.Field == field {
			return true
		}
	}
	return false
}

// BookingForm is what a customer fills in to create or edit a booking.
type BookingForm struct {
	ServiceType lifecycle.ServiceType `validate:"required,oneof=in-studio on-site"`
	Location    string                `validate:"required_if=ServiceType on-site"`
	Date        string                `validate:"required,datefmt,notpast"`
	Time        string                `validate:"required,timefmt,workhours"`
	TotalUnit   int                   `validate:"min=1,max=1000"`
	Notes       string                `validate:"max=500"`
}

type SignUpForm struct {
	Name     string `validate:"required,min=2,max=80"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
}

type ServiceForm struct {
	Name        string  `validate:"required,max=120"`
	Category    string  `validate:"required"`
	Cost        float64 `validate:"gt=0"`
	Unit        string  `validate:"required"`
	Description string  `validate:"max=2000"`
}

type ProfileForm struct {
	DisplayName string `validate:"required,min=2,max=80"`
	PhotoURL    string `validate:"omitempty,url"`
}

// Validator checks forms against the marketplace rules. Dates and times are
// judged in loc using the injected clock.
type Validator struct {
	validate *validator.Validate
	now      func() time.Time
	loc      *time.Location
}

func New(now func() time.Time, loc *time.Location) *Validator {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	v := &Validator{validate: validator.New(), now: now, loc: loc}

	// RegisterValidation only fails on empty tags or nil funcs.
	_ = v.validate.RegisterValidation("datefmt", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(models.DateFormat, fl.Field().String())
		return err == nil
	})
	_ = v.validate.RegisterValidation("timefmt", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(models.TimeFormat, fl.Field().String())
		return err == nil
	})
	_ = v.validate.RegisterValidation("notpast", v.notPast)
	_ = v.validate.RegisterValidation("workhours", workHours)
	return v
}

func (v *Validator) notPast(fl validator.FieldLevel) bool {
	d, err := time.ParseInLocation(models.DateFormat, fl.Field().String(), v.loc)
	if err != nil {
		// datefmt reports the format problem
		return true
	}
	now := v.now().In(v.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, v.loc)
	return !d.Before(today)
}

func workHours(fl validator.FieldLevel) bool {
	t, err := time.Parse(models.TimeFormat, fl.Field().String())
	if err != nil {
		return true
	}
	start, _ := time.Parse(models.TimeFormat, models.WorkdayStart)
	end, _ := time.Parse(models.TimeFormat, models.WorkdayEnd)
	return !t.Before(start) && !t.After(end)
}

// Booking validates a booking form. Location is trimmed first so blank input
// counts as missing.
func (v *Validator) Booking(f BookingForm) error {
	f.Location = strings.TrimSpace(f.Location)
	return v.check(f)
}

func (v *Validator) SignUp(f SignUpForm) error {
	f.Email = strings.TrimSpace(f.Email)
	return v.check(f)
}

func (v *Validator) Service(f ServiceForm) error {
	return v.check(f)
}

func (v *Validator) Profile(f ProfileForm) error {
	return v.check(f)
}

func (v *Validator) check(form interface{}) error {
	err := v.validate.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := make(Errors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required_if":
		if fe.Field() == "Location" {
			return "Location is required for on-site service"
		}
		return fmt.Sprintf("%s is required", fe.Field())
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "notpast":
		return "Date cannot be in the past"
	case "workhours":
		return fmt.Sprintf("Time must be between %s and %s", models.WorkdayStart, models.WorkdayEnd)
	case "datefmt":
		return "Date must look like YYYY-MM-DD"
	case "timefmt":
		return "Time must look like HH:MM"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "email":
		return "Email address is not valid"
	case "url":
		return fmt.Sprintf("%s must be a URL", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
