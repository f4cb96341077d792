package core

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		return IsISODate(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("register isodate validation: %v", err))
	}
	return v
}

// StudentInput is the registration form.
type StudentInput struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"required"`
	Phone     string `json:"phone"`
	Course    string `json:"course"`
	Notes     string `json:"notes"`
}

func (in *StudentInput) normalize() {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Course = strings.TrimSpace(in.Course)
	in.Notes = strings.TrimSpace(in.Notes)
}

// Validate trims every field and checks the required ones. Only presence of
// the email is checked.
func (in *StudentInput) Validate() error {
	in.normalize()
	return translate(validate.Struct(in))
}

func (in StudentInput) Fields() map[string]any {
	f := map[string]any{
		"firstName": in.FirstName,
		"lastName":  in.LastName,
		"email":     in.Email,
	}
	if in.Phone != "" {
		f["phone"] = in.Phone
	}
	if in.Course != "" {
		f["course"] = in.Course
	}
	if in.Notes != "" {
		f["notes"] = in.Notes
	}
	return f
}

// StudentPatch is a partial student update; nil fields are left unchanged.
type StudentPatch struct {
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	Email     *string `json:"email,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Course    *string `json:"course,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}

func (p StudentPatch) Empty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Email == nil &&
		p.Phone == nil && p.Course == nil && p.Notes == nil
}

// Validate rejects blanking a required field.
func (p StudentPatch) Validate() error {
	if p.Empty() {
		return invalid("", "nothing to update")
	}
	required := []struct {
		name string
		v    *string
	}{
		{"firstName", p.FirstName},
		{"lastName", p.LastName},
		{"email", p.Email},
	}
	for _, r := range required {
		if r.v == nil {
			continue
		}
		if err := validate.Var(strings.TrimSpace(*r.v), "required"); err != nil {
			return invalid(r.name, "is required")
		}
	}
	return nil
}

func (p StudentPatch) Fields() map[string]any {
	f := make(map[string]any)
	set := func(key string, v *string) {
		if v != nil {
			f[key] = strings.TrimSpace(*v)
		}
	}
	set("firstName", p.FirstName)
	set("lastName", p.LastName)
	set("email", p.Email)
	set("phone", p.Phone)
	set("course", p.Course)
	set("notes", p.Notes)
	return f
}

// PaymentInput is the payment form.
type PaymentInput struct {
	StudentID string   `json:"studentId" validate:"required"`
	Date      string   `json:"date" validate:"required,isodate"`
	Amount    Amount   `json:"amount"`
	Months    []string `json:"months" validate:"min=1,dive,required"`
}

func (in *PaymentInput) Validate() error {
	in.StudentID = strings.TrimSpace(in.StudentID)
	in.Date = strings.TrimSpace(in.Date)
	in.Months = trimAll(in.Months)
	if err := translate(validate.Struct(in)); err != nil {
		return err
	}
	if !in.Amount.Entered() {
		return invalid("amount", "must be a number")
	}
	return nil
}

func (in PaymentInput) Fields() map[string]any {
	return map[string]any{
		"studentId": in.StudentID,
		"date":      in.Date,
		"amount":    in.Amount.Effective(),
		"months":    in.Months,
	}
}

// PaymentPatch is a partial payment update; nil fields are left unchanged.
type PaymentPatch struct {
	StudentID *string   `json:"studentId,omitempty"`
	Date      *string   `json:"date,omitempty"`
	Amount    *Amount   `json:"amount,omitempty"`
	Months    *[]string `json:"months,omitempty"`
}

func (p PaymentPatch) Empty() bool {
	return p.StudentID == nil && p.Date == nil && p.Amount == nil && p.Months == nil
}

func (p PaymentPatch) Validate() error {
	if p.Empty() {
		return invalid("", "nothing to update")
	}
	if p.StudentID != nil && strings.TrimSpace(*p.StudentID) == "" {
		return invalid("studentId", "is required")
	}
	if p.Date != nil {
		if err := validate.Var(strings.TrimSpace(*p.Date), "required,isodate"); err != nil {
			return invalid("date", messageFor("isodate"))
		}
	}
	if p.Amount != nil && !p.Amount.Entered() {
		return invalid("amount", "must be a number")
	}
	if p.Months != nil {
		if err := validate.Var(trimAll(*p.Months), "min=1,dive,required"); err != nil {
			return invalid("months", messageFor("min"))
		}
	}
	return nil
}

func (p PaymentPatch) Fields() map[string]any {
	f := make(map[string]any)
	if p.StudentID != nil {
		f["studentId"] = strings.TrimSpace(*p.StudentID)
	}
	if p.Date != nil {
		f["date"] = strings.TrimSpace(*p.Date)
	}
	if p.Amount != nil {
		f["amount"] = p.Amount.Effective()
	}
	if p.Months != nil {
		f["months"] = trimAll(*p.Months)
	}
	return f
}

func trimAll(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.TrimSpace(s))
	}
	return out
}

// translate turns the first validator failure into a *ValidationError.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := fe.Field()
		// dive errors report months[0]; keep the field name only
		if i := strings.IndexByte(field, '['); i > 0 {
			field = field[:i]
		}
		return invalid(field, messageFor(fe.Tag()))
	}
	return invalid("", err.Error())
}

func messageFor(tag string) string {
	switch tag {
	case "required":
		return "is required"
	case "isodate":
		return "must be a date in YYYY-MM-DD form"
	case "min":
		return "select at least one month"
	default:
		return "is invalid"
	}
}
