package validation

import (
	"net/url"
	"strings"
)

// Field names shared by the auth forms.
const (
	FieldName     = "name"
	FieldEmail    = "email"
	FieldPassword = "password"
)

// NameMaxLength is the longest display name accepted, in characters.
const NameMaxLength = 50

const passwordMinLength = 6

// PasswordMaxBytes is the longest password bcrypt will hash.
const PasswordMaxBytes = 72

// Field declares one input of a Schema. Keep trims surrounding whitespace
// from the normalized value when true.
type Field struct {
	Name   string
	Label  string
	Trim   bool
	Checks []Validator
}

// Schema is an ordered list of fields. Order is significant: Check reports
// the first failing field in declaration order.
type Schema struct {
	Name   string
	Fields []Field
}

// FieldError describes the single failure reported by Schema.Check.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string { return e.Field + ": " + e.Message }

// Payload holds normalized values keyed by field name.
type Payload map[string]string

// Get returns the normalized value for name.
func (p Payload) Get(name string) string { return p[name] }

// SignupSchema validates the signup form.
var SignupSchema = Schema{
	Name: "signup",
	Fields: []Field{
		{Name: FieldName, Label: "Name", Trim: true, Checks: []Validator{Required("Name", NameMaxLength)}},
		{Name: FieldEmail, Label: "Email", Trim: true, Checks: []Validator{Email("Email")}},
		{
			Name:  FieldPassword,
			Label: "Password",
			Checks: []Validator{
				Present("Password"),
				MinLength("Password", passwordMinLength),
				MaxBytes("Password", PasswordMaxBytes),
			},
		},
	},
}

// LoginSchema validates the login form.
var LoginSchema = Schema{
	Name: "login",
	Fields: []Field{
		{Name: FieldEmail, Label: "Email", Trim: true, Checks: []Validator{Email("Email")}},
		{Name: FieldPassword, Label: "Password", Checks: []Validator{Present("Password")}},
	},
}

// Check validates values against the schema. A field missing from values
// fails the same way an empty one does; nothing is defaulted.
func (s Schema) Check(values url.Values) (Payload, *FieldError) {
	out := make(Payload, len(s.Fields))
	for _, f := range s.Fields {
		raw, present := values[f.Name]
		v := ""
		if present && len(raw) > 0 {
			v = raw[0]
		}
		if !present {
			return nil, &FieldError{Field: f.Name, Message: f.Label + " is required."}
		}
		for _, check := range f.Checks {
			if msg := check(v); msg != "" {
				return nil, &FieldError{Field: f.Name, Message: msg}
			}
		}
		if f.Trim {
			v = strings.TrimSpace(v)
		}
		out[f.Name] = v
	}
	return out, nil
}
