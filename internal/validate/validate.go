// validate.go

// Client-side checks run before a form or command hits the backend.
// The backend validates again; these exist so obviously bad input fails fast
// with a readable message instead of a round trip.
package validate

import (
	"fmt"
	netmail "net/mail"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/michame/console/internal/models"
)

// ValidateEmail checks format and length constraints; returns error message or empty string.
// RFC 5321: min ~5 chars (a@b.c), max 254.
func ValidateEmail(email string) string {
	if email == "" {
		return "No email provided"
	}
	if len(email) < 5 {
		return "Email too short!"
	}
	if len(email) > 254 {
		return "Email too long!"
	}
	addr, err := netmail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "Invalid email format"
	}
	return ""
}

// PasswordPolicy defines password complexity rules for new operator accounts
// and password changes.
//
//	MinLength / MaxLength count runes; 0 skips the check.
//	RequireUppercase, RequireDigit and RequireSpecial each gate a character-class check.
//
// The zero value is fully permissive.
type PasswordPolicy struct {
	MinLength        int
	MaxLength        int
	RequireUppercase bool
	RequireDigit     bool
	RequireSpecial   bool
}

// DefaultPolicy is what the console enforces when creating users or changing passwords.
var DefaultPolicy = PasswordPolicy{MinLength: 8, MaxLength: 128, RequireDigit: true}

// specialChars defines which characters satisfy the RequireSpecial rule.
const specialChars = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// Validate checks password against every enabled rule and returns a slice of human-readable
// failure messages; an empty slice means the password is valid.
func (p PasswordPolicy) Validate(password string) []string {
	var failures []string

	if password == "" {
		failures = append(failures, "No password provided")
	}

	n := utf8.RuneCountInString(password)
	if p.MinLength > 0 && n < p.MinLength {
		failures = append(failures, fmt.Sprintf("Password must be at least %d characters", p.MinLength))
	}
	if p.MaxLength > 0 && n > p.MaxLength {
		failures = append(failures, fmt.Sprintf("Password must be at most %d characters", p.MaxLength))
	}

	var seenUpper, seenDigit, seenSpecial bool
	for _, r := range password {
		if unicode.IsControl(r) {
			return []string{"Password contains invalid characters"}
		}
		switch {
		case unicode.IsUpper(r):
			seenUpper = true
		case unicode.IsDigit(r):
			seenDigit = true
		case strings.ContainsRune(specialChars, r):
			seenSpecial = true
		}
	}

	if p.RequireUppercase && !seenUpper {
		failures = append(failures, "Password must contain at least one uppercase letter")
	}
	if p.RequireDigit && !seenDigit {
		failures = append(failures, "Password must contain at least one digit")
	}
	if p.RequireSpecial && !seenSpecial {
		failures = append(failures, "Password must contain at least one special character")
	}

	return failures
}

// Errors collects field failures for a form. Zero value is ready to use.
type Errors map[string][]string

// Add records msg against field; empty messages are ignored.
func (e Errors) Add(field, msg string) {
	if msg != "" {
		e[field] = append(e[field], msg)
	}
}

// OK reports whether no failures were recorded.
func (e Errors) OK() bool { return len(e) == 0 }

// First returns the first message recorded for field, or "".
func (e Errors) First(field string) string {
	if msgs := e[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// Error joins every failure into one line, fields in a stable order.
func (e Errors) Error() string {
	var parts []string
	for _, f := range []string{"email", "name", "password", "role", "phone"} {
		parts = append(parts, e[f]...)
	}
	for f, msgs := range e {
		switch f {
		case "email", "name", "password", "role", "phone":
		default:
			parts = append(parts, msgs...)
		}
	}
	return strings.Join(parts, "; ")
}

// Required returns a message when value is blank.
func Required(label, value string) string {
	if strings.TrimSpace(value) == "" {
		return label + " is required"
	}
	return ""
}

// NewUser checks the user-creation form.
func NewUser(email, password, name, role string) Errors {
	errs := Errors{}
	errs.Add("email", ValidateEmail(email))
	errs.Add("name", Required("Name", name))
	for _, msg := range DefaultPolicy.Validate(password) {
		errs.Add("password", msg)
	}
	if _, ok := models.ParseRole(role); !ok {
		errs.Add("role", fmt.Sprintf("Role must be one of %s", roleList()))
	}
	return errs
}

// Phone checks a WhatsApp number: digits only after an optional "+", 10 to 15 long.
func Phone(phone string) string {
	p := strings.TrimPrefix(strings.TrimSpace(phone), "+")
	if p == "" {
		return "Phone number is required"
	}
	for _, r := range p {
		if r < '0' || r > '9' {
			return "Phone number must contain only digits"
		}
	}
	if len(p) < 10 || len(p) > 15 {
		return "Phone number must have 10 to 15 digits"
	}
	return ""
}

func roleList() string {
	names := make([]string, len(models.Roles))
	for i, r := range models.Roles {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}
