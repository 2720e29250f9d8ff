package validation

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// Validators in this package are pure: no I/O, total over all inputs, and
// they report the first violated rule only.

var (
	nameRe  = regexp.MustCompile(`^[A-Za-zא-ת]+$`)
	idRe    = regexp.MustCompile(`^\d{9}$`)
	phoneRe = regexp.MustCompile(`^\d{10}$`)
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

const specialChars = `!@#$%^&*(),.?":{}|<>`

// Password composes the five mandatory rules in their fixed order and
// returns the first violation.
func Password(password string) error {
	if len(password) < 8 {
		return errors.New("Password must be at least 8 characters long.")
	}
	if !strings.ContainsAny(password, specialChars) {
		return errors.New("Password must contain at least one special character.")
	}
	if !strings.ContainsAny(password, "abcdefghijklmnopqrstuvwxyz") {
		return errors.New("Password must contain at least one lowercase letter.")
	}
	if !strings.ContainsAny(password, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		return errors.New("Password must contain at least one uppercase letter.")
	}
	if !strings.ContainsAny(password, "0123456789") {
		return errors.New("Password must contain at least one number.")
	}
	return nil
}

// Registration carries the self-service signup fields.
type Registration struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	IDNumber  string
	Password  string
	BirthDate time.Time
}

// Validate checks registration inputs in a fixed order, returning the first
// failing field's message.
func (r Registration) Validate() error {
	if !nameRe.MatchString(r.FirstName) || !nameRe.MatchString(r.LastName) {
		return errors.New("First and last names should contain letters only.")
	}
	if !emailRe.MatchString(r.Email) {
		return errors.New("Invalid email format.")
	}
	if !idRe.MatchString(r.IDNumber) {
		return errors.New("ID Number should contain exactly 9 digits.")
	}
	if !phoneRe.MatchString(r.Phone) {
		return errors.New("Phone number should contain exactly 10 digits.")
	}
	if err := Password(r.Password); err != nil {
		return err
	}
	if r.BirthDate.IsZero() {
		return errors.New("Birth date is required.")
	}
	return nil
}
