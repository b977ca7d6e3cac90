package service

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode"
)

var phonePattern = regexp.MustCompile(`^[\d\s+\-()]{8,20}$`)

// maxPasswordBytes is the most bcrypt will hash.
const maxPasswordBytes = 72

var errPasswordTooLong = newError(KindWeakPassword, "password must not exceed 72 bytes")

// ValidatePassword requires at least 8 characters with a letter and a digit,
// and at most maxPasswordBytes bytes.
func ValidatePassword(p string) error {
	if len([]rune(p)) < 8 {
		return ErrWeakPassword
	}
	if len(p) > maxPasswordBytes {
		return errPasswordTooLong
	}
	var letter, digit bool
	for _, r := range p {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !letter || !digit {
		return ErrWeakPassword
	}
	return nil
}

// ValidatePhone accepts digits, spaces, +, - and parentheses, 8 to 20 of
// them once surrounding blanks are trimmed.
func ValidatePhone(phone string) error {
	if !phonePattern.MatchString(strings.TrimSpace(phone)) {
		return ErrInvalidPhoneFormat
	}
	return nil
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return invalidInput("email is not a valid address")
	}
	return nil
}

func required(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return invalidInput(field + " is required")
	}
	return nil
}

// optional trims v and returns nil when nothing is left.
func optional(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
