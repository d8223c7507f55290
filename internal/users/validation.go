package users

import (
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	minUsernameLen = 3
	minPhoneLen    = 10
	minPasswordLen = 8
	maxPasswordLen = 30
)

func validateRegister(in RegisterInput) error {
	v := &ValidationError{}
	if utf8.RuneCountInString(in.Username) < minUsernameLen {
		v.add("username", "must be at least 3 characters")
	}
	if !validEmail(in.Email) {
		v.add("email", "must be a valid email address")
	}
	if len(in.Phone) < minPhoneLen {
		v.add("phone", "must be at least 10 characters")
	}
	if issue := passwordIssue(in.Password); issue != "" {
		v.add("password", issue)
	}
	return v.orNil()
}

func validEmail(email string) bool {
	if email == "" || strings.ContainsAny(email, " <>") {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email && strings.Contains(email[strings.LastIndex(email, "@"):], ".")
}

func passwordIssue(pw string) string {
	n := utf8.RuneCountInString(pw)
	if n < minPasswordLen || n > maxPasswordLen {
		return "must be 8-30 characters"
	}
	var lower, upper, digit, special bool
	for _, r := range pw {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	if !lower || !upper || !digit || !special {
		return "must contain a lowercase letter, an uppercase letter, a digit and a special character"
	}
	return ""
}
