// Package validation contains input validation helpers for user-supplied fields.
package validation

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode"
)

const (
	minPasswordLen = 12
	maxPasswordLen = 128
	maxEmailLen    = 254
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{1,30}[a-zA-Z0-9]$`)

// ValidateUsername checks length and character constraints. Usernames must be
// 3-32 characters of letters, digits, underscores or hyphens, and must start
// and end with a letter or digit.
func ValidateUsername(username string) error {
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username must be 3-32 characters, contain only letters, numbers, underscores, and hyphens, and start and end with a letter or number")
	}
	return nil
}

// ValidateEmail checks basic RFC 5322 shape and the 254-character ceiling.
func ValidateEmail(email string) error {
	if len(email) > maxEmailLen {
		return fmt.Errorf("email must be at most %d characters", maxEmailLen)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("invalid email address")
	}
	// mail.ParseAddress tolerates some shapes browsers reject
	at := strings.LastIndex(email, "@")
	domain := email[at+1:]
	if domain == "" || strings.HasSuffix(domain, ".") || strings.Contains(email, " ") {
		return fmt.Errorf("invalid email address")
	}
	return nil
}

// ValidatePassword enforces length plus character-class diversity: at least
// one uppercase letter, one lowercase letter, one digit, and one symbol.
func ValidatePassword(password string) error {
	runes := []rune(password)
	if len(runes) < minPasswordLen || len(runes) > maxPasswordLen {
		return fmt.Errorf("password must be %d-%d characters", minPasswordLen, maxPasswordLen)
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range runes {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSpecial = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit || !hasSpecial {
		return fmt.Errorf("password must include uppercase, lowercase, a digit, and a symbol")
	}
	return nil
}
