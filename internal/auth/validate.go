package auth

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Field validation for registration and login input. Rules are intentionally
// permissive on shape (the database enforces uniqueness); they exist to give
// users actionable messages before a round-trip to the store.
var (
	emailRe    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9._]{3,}$`)
	nameRe     = regexp.MustCompile(`^[a-zA-ZÀ-ÿñÑ\s]{2,}$`)
	phoneRe    = regexp.MustCompile(`^\+?[\d\s\-()]{8,}$`)
	lowerRe    = regexp.MustCompile(`[a-z]`)
	upperRe    = regexp.MustCompile(`[A-Z]`)
	digitRe    = regexp.MustCompile(`\d`)
	symbolRe   = regexp.MustCompile(`[^a-zA-Z0-9]`)
)

// sanitizeInput trims, strips angle brackets and caps length at 255 bytes.
// Applied to every free-text field except passwords. The cut backs up to a
// rune boundary; names may carry multi-byte letters and a split rune would
// store invalid UTF-8.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("<", "", ">", "").Replace(s)
	if len(s) > 255 {
		cut := 255
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	return s
}

// strongPassword requires at least 6 characters with one lower-case letter,
// one upper-case letter and one digit.
func strongPassword(p string) bool {
	return len(p) >= 6 && lowerRe.MatchString(p) && upperRe.MatchString(p) && digitRe.MatchString(p)
}

// validateRegisterFields checks the sanitized registration input and returns
// one message per failing field.
func validateRegisterFields(in RegisterInput) []string {
	var errs []string
	if in.FirstName == "" {
		errs = append(errs, "first name is required")
	} else if !nameRe.MatchString(in.FirstName) {
		errs = append(errs, "first name must be at least 2 characters and contain only letters")
	}
	if in.LastName == "" {
		errs = append(errs, "last name is required")
	} else if !nameRe.MatchString(in.LastName) {
		errs = append(errs, "last name must be at least 2 characters and contain only letters")
	}
	if in.Username == "" {
		errs = append(errs, "username is required")
	} else if !usernameRe.MatchString(in.Username) {
		errs = append(errs, "username must be at least 3 characters and contain only letters, numbers, dots and underscores")
	}
	if in.Email == "" {
		errs = append(errs, "email is required")
	} else if !emailRe.MatchString(in.Email) {
		errs = append(errs, "email format is not valid")
	}
	if in.Phone == "" {
		errs = append(errs, "phone is required")
	} else if !phoneRe.MatchString(in.Phone) {
		errs = append(errs, "phone format is not valid")
	}
	if in.Password == "" {
		errs = append(errs, "password is required")
	} else if !strongPassword(in.Password) {
		errs = append(errs, "password must be at least 6 characters with an upper-case letter, a lower-case letter and a number")
	}
	if in.SecretKey != "" && len(in.SecretKey) < 8 {
		errs = append(errs, "secret key must be at least 8 characters")
	}
	return errs
}

// PasswordStrength describes how strong a candidate password is, with
// suggestions for whatever is missing. Score runs 0–5.
type PasswordStrength struct {
	Strength    string   `json:"strength"`
	Score       int      `json:"score"`
	Suggestions []string `json:"suggestions"`
}

// CheckPasswordStrength scores a password against five independent criteria
// (length ≥8, lower, upper, digit, symbol).
func CheckPasswordStrength(password string) PasswordStrength {
	if password == "" {
		return PasswordStrength{Strength: "none", Score: 0, Suggestions: []string{"enter a password"}}
	}
	score := 0
	var suggestions []string
	if len(password) >= 8 {
		score++
	} else {
		suggestions = append(suggestions, "use at least 8 characters")
	}
	for _, c := range []struct {
		re   *regexp.Regexp
		hint string
	}{
		{lowerRe, "include lower-case letters"},
		{upperRe, "include upper-case letters"},
		{digitRe, "include numbers"},
		{symbolRe, "include special characters (!@#$%^&*)"},
	} {
		if c.re.MatchString(password) {
			score++
		} else {
			suggestions = append(suggestions, c.hint)
		}
	}
	var label string
	switch {
	case score <= 2:
		label = "weak"
	case score == 3:
		label = "medium"
	case score == 4:
		label = "strong"
	default:
		label = "very_strong"
	}
	return PasswordStrength{Strength: label, Score: score, Suggestions: suggestions}
}
