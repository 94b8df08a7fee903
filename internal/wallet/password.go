package wallet

import (
	"errors"
	"strings"
	"unicode"
)

// MinPasswordLength is the shortest password accepted for a new vault.
const MinPasswordLength = 8

// ErrWeakPassword is returned when a new password fails the strength policy.
var ErrWeakPassword = errors.New("weak password")

// PasswordProblems lists every strength rule the password breaks.
// An empty result means the password is acceptable.
func PasswordProblems(password string) []string {
	var problems []string
	if len([]rune(password)) < MinPasswordLength {
		problems = append(problems, "must be at least 8 characters")
	}

	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper {
		problems = append(problems, "must contain an uppercase letter")
	}
	if !lower {
		problems = append(problems, "must contain a lowercase letter")
	}
	if !digit {
		problems = append(problems, "must contain a digit")
	}
	return problems
}

// ValidatePassword enforces the strength policy for passwords protecting a
// new vault. Unlock never applies it.
func ValidatePassword(password string) error {
	problems := PasswordProblems(password)
	if len(problems) == 0 {
		return nil
	}
	return &PasswordError{Problems: problems}
}

// PasswordError carries the failed rules. It matches ErrWeakPassword.
type PasswordError struct {
	Problems []string
}

func (e *PasswordError) Error() string {
	return "weak password: " + strings.Join(e.Problems, "; ")
}

func (e *PasswordError) Is(target error) bool {
	return target == ErrWeakPassword
}
