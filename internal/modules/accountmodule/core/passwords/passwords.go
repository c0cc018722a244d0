// Package passwords hashes and checks account passwords
package passwords

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// MinLength is the shortest accepted password
const MinLength = 8

var commonPasswords = map[string]struct{}{
	"password": {}, "password1": {}, "12345678": {}, "123456789": {}, "qwertyuiop": {},
	"iloveyou": {}, "sunshine": {}, "football": {}, "baseball": {}, "welcome1": {},
	"abc12345": {}, "letmein1": {}, "trustno1": {}, "princess": {}, "superman": {},
}

// Hasher wraps bcrypt at a fixed cost
type Hasher struct {
	cost int
}

// NewHasher creates a hasher; costs outside bcrypt's range use the default
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash returns the bcrypt hash of password
func (h *Hasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Matches reports whether password produced hash
func (h *Hasher) Matches(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Validate applies the strength rules and returns one message per failed
// rule. identity holds values the password must not resemble, such as the
// username and the email.
func Validate(password string, identity ...string) []string {
	var problems []string

	if len(password) < MinLength {
		problems = append(problems, fmt.Sprintf("This password is too short. It must contain at least %d characters.", MinLength))
	}
	if _, common := commonPasswords[strings.ToLower(password)]; common {
		problems = append(problems, "This password is too common.")
	}
	if password != "" && strings.IndexFunc(password, func(r rune) bool { return !unicode.IsDigit(r) }) == -1 {
		problems = append(problems, "This password is entirely numeric.")
	}

	lowered := strings.ToLower(password)
	for _, value := range identity {
		value = strings.ToLower(strings.TrimSpace(value))
		if local, _, found := strings.Cut(value, "@"); found {
			value = local
		}
		if len(value) >= 3 && lowered != "" && (strings.Contains(lowered, value) || strings.Contains(value, lowered)) {
			problems = append(problems, "The password is too similar to your personal information.")
			break
		}
	}

	return problems
}

// ErrTooLong mirrors bcrypt's 72 byte input limit
var ErrTooLong = errors.New("password is longer than 72 bytes")

// CheckLength rejects passwords bcrypt would silently truncate
func CheckLength(password string) error {
	if len(password) > 72 {
		return ErrTooLong
	}
	return nil
}
