package credentials

import (
	"errors"
	"fmt"

	"federation-service/internal/utils"

	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 8

	// generatedPasswordBytes keeps the encoded password under bcrypt's
	// 72-byte input limit.
	generatedPasswordBytes = 32
)

var ErrPasswordTooShort = errors.New("password too short")

// Hasher hashes passwords before they are stored.
type Hasher interface {
	Hash(password string) (string, error)
}

// BcryptHasher hashes with bcrypt at the given cost. A zero cost means
// bcrypt.DefaultCost.
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", ErrPasswordTooShort
	}
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("credentials: hash password: %w", err)
	}
	return string(hash), nil
}

// GeneratePassword returns a random password for accounts that only ever
// sign in through an identity provider.
func GeneratePassword() (string, error) {
	password, err := utils.RandomString(generatedPasswordBytes)
	if err != nil {
		return "", fmt.Errorf("credentials: generate password: %w", err)
	}
	return password, nil
}
