package session

import (
	"fmt"

	"federation-service/internal/utils"
)

// idBytes gives session ids 256 bits of entropy.
const idBytes = 32

// GenerateID returns a new opaque session id.
func GenerateID() (string, error) {
	id, err := utils.RandomString(idBytes)
	if err != nil {
		return "", fmt.Errorf("session: generate id: %w", err)
	}
	return id, nil
}
