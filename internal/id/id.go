package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// alphabet keeps IDs inside the backend's document-id charset and guarantees
// they never start with a special character.
const alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Length of generated IDs. The backend accepts up to 36 characters.
const Length = 20

// Unique returns a new random document ID.
//
// Returns an error if the system has insufficient entropy for secure random generation.
func Unique() (string, error) {
	id, err := gonanoid.Generate(alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return id, nil
}

// MustUnique is like Unique but panics if ID generation fails.
func MustUnique() string {
	id, err := Unique()
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}
