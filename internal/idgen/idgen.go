// Package idgen provides URL-safe unique blob names backed by nanoid.
package idgen

import (
	"fmt"
	"time"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Alphabet defines the character set used for the random portion of the ID.
var Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters generated.
var Length = 12

// Generate returns a new random ID.
func Generate() (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return id, nil
}

// Sequenced returns an ID whose lexical order follows t: a zero-padded
// nanosecond timestamp followed by a random suffix that breaks ties.
func Sequenced(t time.Time) (string, error) {
	id, err := Generate()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%020d-%s", t.UnixNano(), id), nil
}
