// Package idgen generates document IDs and blob object keys with nanoid.
package idgen

import (
	"fmt"
	"path"
	"strings"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Alphabet is the character set of generated IDs. Lowercase only, so IDs
// are safe in URLs and case-insensitive object stores.
const Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// Length is the number of characters in a document ID.
const Length = 20

// NewID returns a new document ID.
func NewID() (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return id, nil
}

// ObjectKey returns a unique blob key of the form
// "<collection>/<id>/<filename>". The filename is reduced to its base name
// and spaces are replaced so the key can appear in a URL path unescaped.
func ObjectKey(collection, filename string) (string, error) {
	id, err := NewID()
	if err != nil {
		return "", err
	}
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "file"
	}
	name = strings.ReplaceAll(name, " ", "-")
	return collection + "/" + id + "/" + name, nil
}
