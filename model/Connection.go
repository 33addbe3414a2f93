package model

import (
	"fmt"
	"strings"
)

// Pair je neuređen par dva različita korisnika; {a, b} i {b, a} su ista veza.
type Pair [2]string

func NewPair(a, b string) Pair {
	return Pair{strings.TrimSpace(a), strings.TrimSpace(b)}
}

// Valid reports whether the pair holds two distinct, non-empty ids.
func (p Pair) Valid() bool {
	return p[0] != "" && p[1] != "" && p[0] != p[1]
}

func (p Pair) Contains(userID string) bool {
	return p[0] == userID || p[1] == userID
}

// Equal compares both pairs as 2-element sets.
func (p Pair) Equal(o Pair) bool {
	return (p[0] == o[0] && p[1] == o[1]) || (p[0] == o[1] && p[1] == o[0])
}

// Other returns the counterpart of userID. It fails for a malformed pair or one
// that does not contain userID.
func (p Pair) Other(userID string) (string, error) {
	if !p.Valid() {
		return "", fmt.Errorf("malformed pair %v", [2]string(p))
	}
	switch userID {
	case p[0]:
		return p[1], nil
	case p[1]:
		return p[0], nil
	}
	return "", fmt.Errorf("pair %v does not contain %q", [2]string(p), userID)
}

type Connection struct {
	ID    string `json:"id"`
	Users Pair   `json:"users"`
}
