// Package types defines the primitive identifiers shared by automint packages.
package types

import (
	"errors"
	"fmt"
	"strings"
)

// TokenSeparator joins a policy id and a token name in a qualified token id.
const TokenSeparator = "."

// ErrInvalidTokenID is returned when a qualified token id cannot be split.
var ErrInvalidTokenID = errors.New("invalid token id")

// TokenID identifies a native asset as "<policy_id>.<token_name>".
// Policy id and name are opaque strings.
type TokenID struct {
	Policy string
	Name   string
}

// ParseTokenID splits s on its first separator.
func ParseTokenID(s string) (TokenID, error) {
	policy, name, ok := strings.Cut(s, TokenSeparator)
	if !ok {
		return TokenID{}, fmt.Errorf("%w: %q has no %q separator", ErrInvalidTokenID, s, TokenSeparator)
	}
	return TokenID{Policy: policy, Name: name}, nil
}

// NewTokenID joins a policy id and a token name.
func NewTokenID(policy, name string) TokenID {
	return TokenID{Policy: policy, Name: name}
}

// String returns "<policy_id>.<token_name>".
func (id TokenID) String() string {
	return id.Policy + TokenSeparator + id.Name
}

// IsZero returns true if both parts are empty.
func (id TokenID) IsZero() bool {
	return id.Policy == "" && id.Name == ""
}

// MarshalText encodes the id in its qualified form.
func (id TokenID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText decodes a qualified id.
func (id *TokenID) UnmarshalText(data []byte) error {
	parsed, err := ParseTokenID(string(data))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
