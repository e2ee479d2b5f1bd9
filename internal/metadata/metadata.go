// Package metadata builds and checks CIP-25 ("721") NFT metadata files
// attached to minting transactions.
package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
)

// Label is the transaction metadata label for NFT metadata.
const Label = "721"

// ErrInvalidMetadata is returned when a metadata document does not describe
// exactly the tokens being minted.
var ErrInvalidMetadata = errors.New("invalid metadata")

// Asset is the metadata of one token. Extra holds any further attributes.
type Asset struct {
	Name  string         `json:"name"`
	Image string         `json:"image"`
	Extra map[string]any `json:"-"`
}

// MarshalJSON flattens Extra next to name and image.
func (a Asset) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(a.Extra)+2)
	for k, v := range a.Extra {
		m[k] = v
	}
	m["name"] = a.Name
	m["image"] = a.Image
	return json.Marshal(m)
}

// Document is label -> policy id -> asset name -> attributes.
type Document map[string]map[string]map[string]Asset

// New returns a document describing assets under policyID.
func New(policyID string, assets map[string]Asset) Document {
	return Document{Label: {policyID: assets}}
}

// Write stores the document as indented JSON.
func (d Document) Write(path string) error {
	data, err := json.MarshalIndent(d, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// Validate checks that data holds only the "721" label, with one policy
// equal to policyID, listing exactly the asset names in tokens, each with
// a name and an image.
func Validate(data []byte, policyID string, tokens []string) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	if len(doc) != 1 {
		return fmt.Errorf("%w: expected a single top-level label, found %d", ErrInvalidMetadata, len(doc))
	}
	raw, ok := doc[Label]
	if !ok {
		return fmt.Errorf("%w: %q label not found", ErrInvalidMetadata, Label)
	}

	var policies map[string]map[string]map[string]json.RawMessage
	if err := json.Unmarshal(raw, &policies); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	if len(policies) != 1 {
		return fmt.Errorf("%w: expected 1 policy id, found %d", ErrInvalidMetadata, len(policies))
	}
	assets, ok := policies[policyID]
	if !ok {
		for found := range policies {
			return fmt.Errorf("%w: policy id %s does not match %s", ErrInvalidMetadata, found, policyID)
		}
	}

	if len(assets) != len(tokens) {
		return fmt.Errorf("%w: %d tokens described, %d minted", ErrInvalidMetadata, len(assets), len(tokens))
	}
	want := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		want[t] = true
	}
	names := make([]string, 0, len(assets))
	for name := range assets {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !want[name] {
			return fmt.Errorf("%w: unexpected token %s", ErrInvalidMetadata, name)
		}
		attrs := assets[name]
		for _, key := range []string{"name", "image"} {
			if _, ok := attrs[key]; !ok {
				return fmt.Errorf("%w: %q missing for token %s", ErrInvalidMetadata, key, name)
			}
		}
	}
	return nil
}

// ValidateFile reads path and runs Validate on it.
func ValidateFile(path, policyID string, tokens []string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read metadata: %w", err)
	}
	return Validate(data, policyID, tokens)
}
