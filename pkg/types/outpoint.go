package types

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// OutpointSeparator joins a transaction hash and an output index.
const OutpointSeparator = "#"

// ErrInvalidOutpoint is returned when an outpoint string cannot be parsed.
var ErrInvalidOutpoint = errors.New("invalid outpoint")

// Outpoint references a specific output in a transaction.
type Outpoint struct {
	TxHash string `json:"tx_hash"`
	Index  uint32 `json:"index"`
}

// ParseOutpoint parses "<tx_hash>#<index>".
func ParseOutpoint(s string) (Outpoint, error) {
	hash, idx, ok := strings.Cut(strings.TrimSpace(s), OutpointSeparator)
	if !ok || hash == "" {
		return Outpoint{}, fmt.Errorf("%w: %q", ErrInvalidOutpoint, s)
	}
	index, err := strconv.ParseUint(idx, 10, 32)
	if err != nil {
		return Outpoint{}, fmt.Errorf("%w: index %q: %v", ErrInvalidOutpoint, idx, err)
	}
	return Outpoint{TxHash: hash, Index: uint32(index)}, nil
}

// IsZero returns true if the outpoint has an empty hash and zero index.
func (o Outpoint) IsZero() bool {
	return o.TxHash == "" && o.Index == 0
}

// String returns "<tx_hash>#<index>", the form cardano-cli takes for --tx-in.
func (o Outpoint) String() string {
	return o.TxHash + OutpointSeparator + strconv.FormatUint(uint64(o.Index), 10)
}
