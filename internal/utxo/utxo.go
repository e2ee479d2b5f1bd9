// Package utxo parses cardano-cli UTXO listings and keeps the set of UTXOs
// known for an address.
package utxo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Klingon-tech/automint/internal/receiver"
	"github.com/Klingon-tech/automint/pkg/balance"
	"github.com/Klingon-tech/automint/pkg/types"
)

// ErrMalformedLine is returned when a listing line cannot be parsed.
var ErrMalformedLine = errors.New("malformed utxo line")

// datumPrefix marks trailing datum clauses emitted by newer cardano-cli
// versions ("+ TxOutDatumNone"). They carry no value.
const datumPrefix = "TxOutDatum"

// listingHeaderLines is the number of header lines cardano-cli prints
// before the first UTXO of a `query utxo` listing.
const listingHeaderLines = 2

// UTXO is an unspent output: an outpoint and the value it holds.
type UTXO struct {
	Outpoint types.Outpoint  `json:"outpoint"`
	Value    balance.Balance `json:"value"`
}

// Parse parses one listing line:
//
//	<tx_hash> <index> <amount> lovelace[ + <qty> <policy>.<name> ...]
//
// Construction is all-or-nothing: any malformed field fails the whole line.
func Parse(line string) (*UTXO, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return nil, fmt.Errorf("%w: expected at least 3 fields, got %d in %q", ErrMalformedLine, len(fields), line)
	}

	index, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: index %q: %v", ErrMalformedLine, fields[1], err)
	}

	// Re-split the remainder on '+' so spacing around the separators does
	// not matter.
	rest := strings.Join(fields[2:], " ")
	clauses := strings.Split(rest, "+")

	value, err := parseBase(clauses[0])
	if err != nil {
		return nil, err
	}
	for _, clause := range clauses[1:] {
		clause = strings.TrimSpace(clause)
		if strings.HasPrefix(clause, datumPrefix) {
			continue
		}
		value, err = addAsset(value, clause)
		if err != nil {
			return nil, err
		}
	}

	return &UTXO{
		Outpoint: types.Outpoint{TxHash: fields[0], Index: uint32(index)},
		Value:    value,
	}, nil
}

func parseBase(clause string) (balance.Balance, error) {
	parts := strings.Fields(clause)
	if len(parts) != 2 || parts[1] != balance.BaseUnit {
		return balance.Balance{}, fmt.Errorf("%w: expected \"<amount> %s\", got %q", ErrMalformedLine, balance.BaseUnit, strings.TrimSpace(clause))
	}
	amount, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || amount < 0 {
		return balance.Balance{}, fmt.Errorf("%w: base amount %q", ErrMalformedLine, parts[0])
	}
	return balance.New().AddBase(amount)
}

func addAsset(value balance.Balance, clause string) (balance.Balance, error) {
	parts := strings.Fields(clause)
	if len(parts) != 2 {
		return value, fmt.Errorf("%w: asset clause %q", ErrMalformedLine, clause)
	}
	qty, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return value, fmt.Errorf("%w: asset quantity %q", ErrMalformedLine, parts[0])
	}
	next, err := value.AddToken(parts[1], qty)
	if err != nil {
		return value, fmt.Errorf("%w: %v", ErrMalformedLine, err)
	}
	return next, nil
}

// ParseListing parses the full stdout of `cardano-cli query utxo`, skipping
// the header and blank lines.
func ParseListing(out string) ([]*UTXO, error) {
	lines := strings.Split(out, "\n")
	if len(lines) <= listingHeaderLines {
		return nil, nil
	}
	var utxos []*UTXO
	for i, line := range lines[listingHeaderLines:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		u, err := Parse(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+listingHeaderLines+1, err)
		}
		utxos = append(utxos, u)
	}
	return utxos, nil
}

// ID returns the outpoint, rendered "<tx_hash>#<index>" by String.
func (u *UTXO) ID() types.Outpoint {
	return u.Outpoint
}

// String returns the identifier "<tx_hash>#<index>".
func (u *UTXO) String() string {
	return u.Outpoint.String()
}

// Size delegates to the balance.
func (u *UTXO) Size() int {
	return u.Value.Size()
}

// Base returns the base amount held.
func (u *UTXO) Base() int64 {
	return u.Value.Base()
}

// ToOutput returns a new output paying this UTXO's full value to addr.
// The UTXO is not modified.
func (u *UTXO) ToOutput(addr string) *receiver.Output {
	return receiver.NewOutputWith(addr, u.Value)
}
