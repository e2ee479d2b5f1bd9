// Package balance implements the immutable multi-asset value carried by
// UTXOs and transaction outputs: an amount of the base currency plus a set
// of native tokens keyed by qualified token id.
//
// Every operation returns a new Balance and leaves the receiver untouched,
// so a Balance can be shared freely between holders and goroutines. The zero
// value is the empty balance.
package balance

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Klingon-tech/automint/pkg/types"
)

// BaseUnit is the name of the smallest unit of the base currency as it
// appears in cardano-cli UTXO listings.
const BaseUnit = "lovelace"

// Balance errors.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNegativeBalance = errors.New("negative balance")
)

// Token is one native-asset entry of a Balance.
type Token struct {
	Policy   string `json:"policy_id"`
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
}

// ID returns the qualified token id.
func (t Token) ID() types.TokenID {
	return types.NewTokenID(t.Policy, t.Name)
}

// Balance is an immutable bundle of base currency and native tokens.
// Token entries with a zero quantity are never stored.
type Balance struct {
	base   int64
	tokens map[string]Token
}

// New returns an empty balance.
func New() Balance {
	return Balance{}
}

// clone copies the token map so the result can be modified.
func (b Balance) clone() Balance {
	out := Balance{base: b.base}
	if len(b.tokens) > 0 {
		out.tokens = make(map[string]Token, len(b.tokens)+1)
		for k, v := range b.tokens {
			out.tokens[k] = v
		}
	}
	return out
}

// withDelta returns a copy with delta applied to the token id, creating the
// entry if needed and dropping it when the quantity lands on zero.
func (b Balance) withDelta(id string, delta int64) (Balance, error) {
	tok, ok := b.tokens[id]
	if !ok {
		tid, err := types.ParseTokenID(id)
		if err != nil {
			return b, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
		tok = Token{Policy: tid.Policy, Name: tid.Name}
	}
	tok.Quantity += delta

	out := b.clone()
	if tok.Quantity == 0 {
		delete(out.tokens, id)
		return out, nil
	}
	if out.tokens == nil {
		out.tokens = make(map[string]Token, 1)
	}
	out.tokens[id] = tok
	return out, nil
}

// AddToken credits qty units of the token id. qty must be positive.
func (b Balance) AddToken(id string, qty int64) (Balance, error) {
	if qty <= 0 {
		return b, fmt.Errorf("%w: token quantity must be positive, got %d", ErrInvalidArgument, qty)
	}
	return b.withDelta(id, qty)
}

// RemoveToken debits qty units of the token id. qty must be positive.
// A missing entry is created, so the result may hold a negative quantity
// (a burn). An entry reaching exactly zero is removed.
func (b Balance) RemoveToken(id string, qty int64) (Balance, error) {
	if qty <= 0 {
		return b, fmt.Errorf("%w: token quantity must be positive, got %d", ErrInvalidArgument, qty)
	}
	return b.withDelta(id, -qty)
}

// SetToken overwrites the quantity of the token id. qty must be positive.
func (b Balance) SetToken(id string, qty int64) (Balance, error) {
	if qty <= 0 {
		return b, fmt.Errorf("%w: token quantity must be positive, got %d", ErrInvalidArgument, qty)
	}
	tid, err := types.ParseTokenID(id)
	if err != nil {
		return b, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	out := b.clone()
	if out.tokens == nil {
		out.tokens = make(map[string]Token, 1)
	}
	out.tokens[id] = Token{Policy: tid.Policy, Name: tid.Name, Quantity: qty}
	return out, nil
}

// AddBase credits qty base units. qty must not be negative.
func (b Balance) AddBase(qty int64) (Balance, error) {
	if qty < 0 {
		return b, fmt.Errorf("%w: base amount must not be negative, got %d", ErrInvalidArgument, qty)
	}
	out := b
	out.base += qty
	return out, nil
}

// RemoveBase debits qty base units. The result may be negative; a negative
// base amount means a fee has been accounted for but not yet funded, and
// Validate must be called before such a balance is spent.
func (b Balance) RemoveBase(qty int64) (Balance, error) {
	if qty < 0 {
		return b, fmt.Errorf("%w: base amount must not be negative, got %d", ErrInvalidArgument, qty)
	}
	out := b
	out.base -= qty
	return out, nil
}

// SetBase overwrites the base amount. qty must not be negative.
func (b Balance) SetBase(qty int64) (Balance, error) {
	if qty < 0 {
		return b, fmt.Errorf("%w: base amount must not be negative, got %d", ErrInvalidArgument, qty)
	}
	out := b
	out.base = qty
	return out, nil
}

// TokensOnly returns a copy with the base amount cleared and the tokens kept.
func (b Balance) TokensOnly() Balance {
	out := b
	out.base = 0
	return out
}

// Base returns the base amount.
func (b Balance) Base() int64 {
	return b.base
}

// Token returns the entry for the token id, or the zero Token if absent.
func (b Balance) Token(id string) Token {
	return b.tokens[id]
}

// Quantity returns the quantity held of the token id, zero if absent.
func (b Balance) Quantity(id string) int64 {
	return b.tokens[id].Quantity
}

// Has reports whether the balance carries an entry for the token id.
func (b Balance) Has(id string) bool {
	_, ok := b.tokens[id]
	return ok
}

// Tokens returns the token entries sorted by qualified id.
func (b Balance) Tokens() []Token {
	ids := b.sortedIDs()
	out := make([]Token, len(ids))
	for i, id := range ids {
		out[i] = b.tokens[id]
	}
	return out
}

// TokenCount returns the number of distinct token entries.
func (b Balance) TokenCount() int {
	return len(b.tokens)
}

// Size returns 1 + the number of distinct tokens. It approximates how much
// a UTXO adds to a transaction.
func (b Balance) Size() int {
	return 1 + len(b.tokens)
}

// IsEmpty returns true if the balance holds nothing.
func (b Balance) IsEmpty() bool {
	return b.base == 0 && len(b.tokens) == 0
}

// Combine returns the sum of b and other. Entries present in only one
// operand are carried over; entries that cancel out are dropped.
func (b Balance) Combine(other Balance) Balance {
	out := b.clone()
	out.base += other.base
	for id, tok := range other.tokens {
		cur, ok := out.tokens[id]
		if !ok {
			cur = Token{Policy: tok.Policy, Name: tok.Name}
		}
		cur.Quantity += tok.Quantity
		if cur.Quantity == 0 {
			delete(out.tokens, id)
			continue
		}
		if out.tokens == nil {
			out.tokens = make(map[string]Token, len(other.tokens))
		}
		out.tokens[id] = cur
	}
	return out
}

// Equal reports whether both balances hold the same base amount and the same
// quantity of every token.
func (b Balance) Equal(other Balance) bool {
	if b.base != other.base || len(b.tokens) != len(other.tokens) {
		return false
	}
	for id, tok := range b.tokens {
		o, ok := other.tokens[id]
		if !ok || o.Quantity != tok.Quantity {
			return false
		}
	}
	return true
}

// Validate checks that neither the base amount nor any token quantity is
// negative. A balance must pass before it is rendered into a final
// transaction output.
func (b Balance) Validate() error {
	if b.base < 0 {
		return fmt.Errorf("%w: base amount %d", ErrNegativeBalance, b.base)
	}
	for _, id := range b.sortedIDs() {
		if q := b.tokens[id].Quantity; q < 0 {
			return fmt.Errorf("%w: %d %s", ErrNegativeBalance, q, id)
		}
	}
	return nil
}

func (b Balance) sortedIDs() []string {
	ids := make([]string, 0, len(b.tokens))
	for id := range b.tokens {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// assetClause renders "<qty> <id> + <qty> <id>" in ascending id order.
func (b Balance) assetClause() string {
	ids := b.sortedIDs()
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(b.tokens[id].Quantity, 10) + " " + id
	}
	return strings.Join(parts, " + ")
}

// String renders the value in cardano-cli shell syntax:
//
//	1500000
//	1500000+"2 12345.tokenA + -2 56789.tokenA"
func (b Balance) String() string {
	out := strconv.FormatInt(b.base, 10)
	if len(b.tokens) > 0 {
		out += `+"` + b.assetClause() + `"`
	}
	return out
}

// MintString renders only the quoted token clause, the shell syntax of a
// --mint argument.
func (b Balance) MintString() string {
	return `"` + b.assetClause() + `"`
}

// Arg renders the value as a single argv element (no shell quoting).
func (b Balance) Arg() string {
	out := strconv.FormatInt(b.base, 10)
	if len(b.tokens) > 0 {
		out += "+" + b.assetClause()
	}
	return out
}

// MintArg renders the token clause as a single argv element.
func (b Balance) MintArg() string {
	return b.assetClause()
}

// jsonBalance is the JSON layout of a Balance.
type jsonBalance struct {
	Lovelace int64            `json:"lovelace"`
	Tokens   map[string]int64 `json:"tokens,omitempty"`
}

// MarshalJSON encodes the balance as {"lovelace": n, "tokens": {id: qty}}.
func (b Balance) MarshalJSON() ([]byte, error) {
	jb := jsonBalance{Lovelace: b.base}
	if len(b.tokens) > 0 {
		jb.Tokens = make(map[string]int64, len(b.tokens))
		for id, tok := range b.tokens {
			jb.Tokens[id] = tok.Quantity
		}
	}
	return json.Marshal(jb)
}

// UnmarshalJSON decodes the layout written by MarshalJSON.
func (b *Balance) UnmarshalJSON(data []byte) error {
	var jb jsonBalance
	if err := json.Unmarshal(data, &jb); err != nil {
		return err
	}
	out := Balance{base: jb.Lovelace}
	for id, qty := range jb.Tokens {
		var err error
		if out, err = out.withDelta(id, qty); err != nil {
			return err
		}
	}
	*b = out
	return nil
}
