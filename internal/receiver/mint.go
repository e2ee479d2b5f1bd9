package receiver

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/automint/pkg/balance"
)

// ErrInvalidOperation is returned when a role is asked to do something it
// does not support.
var ErrInvalidOperation = errors.New("invalid operation")

// errMintBase is returned by every base-currency call on a MintLedger.
var errMintBase = fmt.Errorf("%w: minting ledgers track only token deltas, never base currency", ErrInvalidOperation)

// MintLedger tracks the net mint (positive) and burn (negative) token deltas
// of a transaction. It renders as the --mint argument.
//
// The underlying holder is private so base currency cannot reach it through
// the generic Holder methods.
type MintLedger struct {
	h *Holder
}

// NewMintLedger creates an empty mint ledger.
func NewMintLedger() *MintLedger {
	return &MintLedger{h: newTokenHolder(balance.Balance{})}
}

func newTokenHolder(b balance.Balance) *Holder {
	h := NewHolderWith(b)
	h.tokensOnly = true
	return h
}

// AddBase always fails.
func (m *MintLedger) AddBase(int64) error { return errMintBase }

// RemoveBase always fails.
func (m *MintLedger) RemoveBase(int64) error { return errMintBase }

// SetBase always fails.
func (m *MintLedger) SetBase(int64) error { return errMintBase }

// AddScaled always fails.
func (m *MintLedger) AddScaled(float64) error { return errMintBase }

// RemoveScaled always fails.
func (m *MintLedger) RemoveScaled(float64) error { return errMintBase }

// SetScaled always fails.
func (m *MintLedger) SetScaled(float64) error { return errMintBase }

// AddToken credits a token delta.
func (m *MintLedger) AddToken(id string, qty int64) error { return m.h.AddToken(id, qty) }

// RemoveToken debits a token delta.
func (m *MintLedger) RemoveToken(id string, qty int64) error { return m.h.RemoveToken(id, qty) }

// SetToken overwrites a token delta.
func (m *MintLedger) SetToken(id string, qty int64) error { return m.h.SetToken(id, qty) }

// Mint records qty newly minted units of a token.
func (m *MintLedger) Mint(id string, qty int64) error {
	return m.h.AddToken(id, qty)
}

// Burn records qty burned units of a token.
func (m *MintLedger) Burn(id string, qty int64) error {
	return m.h.RemoveToken(id, qty)
}

// Balance returns the current deltas.
func (m *MintLedger) Balance() balance.Balance { return m.h.Balance() }

// Base is always zero.
func (m *MintLedger) Base() int64 { return m.h.Base() }

// Quantity returns the delta recorded for a token.
func (m *MintLedger) Quantity(id string) int64 { return m.h.Quantity(id) }

// TransferTo moves the recorded deltas into other and empties the ledger.
func (m *MintLedger) TransferTo(other *Holder) error {
	return m.h.TransferTo(other)
}

// IsEmpty reports whether the ledger records no delta at all.
func (m *MintLedger) IsEmpty() bool {
	return m.Balance().TokenCount() == 0
}

// Duplicate returns an independent copy.
func (m *MintLedger) Duplicate() *MintLedger {
	return &MintLedger{h: newTokenHolder(m.Balance())}
}

// String renders the quoted token clause, e.g. "1 pol.A + -2 pol.B".
func (m *MintLedger) String() string {
	return m.Balance().MintString()
}

// Arg renders the token clause without shell quoting.
func (m *MintLedger) Arg() string {
	return m.Balance().MintArg()
}
