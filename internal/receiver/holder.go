// Package receiver holds the mutable bookkeeping roles built on the
// immutable balance.Balance: a generic Holder, the MintLedger used for the
// --mint argument, and the address-bound Output used for --tx-out.
//
// Mutation happens at the holder level only: each operation computes a new
// Balance and swaps it in, so a failed operation leaves the holder unchanged.
package receiver

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Klingon-tech/automint/pkg/balance"
)

// holderSeq orders holders for lock acquisition in TransferTo.
var holderSeq atomic.Uint64

// Holder owns exactly one Balance and replaces it on every operation.
// It is safe for concurrent use.
type Holder struct {
	mu  sync.Mutex
	seq uint64
	bal balance.Balance

	// tokensOnly holders never carry base currency.
	tokensOnly bool
}

// NewHolder creates an empty holder.
func NewHolder() *Holder {
	return &Holder{seq: holderSeq.Add(1)}
}

// NewHolderWith creates a holder owning b.
func NewHolderWith(b balance.Balance) *Holder {
	h := NewHolder()
	h.bal = b
	return h
}

// apply swaps in the result of fn if it succeeds.
func (h *Holder) apply(fn func(balance.Balance) (balance.Balance, error)) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	next, err := fn(h.bal)
	if err != nil {
		return err
	}
	if h.tokensOnly && next.Base() != 0 {
		return errMintBase
	}
	h.bal = next
	return nil
}

// Balance returns the current balance.
func (h *Holder) Balance() balance.Balance {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.bal
}

// AddBase credits base units.
func (h *Holder) AddBase(qty int64) error {
	return h.apply(func(b balance.Balance) (balance.Balance, error) { return b.AddBase(qty) })
}

// RemoveBase debits base units.
func (h *Holder) RemoveBase(qty int64) error {
	return h.apply(func(b balance.Balance) (balance.Balance, error) { return b.RemoveBase(qty) })
}

// SetBase overwrites the base amount.
func (h *Holder) SetBase(qty int64) error {
	return h.apply(func(b balance.Balance) (balance.Balance, error) { return b.SetBase(qty) })
}

// AddScaled credits display units.
func (h *Holder) AddScaled(amount float64) error {
	return h.apply(func(b balance.Balance) (balance.Balance, error) { return b.AddScaled(amount) })
}

// RemoveScaled debits display units.
func (h *Holder) RemoveScaled(amount float64) error {
	return h.apply(func(b balance.Balance) (balance.Balance, error) { return b.RemoveScaled(amount) })
}

// SetScaled overwrites the base amount with display units.
func (h *Holder) SetScaled(amount float64) error {
	return h.apply(func(b balance.Balance) (balance.Balance, error) { return b.SetScaled(amount) })
}

// AddToken credits a native token.
func (h *Holder) AddToken(id string, qty int64) error {
	return h.apply(func(b balance.Balance) (balance.Balance, error) { return b.AddToken(id, qty) })
}

// RemoveToken debits a native token.
func (h *Holder) RemoveToken(id string, qty int64) error {
	return h.apply(func(b balance.Balance) (balance.Balance, error) { return b.RemoveToken(id, qty) })
}

// SetToken overwrites a native token quantity.
func (h *Holder) SetToken(id string, qty int64) error {
	return h.apply(func(b balance.Balance) (balance.Balance, error) { return b.SetToken(id, qty) })
}

// Base returns the current base amount.
func (h *Holder) Base() int64 {
	return h.Balance().Base()
}

// Quantity returns the current quantity of a token.
func (h *Holder) Quantity(id string) int64 {
	return h.Balance().Quantity(id)
}

// Duplicate returns an independent holder with the same balance.
func (h *Holder) Duplicate() *Holder {
	return NewHolderWith(h.Balance())
}

// TransferTo moves this holder's entire balance into other and empties this
// holder. Both holders are locked for the duration, in a fixed order, so no
// observer sees the credit without the reset or vice versa. A transfer that
// would leave base currency in a tokens-only holder fails and changes nothing.
func (h *Holder) TransferTo(other *Holder) error {
	if h == other {
		return nil
	}
	first, second := h, other
	if second.seq < first.seq {
		first, second = second, first
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	next := h.bal.Combine(other.bal)
	if other.tokensOnly && next.Base() != 0 {
		return fmt.Errorf("transfer %d base into mint ledger: %w", h.bal.Base(), errMintBase)
	}
	other.bal = next
	h.bal = balance.Balance{}
	return nil
}
