// Package txbuilder assembles cardano-cli transactions from receivers:
// draft with a zero fee, calculate the fee, take it out of the change
// output, build the final body, sign and submit.
package txbuilder

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/automint/internal/receiver"
	"github.com/Klingon-tech/automint/internal/utxo"
	"github.com/Klingon-tech/automint/pkg/balance"
)

// Builder errors.
var (
	ErrNoInputs   = errors.New("transaction has no inputs")
	ErrNoOutputs  = errors.New("transaction has no outputs")
	ErrNoChange   = errors.New("transaction has no change output")
	ErrUnbalanced = errors.New("inputs and mint do not equal outputs plus fee")
)

// Builder constructs transactions incrementally.
type Builder struct {
	inputs           []*utxo.UTXO
	outputs          []*receiver.Output
	change           *receiver.Output
	mint             *receiver.MintLedger
	mintScripts      []string
	metadataFile     string
	invalidHereafter uint64
	fee              int64
}

// NewBuilder creates a new transaction builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// AddInput spends u.
func (b *Builder) AddInput(u *utxo.UTXO) *Builder {
	b.inputs = append(b.inputs, u)
	return b
}

// AddOutput adds a --tx-out.
func (b *Builder) AddOutput(o *receiver.Output) *Builder {
	b.outputs = append(b.outputs, o)
	return b
}

// SetChange adds o as an output and marks it as the one the fee is
// deducted from.
func (b *Builder) SetChange(o *receiver.Output) *Builder {
	b.change = o
	return b.AddOutput(o)
}

// SetMint sets the --mint value and the scripts that authorize it.
func (b *Builder) SetMint(m *receiver.MintLedger, scripts ...string) *Builder {
	b.mint = m
	b.mintScripts = scripts
	return b
}

// SetMetadata attaches a metadata JSON file.
func (b *Builder) SetMetadata(path string) *Builder {
	b.metadataFile = path
	return b
}

// SetInvalidHereafter sets the slot after which the transaction is invalid.
func (b *Builder) SetInvalidHereafter(slot uint64) *Builder {
	b.invalidHereafter = slot
	return b
}

// Fee returns the fee deducted so far.
func (b *Builder) Fee() int64 {
	return b.fee
}

// Outputs returns the outputs in order.
func (b *Builder) Outputs() []*receiver.Output {
	return b.outputs
}

// Inputs returns the inputs in order.
func (b *Builder) Inputs() []*utxo.UTXO {
	return b.inputs
}

// Mint returns the mint value, if any.
func (b *Builder) Mint() balance.Balance {
	if b.mint == nil {
		return balance.Balance{}
	}
	return b.mint.Balance()
}

// deductFee takes fee out of the change output.
func (b *Builder) deductFee(fee int64) error {
	if b.change == nil {
		return ErrNoChange
	}
	var err error
	if delta := fee - b.fee; delta >= 0 {
		err = b.change.RemoveBase(delta)
	} else {
		err = b.change.AddBase(-delta)
	}
	if err != nil {
		return fmt.Errorf("deduct fee: %w", err)
	}
	b.fee = fee
	return nil
}

// check verifies the structure of the transaction without value rules.
func (b *Builder) check() error {
	if len(b.inputs) == 0 {
		return ErrNoInputs
	}
	if len(b.outputs) == 0 {
		return ErrNoOutputs
	}
	return nil
}

// Validate checks that the transaction can be submitted: no output holds a
// negative amount, and value is conserved (inputs + mint = outputs + fee).
func (b *Builder) Validate() error {
	if err := b.check(); err != nil {
		return err
	}
	for _, o := range b.outputs {
		if err := o.Balance().Validate(); err != nil {
			return fmt.Errorf("output %s: %w", o.Address(), err)
		}
	}

	var in, out balance.Balance
	for _, u := range b.inputs {
		in = in.Combine(u.Value)
	}
	in = in.Combine(b.Mint())
	for _, o := range b.outputs {
		out = out.Combine(o.Balance())
	}
	out, err := out.AddBase(b.fee)
	if err != nil {
		return err
	}
	if !in.Equal(out) {
		return fmt.Errorf("%w: in %s, out %s", ErrUnbalanced, in, out)
	}
	return nil
}
