package receiver

import "github.com/Klingon-tech/automint/pkg/balance"

// Output is a balance bound to a destination address: one --tx-out of a
// transaction. The address is fixed; WithAddress returns a new Output.
type Output struct {
	*Holder
	addr string
}

// NewOutput creates an empty output paying to addr.
func NewOutput(addr string) *Output {
	return &Output{Holder: NewHolder(), addr: addr}
}

// NewOutputWith creates an output paying b to addr.
func NewOutputWith(addr string, b balance.Balance) *Output {
	return &Output{Holder: NewHolderWith(b), addr: addr}
}

// Address returns the destination address.
func (o *Output) Address() string {
	return o.addr
}

// Duplicate returns an independent copy.
func (o *Output) Duplicate() *Output {
	return NewOutputWith(o.addr, o.Balance())
}

// Blank returns a copy with the base amount forced to zero and the tokens
// kept. Used to draft a transaction body before the fee is known.
func (o *Output) Blank() *Output {
	return NewOutputWith(o.addr, o.Balance().TokensOnly())
}

// WithAddress returns a copy paying the same balance to addr.
func (o *Output) WithAddress(addr string) *Output {
	return NewOutputWith(addr, o.Balance())
}

// String renders "<address>+<balance>" in cardano-cli shell syntax.
func (o *Output) String() string {
	return o.addr + "+" + o.Balance().String()
}

// Arg renders the output as a single argv element.
func (o *Output) Arg() string {
	return o.addr + "+" + o.Balance().Arg()
}
