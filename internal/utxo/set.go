package utxo

import (
	"sort"

	"github.com/Klingon-tech/automint/pkg/balance"
)

// Set is the collection of UTXOs last queried for an address, keyed by
// "<tx_hash>#<index>". It is replaced wholesale on every query: UTXOs are
// single-use, so a stale entry is dropped even if it might still be unspent.
type Set struct {
	utxos map[string]*UTXO
}

// NewSet creates a set holding the given UTXOs.
func NewSet(utxos ...*UTXO) *Set {
	s := &Set{}
	s.Replace(utxos)
	return s
}

// Replace discards the current contents and stores utxos.
func (s *Set) Replace(utxos []*UTXO) {
	m := make(map[string]*UTXO, len(utxos))
	for _, u := range utxos {
		m[u.String()] = u
	}
	s.utxos = m
}

// Get returns the UTXO with the given identifier. The second result is
// false if it is not in the set.
func (s *Set) Get(id string) (*UTXO, bool) {
	u, ok := s.utxos[id]
	return u, ok
}

// Len returns the number of UTXOs.
func (s *Set) Len() int {
	return len(s.utxos)
}

// All returns the UTXOs sorted by identifier.
func (s *Set) All() []*UTXO {
	out := make([]*UTXO, 0, len(s.utxos))
	for _, u := range s.utxos {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})
	return out
}

// Total returns the combined value of every UTXO.
func (s *Set) Total() balance.Balance {
	var total balance.Balance
	for _, u := range s.utxos {
		total = total.Combine(u.Value)
	}
	return total
}
