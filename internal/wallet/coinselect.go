package wallet

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Klingon-tech/automint/internal/utxo"
	"github.com/Klingon-tech/automint/pkg/balance"
)

// Selection errors.
var (
	ErrNoSelectableUTXO  = errors.New("no utxo above the spendable threshold; pass one explicitly")
	ErrUTXONotFound      = errors.New("utxo not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNoUTXOs           = errors.New("no UTXOs available")
)

// DefaultMinLovelace is the default spendable threshold for SelectDefault.
const DefaultMinLovelace = 2_000_000

// Policy configures automatic UTXO selection.
type Policy struct {
	// MinLovelace is the smallest base amount a UTXO needs to be picked
	// automatically.
	MinLovelace int64
}

// DefaultPolicy returns the policy used when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{MinLovelace: DefaultMinLovelace}
}

// SelectDefault picks the UTXO to spend when the user did not name one:
// among UTXOs holding at least p.MinLovelace, the one with the fewest
// distinct assets. Ties are broken by identifier so the result is stable.
func SelectDefault(set *utxo.Set, p Policy) (*utxo.UTXO, error) {
	var candidates []*utxo.UTXO
	for _, u := range set.All() {
		if u.Base() >= p.MinLovelace {
			candidates = append(candidates, u)
		}
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w (threshold %d lovelace)", ErrNoSelectableUTXO, p.MinLovelace)
	}
	// All() is sorted by identifier already; a stable sort keeps that as the
	// tie-break.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Size() < candidates[j].Size()
	})
	return candidates[0], nil
}

// CoinSelection holds the result of coin selection.
type CoinSelection struct {
	Inputs []*utxo.UTXO // Selected UTXOs to spend.
	Total  int64        // Sum of selected base amounts.
	Change int64        // Change = Total - target.
	Assets int          // Distinct tokens the inputs carry into the change output.
}

func newSelection(inputs []*utxo.UTXO, target int64) *CoinSelection {
	var value balance.Balance
	for _, u := range inputs {
		value = value.Combine(u.Value)
	}
	return &CoinSelection{
		Inputs: inputs,
		Total:  value.Base(),
		Change: value.Base() - target,
		Assets: value.TokenCount(),
	}
}

// better orders selections by change, then by the number of assets pulled
// into the change output, then by input count.
func (s *CoinSelection) better(o *CoinSelection) bool {
	switch {
	case o == nil:
		return true
	case s.Change != o.Change:
		return s.Change < o.Change
	case s.Assets != o.Assets:
		return s.Assets < o.Assets
	default:
		return len(s.Inputs) < len(o.Inputs)
	}
}

// SelectCoins chooses UTXOs whose base amounts fund target lovelace. Every
// token on a chosen input ends up in the change output, so token-free inputs
// are preferred where they cost no extra change. Candidates:
//  1. Single UTXO: the smallest one that covers the target, fewest assets
//     first among equal amounts.
//  2. Largest-first accumulation over all UTXOs (fewest inputs).
//  3. Lightest-first accumulation: UTXOs with fewer assets first, largest
//     amount first within the same asset count.
//
// The best candidate by change, carried assets and input count wins.
func SelectCoins(utxos []*utxo.UTXO, target int64) (*CoinSelection, error) {
	if len(utxos) == 0 {
		return nil, ErrNoUTXOs
	}
	if target <= 0 {
		return nil, fmt.Errorf("target must be positive")
	}

	candidates := make([]*utxo.UTXO, 0, len(utxos))
	for _, u := range utxos {
		if u.Base() > 0 {
			candidates = append(candidates, u)
		}
	}
	if len(candidates) == 0 {
		return nil, ErrNoUTXOs
	}

	ascending := append([]*utxo.UTXO(nil), candidates...)
	sort.SliceStable(ascending, func(i, j int) bool {
		if ascending[i].Base() != ascending[j].Base() {
			return ascending[i].Base() < ascending[j].Base()
		}
		return ascending[i].Size() < ascending[j].Size()
	})

	var best *CoinSelection
	for _, u := range ascending {
		if u.Base() >= target {
			best = newSelection([]*utxo.UTXO{u}, target)
			break
		}
	}

	largest := append([]*utxo.UTXO(nil), candidates...)
	sort.SliceStable(largest, func(i, j int) bool {
		return largest[i].Base() > largest[j].Base()
	})
	if sel := accumulate(largest, target); sel != nil && sel.better(best) {
		best = sel
	}

	lightest := append([]*utxo.UTXO(nil), candidates...)
	sort.SliceStable(lightest, func(i, j int) bool {
		if lightest[i].Size() != lightest[j].Size() {
			return lightest[i].Size() < lightest[j].Size()
		}
		return lightest[i].Base() > lightest[j].Base()
	})
	if sel := accumulate(lightest, target); sel != nil && sel.better(best) {
		best = sel
	}

	if best == nil {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, totalBase(candidates), target)
	}
	return best, nil
}

// accumulate takes UTXOs in order until their base amounts reach target.
func accumulate(ordered []*utxo.UTXO, target int64) *CoinSelection {
	var total int64
	for i, u := range ordered {
		total += u.Base()
		if total >= target {
			return newSelection(ordered[:i+1:i+1], target)
		}
	}
	return nil
}

func totalBase(utxos []*utxo.UTXO) int64 {
	var total int64
	for _, u := range utxos {
		total += u.Base()
	}
	return total
}
