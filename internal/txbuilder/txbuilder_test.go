package txbuilder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Klingon-tech/automint/internal/cardano"
	"github.com/Klingon-tech/automint/internal/receiver"
	"github.com/Klingon-tech/automint/internal/utxo"
	"github.com/Klingon-tech/automint/pkg/balance"
)

type fakeNode struct {
	builds    []cardano.BuildRawArgs
	feeArgs   cardano.FeeArgs
	minFee    int64
	signed    []string
	submitted string
	submitErr error
}

func (f *fakeNode) ProtocolParameters(_ context.Context, out string) error {
	return os.WriteFile(out, []byte("{}"), 0600)
}

func (f *fakeNode) BuildRaw(_ context.Context, a cardano.BuildRawArgs) error {
	f.builds = append(f.builds, a)
	return os.WriteFile(a.OutFile, []byte("body"), 0600)
}

func (f *fakeNode) CalculateMinFee(_ context.Context, a cardano.FeeArgs) (int64, error) {
	f.feeArgs = a
	return f.minFee, nil
}

func (f *fakeNode) Sign(_ context.Context, _ string, keys []string, out string) error {
	f.signed = keys
	return os.WriteFile(out, []byte("signed"), 0600)
}

func (f *fakeNode) Submit(_ context.Context, tx string) error {
	f.submitted = tx
	return f.submitErr
}

func (f *fakeNode) TxID(context.Context, string) (string, error) {
	return "feedface", nil
}

func mustUTXO(t *testing.T, line string) *utxo.UTXO {
	t.Helper()
	u, err := utxo.Parse(line)
	if err != nil {
		t.Fatalf("Parse(%q): %v", line, err)
	}
	return u
}

// mintTx mints two pol.New into the wallet that funds the transaction.
func mintTx(t *testing.T) (*Builder, *receiver.Output) {
	t.Helper()
	in := mustUTXO(t, "abcd 0 5000000 lovelace + 3 pol.Old")
	change := in.ToOutput("addr1")
	mint := receiver.NewMintLedger()
	mint.Mint("pol.New", 2)
	change.AddToken("pol.New", 2)

	b := NewBuilder().
		AddInput(in).
		SetChange(change).
		SetMint(mint, "policy.script").
		SetInvalidHereafter(9000)
	return b, change
}

func TestFlow_Prepare(t *testing.T) {
	node := &fakeNode{minFee: 170000}
	flow := NewFlow(node, Options{TmpDir: t.TempDir()})
	b, change := mintTx(t)

	p, err := flow.Prepare(context.Background(), b, 2)
	if err != nil {
		t.Fatalf("Prepare() error: %v", err)
	}
	defer p.Cleanup()

	if p.Fee != 340000 {
		t.Errorf("fee = %d, want 340000", p.Fee)
	}
	if change.Base() != 5000000-340000 {
		t.Errorf("change base = %d", change.Base())
	}
	if len(node.builds) != 2 {
		t.Fatalf("build-raw calls = %d, want 2", len(node.builds))
	}

	draft, final := node.builds[0], node.builds[1]
	if draft.Fee != 0 {
		t.Errorf("draft fee = %d, want 0", draft.Fee)
	}
	if draft.TxOuts[0] != "addr1+5000000+2 pol.New + 3 pol.Old" {
		t.Errorf("draft tx-out = %q", draft.TxOuts[0])
	}
	if final.Fee != 340000 || final.TxOuts[0] != "addr1+4660000+2 pol.New + 3 pol.Old" {
		t.Errorf("final = fee %d tx-out %q", final.Fee, final.TxOuts[0])
	}
	if final.Mint != "2 pol.New" || final.MintScripts[0] != "policy.script" || final.InvalidHereafter != 9000 {
		t.Errorf("final mint args = %+v", final)
	}
	if final.TxIns[0] != "abcd#0" {
		t.Errorf("tx-in = %q", final.TxIns[0])
	}
	if node.feeArgs.TxIns != 1 || node.feeArgs.TxOuts != 1 || node.feeArgs.Witnesses != 2 {
		t.Errorf("fee args = %+v", node.feeArgs)
	}
	if filepath.Dir(p.BodyPath) != p.WorkDir {
		t.Errorf("body %s outside work dir %s", p.BodyPath, p.WorkDir)
	}
}

func TestFlow_SignSubmit(t *testing.T) {
	node := &fakeNode{minFee: 100000}
	flow := NewFlow(node, Options{TmpDir: t.TempDir(), FeeMultiplier: 1})
	b, _ := mintTx(t)

	p, err := flow.Prepare(context.Background(), b, 2)
	if err != nil {
		t.Fatalf("Prepare() error: %v", err)
	}
	if err := flow.Submit(context.Background(), p); err == nil {
		t.Error("Submit() before Sign() should fail")
	}
	if err := flow.Sign(context.Background(), p, []string{"payment.skey", "policy.skey"}); err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	if p.TxID != "feedface" || len(node.signed) != 2 {
		t.Errorf("txid=%q signed=%v", p.TxID, node.signed)
	}
	if err := flow.Submit(context.Background(), p); err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if node.submitted != p.SignedPath {
		t.Errorf("submitted %q, want %q", node.submitted, p.SignedPath)
	}

	p.Cleanup()
	if _, err := os.Stat(p.WorkDir); !os.IsNotExist(err) {
		t.Error("Cleanup() should remove the work dir")
	}
}

func TestFlow_KeepWorkDir(t *testing.T) {
	flow := NewFlow(&fakeNode{minFee: 1}, Options{TmpDir: t.TempDir(), Keep: true})
	b, _ := mintTx(t)
	p, err := flow.Prepare(context.Background(), b, 1)
	if err != nil {
		t.Fatalf("Prepare() error: %v", err)
	}
	p.Cleanup()
	if _, err := os.Stat(p.BodyPath); err != nil {
		t.Errorf("kept body missing: %v", err)
	}
}

func TestFlow_FeeTooLarge(t *testing.T) {
	flow := NewFlow(&fakeNode{minFee: 3000000}, Options{TmpDir: t.TempDir()})
	b, _ := mintTx(t)
	_, err := flow.Prepare(context.Background(), b, 1)
	if !errors.Is(err, balance.ErrNegativeBalance) {
		t.Errorf("error = %v, want ErrNegativeBalance", err)
	}
}

func TestFlow_NoChange(t *testing.T) {
	flow := NewFlow(&fakeNode{}, Options{TmpDir: t.TempDir()})
	b := NewBuilder().AddInput(mustUTXO(t, "a 0 1 lovelace")).AddOutput(receiver.NewOutput("x"))
	if _, err := flow.Prepare(context.Background(), b, 1); !errors.Is(err, ErrNoChange) {
		t.Errorf("error = %v, want ErrNoChange", err)
	}
}

func TestBuilder_Validate(t *testing.T) {
	t.Run("balanced", func(t *testing.T) {
		b, _ := mintTx(t)
		if err := b.Validate(); err != nil {
			t.Errorf("Validate() error: %v", err)
		}
	})
	t.Run("mint not delivered", func(t *testing.T) {
		b, change := mintTx(t)
		change.RemoveToken("pol.New", 2)
		if err := b.Validate(); !errors.Is(err, ErrUnbalanced) {
			t.Errorf("Validate() error = %v, want ErrUnbalanced", err)
		}
	})
	t.Run("burn", func(t *testing.T) {
		in := mustUTXO(t, "abcd 0 5000000 lovelace + 3 pol.Old")
		change := in.ToOutput("addr1")
		mint := receiver.NewMintLedger()
		mint.Burn("pol.Old", 3)
		change.RemoveToken("pol.Old", 3)
		b := NewBuilder().AddInput(in).SetChange(change).SetMint(mint)
		if err := b.Validate(); err != nil {
			t.Errorf("Validate() error: %v", err)
		}
		if change.Balance().Has("pol.Old") {
			t.Error("burned token still in change")
		}
	})
	t.Run("split payment", func(t *testing.T) {
		in := mustUTXO(t, "abcd 0 5000000 lovelace")
		change := in.ToOutput("addr1")
		pay := receiver.NewOutput("addr2")
		pay.AddBase(1500000)
		change.RemoveBase(1500000)
		b := NewBuilder().AddInput(in).AddOutput(pay).SetChange(change)
		if err := b.Validate(); err != nil {
			t.Errorf("Validate() error: %v", err)
		}
	})
	t.Run("empty", func(t *testing.T) {
		if err := NewBuilder().Validate(); !errors.Is(err, ErrNoInputs) {
			t.Errorf("Validate() error = %v, want ErrNoInputs", err)
		}
		b := NewBuilder().AddInput(mustUTXO(t, "a 0 1 lovelace"))
		if err := b.Validate(); !errors.Is(err, ErrNoOutputs) {
			t.Errorf("Validate() error = %v, want ErrNoOutputs", err)
		}
	})
}

func TestApplyMultiplier(t *testing.T) {
	tests := []struct {
		fee  int64
		mult float64
		want int64
	}{
		{170000, 2, 340000},
		{170001, 1.5, 255002},
		{100, 0, 100},
		{100, 0.5, 100},
		{0, 2, 0},
	}
	for _, tt := range tests {
		if got := ApplyMultiplier(tt.fee, tt.mult); got != tt.want {
			t.Errorf("ApplyMultiplier(%d, %v) = %d, want %d", tt.fee, tt.mult, got, tt.want)
		}
	}
}
