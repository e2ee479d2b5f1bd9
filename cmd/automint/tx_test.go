package main

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/Klingon-tech/automint/config"
	"github.com/Klingon-tech/automint/internal/cardano"
	"github.com/Klingon-tech/automint/internal/txbuilder"
	"github.com/Klingon-tech/automint/internal/utxo"
)

type fakeNode struct {
	signErr   error
	submitted bool
}

func (f *fakeNode) ProtocolParameters(_ context.Context, out string) error {
	return os.WriteFile(out, []byte("{}"), 0600)
}

func (f *fakeNode) BuildRaw(_ context.Context, a cardano.BuildRawArgs) error {
	return os.WriteFile(a.OutFile, []byte("body"), 0600)
}

func (f *fakeNode) CalculateMinFee(context.Context, cardano.FeeArgs) (int64, error) {
	return 170000, nil
}

func (f *fakeNode) Sign(_ context.Context, _ string, _ []string, out string) error {
	if f.signErr != nil {
		return f.signErr
	}
	return os.WriteFile(out, []byte("signed"), 0600)
}

func (f *fakeNode) Submit(context.Context, string) error {
	f.submitted = true
	return nil
}

func (f *fakeNode) TxID(context.Context, string) (string, error) {
	return "feedface", nil
}

func testApp(t *testing.T) *app {
	t.Helper()
	cfg := config.Default(config.Testnet)
	cfg.DataDir = t.TempDir()
	if err := os.MkdirAll(cfg.TmpDir(), 0700); err != nil {
		t.Fatal(err)
	}
	return &app{cfg: cfg}
}

func spendTx(t *testing.T) *txbuilder.Builder {
	t.Helper()
	in, err := utxo.Parse("abcd 0 5000000 lovelace")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return txbuilder.NewBuilder().
		AddInput(in).
		SetChange(in.ToOutput("addr_test1")).
		SetInvalidHereafter(9000)
}

func workDirs(t *testing.T, a *app) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(a.cfg.TmpDir())
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	return entries
}

func TestExecuteTx_FailureRemovesWorkDir(t *testing.T) {
	a := testApp(t)
	boom := errors.New("node unreachable")
	node := &fakeNode{signErr: boom}
	yes, dry := true, false

	err := a.executeTx(context.Background(), node, spendTx(t), nil, txFlags{yes: &yes, dryRun: &dry})
	if !errors.Is(err, boom) {
		t.Fatalf("executeTx error = %v, want %v", err, boom)
	}
	if node.submitted {
		t.Error("failed transaction was submitted")
	}
	if left := workDirs(t, a); len(left) != 0 {
		t.Errorf("work dirs left behind: %d", len(left))
	}
}

func TestExecuteTx_Submit(t *testing.T) {
	a := testApp(t)
	node := &fakeNode{}
	yes, dry := true, false

	if err := a.executeTx(context.Background(), node, spendTx(t), nil, txFlags{yes: &yes, dryRun: &dry}); err != nil {
		t.Fatalf("executeTx: %v", err)
	}
	if !node.submitted {
		t.Error("transaction not submitted")
	}
	if left := workDirs(t, a); len(left) != 0 {
		t.Errorf("work dirs left behind: %d", len(left))
	}
}

func TestExecuteTx_DryRunKeepsBody(t *testing.T) {
	a := testApp(t)
	node := &fakeNode{}
	yes, dry := false, true

	if err := a.executeTx(context.Background(), node, spendTx(t), nil, txFlags{yes: &yes, dryRun: &dry}); err != nil {
		t.Fatalf("executeTx: %v", err)
	}
	if node.submitted {
		t.Error("dry run submitted the transaction")
	}
	if left := workDirs(t, a); len(left) != 1 {
		t.Errorf("work dirs = %d, want 1", len(left))
	}
}
