package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/Klingon-tech/automint/internal/explorer"
	"github.com/Klingon-tech/automint/internal/log"
	"github.com/Klingon-tech/automint/internal/metadata"
	"github.com/Klingon-tech/automint/internal/policy"
	"github.com/Klingon-tech/automint/internal/receiver"
	"github.com/Klingon-tech/automint/internal/txbuilder"
	"github.com/Klingon-tech/automint/internal/utxo"
	"github.com/Klingon-tech/automint/internal/wallet"
	"github.com/Klingon-tech/automint/pkg/balance"
)

// txFlags are shared by every command that submits a transaction.
type txFlags struct {
	yes    *bool
	dryRun *bool
}

func addTxFlags(fs *flag.FlagSet) txFlags {
	return txFlags{
		yes:    fs.Bool("yes", false, "Submit without asking"),
		dryRun: fs.Bool("dry-run", false, "Build and show the transaction, do not sign or submit"),
	}
}

// tokenNames returns --tokens, or --prefix/--count expanded to
// <prefix>00, <prefix>01, ...
func tokenNames(tokens, prefix string, count int) []string {
	if names := splitList(tokens); len(names) > 0 {
		return names
	}
	if prefix == "" || count <= 0 {
		return nil
	}
	names := make([]string, count)
	for i := range names {
		names[i] = fmt.Sprintf("%s%02d", prefix, i)
	}
	return names
}

// invalidHereafter returns the validity upper bound for a transaction
// built now: tip + ttl, kept below the policy lock slot when there is one.
func (a *app) invalidHereafter(ctx context.Context, p *policy.Policy) uint64 {
	tip, err := a.node.QueryTip(ctx)
	if err != nil {
		fatal("query tip: %v", err)
	}
	slot := tip.Slot + a.cfg.Tx.TTL
	if p == nil {
		return slot
	}
	if lock, ok := p.Script.LockSlot(); ok {
		if tip.Slot >= lock {
			fatal("policy %s locked at slot %d (tip is %d)", p.ID, lock, tip.Slot)
		}
		if slot >= lock {
			slot = lock - 1
		}
	}
	return slot
}

// ── mint / burn ─────────────────────────────────────────────────────────

func (a *app) cmdMint(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("mint", flag.ContinueOnError)
	tokens := fs.String("tokens", "", "Comma-separated asset names")
	prefix := fs.String("prefix", "", "Asset name prefix (with --count)")
	count := fs.Int("count", 0, "Number of assets <prefix>00.. to mint")
	amount := fs.Int64("amount", 1, "Quantity of each asset")
	metaFile := fs.String("metadata", "", "721 metadata JSON file")
	utxoID := fs.String("utxo", "", "UTXO to spend (default: automatic selection)")
	tf := addTxFlags(fs)
	parseFlags(fs, args)

	names := tokenNames(*tokens, *prefix, *count)
	if len(names) == 0 || *amount <= 0 {
		fatal("Usage: automint mint (--tokens <name,...> | --prefix <p> --count <n>) [--amount <n>] [--metadata <file>] [--utxo <id>]")
	}
	a.mintOrBurn(ctx, names, *amount, *metaFile, *utxoID, false, tf)
}

func (a *app) cmdBurn(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("burn", flag.ContinueOnError)
	tokens := fs.String("tokens", "", "Comma-separated asset names")
	prefix := fs.String("prefix", "", "Asset name prefix (with --count)")
	count := fs.Int("count", 0, "Number of assets <prefix>00.. to burn")
	amount := fs.Int64("amount", 1, "Quantity of each asset")
	utxoID := fs.String("utxo", "", "UTXO holding the assets (default: first that holds them all)")
	tf := addTxFlags(fs)
	parseFlags(fs, args)

	names := tokenNames(*tokens, *prefix, *count)
	if len(names) == 0 || *amount <= 0 {
		fatal("Usage: automint burn (--tokens <name,...> | --prefix <p> --count <n>) [--amount <n>] [--utxo <id>]")
	}
	a.mintOrBurn(ctx, names, *amount, "", *utxoID, true, tf)
}

func (a *app) mintOrBurn(ctx context.Context, names []string, amount int64, metaFile, utxoID string, burn bool, tf txFlags) {
	p, err := policy.Load(a.cfg.PolicyDir())
	if err != nil {
		fatal("%v", err)
	}
	if metaFile != "" {
		if err := metadata.ValidateFile(metaFile, p.ID, names); err != nil {
			fatal("%v", err)
		}
	}

	payment := a.openWallet(ctx, a.cfg.Wallet.Payment)
	policyWallet := a.openWallet(ctx, a.cfg.Wallet.Policy)

	set, err := payment.Query(ctx, a.node)
	if err != nil {
		fatal("%v", err)
	}
	if set.Len() == 0 {
		fatal("%v: fund %s first", wallet.ErrNoUTXOs, payment.Address())
	}

	ids := make([]string, len(names))
	for i, name := range names {
		ids[i] = p.TokenID(name)
	}

	var in *utxo.UTXO
	if burn && utxoID == "" {
		in, err = selectHolding(set, ids, amount)
	} else {
		in, err = payment.SelectUTXO(utxoID)
	}
	if err != nil {
		fatal("select utxo: %v", err)
	}
	log.CLI.Info().Str("utxo", in.String()).Str("value", in.Value.String()).Msg("Spending")

	change := in.ToOutput(payment.Address())
	mint := receiver.NewMintLedger()
	for _, id := range ids {
		if burn {
			err = mint.Burn(id, amount)
			if err == nil {
				err = change.RemoveToken(id, amount)
			}
		} else {
			err = mint.Mint(id, amount)
			if err == nil {
				err = change.AddToken(id, amount)
			}
		}
		if err != nil {
			fatal("%s: %v", id, err)
		}
	}

	b := txbuilder.NewBuilder().
		AddInput(in).
		SetChange(change).
		SetMint(mint, p.ScriptPath).
		SetInvalidHereafter(a.invalidHereafter(ctx, p))
	if metaFile != "" {
		b.SetMetadata(metaFile)
	}

	a.runTx(ctx, b, []*wallet.Wallet{payment, policyWallet}, tf)
}

// selectHolding returns the first UTXO, in selection order, holding at
// least qty of every id.
func selectHolding(set *utxo.Set, ids []string, qty int64) (*utxo.UTXO, error) {
	for _, u := range set.All() {
		ok := true
		for _, id := range ids {
			if u.Value.Quantity(id) < qty {
				ok = false
				break
			}
		}
		if ok {
			return u, nil
		}
	}
	return nil, fmt.Errorf("%w: no utxo holds %d of each of %v", wallet.ErrNoSelectableUTXO, qty, ids)
}

// ── send ────────────────────────────────────────────────────────────────

func (a *app) cmdSend(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	to := fs.String("to", "", "Recipient address")
	amountStr := fs.String("amount", "", "Amount in ADA (e.g. 1.5)")
	utxoID := fs.String("utxo", "", "UTXO to spend (default: coin selection)")
	tf := addTxFlags(fs)
	parseFlags(fs, args)

	if *to == "" || *amountStr == "" {
		fatal("Usage: automint send --to <addr> --amount <ada> [--utxo <id>]")
	}
	amount, err := balance.ParseScaled(*amountStr)
	if err != nil {
		fatal("invalid amount: %v", err)
	}
	if amount == 0 {
		fatal("amount must be positive")
	}

	payment := a.openWallet(ctx, a.cfg.Wallet.Payment)
	set, err := payment.Query(ctx, a.node)
	if err != nil {
		fatal("%v", err)
	}

	var inputs []*utxo.UTXO
	if *utxoID != "" {
		in, err := payment.SelectUTXO(*utxoID)
		if err != nil {
			fatal("%v", err)
		}
		inputs = []*utxo.UTXO{in}
	} else {
		// Leave room for the fee and a change output above the minimum.
		sel, err := wallet.SelectCoins(set.All(), amount+a.cfg.Select.MinLovelace)
		if err != nil {
			fatal("coin selection: %v", err)
		}
		inputs = sel.Inputs
	}

	b := txbuilder.NewBuilder()
	change := receiver.NewOutput(payment.Address())
	for _, in := range inputs {
		b.AddInput(in)
		if err := in.ToOutput(payment.Address()).TransferTo(change.Holder); err != nil {
			fatal("%v", err)
		}
	}
	if err := change.RemoveBase(amount); err != nil {
		fatal("%v", err)
	}
	recipient := receiver.NewOutput(*to)
	if err := recipient.AddBase(amount); err != nil {
		fatal("%v", err)
	}

	b.AddOutput(recipient).
		SetChange(change).
		SetInvalidHereafter(a.invalidHereafter(ctx, nil))

	a.runTx(ctx, b, []*wallet.Wallet{payment}, tf)
}

// ── refund ──────────────────────────────────────────────────────────────

func (a *app) cmdRefund(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("refund", flag.ContinueOnError)
	to := fs.String("to", "", "Refund address (default: sender, looked up on the block explorer)")
	tf := addTxFlags(fs)
	parseFlags(fs, args)

	if fs.NArg() != 1 {
		fatal("Usage: automint refund [--to <addr>] <tx_hash>#<index>")
	}
	id := fs.Arg(0)

	payment := a.openWallet(ctx, a.cfg.Wallet.Payment)
	if _, err := payment.Query(ctx, a.node); err != nil {
		fatal("%v", err)
	}
	in, err := payment.SelectUTXO(id)
	if err != nil {
		fatal("%v", err)
	}

	addr := *to
	if addr == "" {
		addr, err = explorer.New(a.cfg.Explorer.URL).ReturnAddress(ctx, id)
		if err != nil {
			fatal("find sender of %s: %v", id, err)
		}
	}
	log.CLI.Info().Str("utxo", id).Str("to", addr).Msg("Refunding")

	b := txbuilder.NewBuilder().
		AddInput(in).
		SetChange(in.ToOutput(addr)).
		SetInvalidHereafter(a.invalidHereafter(ctx, nil))

	a.runTx(ctx, b, []*wallet.Wallet{payment}, tf)
}

// ── transaction flow ────────────────────────────────────────────────────

// runTx prepares, signs and submits b. Every wallet in signers signs.
func (a *app) runTx(ctx context.Context, b *txbuilder.Builder, signers []*wallet.Wallet, tf txFlags) {
	if err := a.executeTx(ctx, a.node, b, signers, tf); err != nil {
		fatal("%v", err)
	}
}

// executeTx prepares, signs and submits b. The work directory and any
// unsealed keys are removed on every return path.
func (a *app) executeTx(ctx context.Context, node txbuilder.Node, b *txbuilder.Builder, signers []*wallet.Wallet, tf txFlags) error {
	flow := txbuilder.NewFlow(node, txbuilder.Options{
		TmpDir:        a.cfg.TmpDir(),
		FeeMultiplier: a.cfg.Fee.Multiplier,
		Witnesses:     a.cfg.Fee.Witnesses,
		Keep:          a.cfg.Tx.Keep || *tf.dryRun,
	})

	p, err := flow.Prepare(ctx, b, len(signers))
	if p != nil {
		defer p.Cleanup()
	}
	if err != nil {
		return fmt.Errorf("prepare transaction: %w", err)
	}

	printTx(b, p)
	if *tf.dryRun {
		fmt.Printf("\nDry run: body left at %s\n", p.BodyPath)
		return nil
	}

	skeys, wipe, err := signingKeys(p.WorkDir, signers)
	if err != nil {
		return err
	}
	err = flow.Sign(ctx, p, skeys)
	wipe()
	if err != nil {
		return err
	}
	fmt.Printf("Transaction ID: %s\n", p.TxID)

	if !*tf.yes && !confirm("Submit transaction?") {
		fmt.Println("Not submitted (pass --yes to submit without a prompt)")
		return nil
	}
	if err := flow.Submit(ctx, p); err != nil {
		return fmt.Errorf("submit: %w", err)
	}

	// The spent inputs make the cached snapshot stale.
	if a.store != nil {
		for _, w := range signers {
			if err := a.store.Forget(w.Address()); err != nil {
				log.Storage.Warn().Err(err).Str("wallet", w.Name()).Msg("Failed to drop stale snapshot")
			}
		}
	}
	fmt.Printf("Submitted: %s\n", p.TxID)
	return nil
}

// signingKeys collects a signing key path per wallet, unsealing sealed keys
// into workDir. wipe removes the unsealed copies.
func signingKeys(workDir string, signers []*wallet.Wallet) ([]string, func(), error) {
	var cleanups []func()
	wipe := func() {
		for _, c := range cleanups {
			c()
		}
	}

	skeys := make([]string, 0, len(signers))
	for _, w := range signers {
		var password []byte
		if w.Sealed() {
			pw, err := readPassword(fmt.Sprintf("Password for %s: ", w.Name()))
			if err != nil {
				wipe()
				return nil, nil, fmt.Errorf("read password: %w", err)
			}
			password = pw
		}
		path, cleanup, err := w.SigningKey(workDir, password)
		if err != nil {
			wipe()
			return nil, nil, fmt.Errorf("signing key for %s: %w", w.Name(), err)
		}
		cleanups = append(cleanups, cleanup)
		skeys = append(skeys, path)
	}
	return skeys, wipe, nil
}

func printTx(b *txbuilder.Builder, p *txbuilder.Prepared) {
	fmt.Println("Inputs:")
	for _, in := range b.Inputs() {
		fmt.Printf("  %s  %s\n", in, in.Value.Arg())
	}
	fmt.Println("Outputs:")
	for _, o := range b.Outputs() {
		fmt.Printf("  %s\n", o.Arg())
	}
	if m := b.Mint(); !m.IsEmpty() {
		fmt.Printf("Mint:  %s\n", m.MintArg())
	}
	fmt.Printf("Fee:   %s ADA\n", balance.FormatScaled(p.Fee))
}
