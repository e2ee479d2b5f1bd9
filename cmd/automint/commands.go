package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/Klingon-tech/automint/config"
	"github.com/Klingon-tech/automint/internal/cardano"
	"github.com/Klingon-tech/automint/internal/explorer"
	"github.com/Klingon-tech/automint/internal/metadata"
	"github.com/Klingon-tech/automint/internal/policy"
	"github.com/Klingon-tech/automint/internal/utxo"
	"github.com/Klingon-tech/automint/internal/wallet"
	"github.com/Klingon-tech/automint/pkg/balance"
)

// ── init ────────────────────────────────────────────────────────────────

func (a *app) cmdInit(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	force := fs.Bool("force", false, "Overwrite an existing policy")
	lockSlots := fs.Uint64("lock-slots", a.cfg.Policy.LockSlots, "Policy time lock in slots past the tip (0 = none)")
	parseFlags(fs, args)

	payment := a.openWallet(ctx, a.cfg.Wallet.Payment)
	policyWallet := a.openWallet(ctx, a.cfg.Wallet.Policy)

	p, err := policy.Setup(ctx, a.node, a.cfg.PolicyDir(), policyWallet.VkeyPath(), policy.Options{
		LockSlots: *lockSlots,
		Force:     *force,
	})
	if err != nil {
		fatal("policy setup: %v", err)
	}

	fmt.Printf("Payment address: %s\n", payment.Address())
	fmt.Printf("Policy address:  %s\n", policyWallet.Address())
	fmt.Printf("Policy ID:       %s\n", p.ID)
	if slot, ok := p.Script.LockSlot(); ok {
		fmt.Printf("Policy locks at: slot %d\n", slot)
	}
	fmt.Printf("\nFund the payment address (~5 ADA) before minting.\n")
}

// ── addresses ───────────────────────────────────────────────────────────

func (a *app) cmdAddresses(ctx context.Context) {
	payment := a.openWallet(ctx, a.cfg.Wallet.Payment)
	policyWallet := a.openWallet(ctx, a.cfg.Wallet.Policy)

	fmt.Printf("Payment: %s\n", payment.Address())
	fmt.Printf("Policy:  %s\n", policyWallet.Address())
	if p, err := policy.Load(a.cfg.PolicyDir()); err == nil {
		fmt.Printf("Policy ID: %s\n", p.ID)
	}
}

// ── utxos ───────────────────────────────────────────────────────────────

func (a *app) cmdUTXOs(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("utxos", flag.ContinueOnError)
	role := fs.String("wallet", "payment", "Wallet: payment, policy or a key name")
	cached := fs.Bool("cached", false, "Show the last cached snapshot without querying the node")
	parseFlags(fs, args)

	w := a.openWallet(ctx, a.walletByRole(*role))

	var set *utxo.Set
	if *cached {
		if a.store == nil {
			fatal("--cached needs the cache (remove --no-cache)")
		}
		s, snap, err := a.store.Load(w.Address())
		if err != nil {
			fatal("%v", err)
		}
		fmt.Printf("Snapshot from %s\n", snap.FetchedAt.Local().Format(time.DateTime))
		set = s
	} else {
		s, err := w.Query(ctx, a.node)
		if err != nil {
			fatal("%v", err)
		}
		set = s
	}

	if set.Len() == 0 {
		fmt.Printf("No UTXOs at %s\n", w.Address())
		return
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "UTXO\tADA\tASSETS\tCONTENTS")
	for _, u := range set.All() {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", u, balance.FormatScaled(u.Base()), u.Value.TokenCount(), u.Value.Arg())
	}
	tw.Flush()

	total := set.Total()
	fmt.Printf("\nTotal: %s ADA in %d UTXOs\n", balance.FormatScaled(total.Base()), set.Len())

	if u, err := wallet.SelectDefault(set, wallet.Policy{MinLovelace: a.cfg.Select.MinLovelace}); err == nil {
		fmt.Printf("Default selection: %s\n", u)
	}
}

// ── cache ───────────────────────────────────────────────────────────────

func (a *app) cmdCache(args []string) {
	if len(args) != 1 || args[0] != "clear" {
		fatal("Usage: automint cache clear")
	}
	if a.ns == nil {
		fatal("the cache is disabled")
	}
	n, err := a.ns.DeleteAll()
	if err != nil {
		fatal("clear cache: %v", err)
	}
	fmt.Printf("Removed %d cached entries for %s\n", n, a.cfg.Network)
}

// ── tip ─────────────────────────────────────────────────────────────────

func (a *app) cmdTip(ctx context.Context) {
	tip, err := a.node.QueryTip(ctx)
	if err != nil {
		fatal("%v", err)
	}
	fmt.Printf("Network: %s\n", a.node.Network())
	fmt.Printf("Era:     %s\n", tip.Era)
	fmt.Printf("Epoch:   %d\n", tip.Epoch)
	fmt.Printf("Block:   %d\n", tip.Block)
	fmt.Printf("Slot:    %d\n", tip.Slot)
	fmt.Printf("Hash:    %s\n", tip.Hash)
	if tip.SyncProgress != "" {
		fmt.Printf("Sync:    %s%%\n", tip.SyncProgress)
	}
}

// ── version ─────────────────────────────────────────────────────────────

func cmdVersion(ctx context.Context, node *cardano.Client) {
	fmt.Printf("automint %s\n", version)
	v, err := node.Version(ctx)
	if err != nil {
		fmt.Printf("cardano-cli: unavailable (%v)\n", err)
		return
	}
	fmt.Printf("%s\n", v)
}

// ── seal ────────────────────────────────────────────────────────────────

func (a *app) cmdSeal(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("seal", flag.ContinueOnError)
	role := fs.String("wallet", "payment", "Wallet: payment, policy or a key name")
	parseFlags(fs, args)

	name := a.walletByRole(*role)
	w := a.openWallet(ctx, name)
	if w.Sealed() {
		fmt.Printf("Signing key for %s is already sealed\n", name)
		return
	}

	password, err := readPassword("New password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	again, err := readPassword("Repeat password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	if len(password) == 0 {
		fatal("password must not be empty")
	}
	if !bytes.Equal(password, again) {
		fatal("passwords do not match")
	}

	if err := w.Seal(password, wallet.DefaultSealParams()); err != nil {
		fatal("seal: %v", err)
	}
	fmt.Printf("Sealed %s%s\n", w.SkeyPath(), wallet.SealedExt)
}

// ── validate-metadata ───────────────────────────────────────────────────

func (a *app) cmdValidateMetadata(args []string) {
	fs := flag.NewFlagSet("validate-metadata", flag.ContinueOnError)
	file := fs.String("file", "", "Metadata JSON file")
	tokens := fs.String("tokens", "", "Comma-separated asset names")
	policyID := fs.String("policy", "", "Policy id (default: the initialized policy)")
	parseFlags(fs, args)

	if *file == "" || *tokens == "" {
		fatal("Usage: automint validate-metadata --file <path> --tokens <name,...> [--policy <id>]")
	}
	id := *policyID
	if id == "" {
		p, err := policy.Load(a.cfg.PolicyDir())
		if err != nil {
			fatal("%v", err)
		}
		id = p.ID
	}

	if err := metadata.ValidateFile(*file, id, splitList(*tokens)); err != nil {
		fatal("%v", err)
	}
	fmt.Println("Metadata OK")
}

// ── explorer ────────────────────────────────────────────────────────────

func cmdReturnAddress(ctx context.Context, cfg *config.Config, args []string) {
	if len(args) != 1 {
		fatal("Usage: automint return-address <tx_hash>#<index>")
	}
	addr, err := explorer.New(cfg.Explorer.URL).ReturnAddress(ctx, args[0])
	if errors.Is(err, explorer.ErrNotFound) {
		fatal("no sender address found for %s", args[0])
	}
	if err != nil {
		fatal("%v", err)
	}
	fmt.Println(addr)
}

func cmdStakeKey(ctx context.Context, cfg *config.Config, args []string) {
	if len(args) != 1 {
		fatal("Usage: automint stake-key <address>")
	}
	key, err := explorer.New(cfg.Explorer.URL).StakeKey(ctx, args[0])
	if errors.Is(err, explorer.ErrNotFound) {
		fatal("no stake key found for %s", args[0])
	}
	if err != nil {
		fatal("%v", err)
	}
	fmt.Println(key)
}
