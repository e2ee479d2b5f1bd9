// automint mints, burns and sends Cardano native tokens by driving
// cardano-cli.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/Klingon-tech/automint/config"
	"github.com/Klingon-tech/automint/internal/cardano"
	"github.com/Klingon-tech/automint/internal/log"
	"github.com/Klingon-tech/automint/internal/storage"
	"github.com/Klingon-tech/automint/internal/utxo"
	"github.com/Klingon-tech/automint/internal/wallet"
)

const version = "0.1.0"

// app is the state shared by every command.
type app struct {
	cfg   *config.Config
	node  *cardano.Client
	db    storage.DB        // nil when the cache is disabled
	ns    *storage.PrefixDB // this network's view of db
	store *utxo.Store       // nil when the cache is disabled
}

func main() {
	cfg, flags, err := config.Load(os.Args[1:])
	if errors.Is(err, config.ErrHelp) {
		usage()
		return
	}
	if err != nil {
		fatal("%v", err)
	}
	if len(flags.Args) == 0 {
		usage()
		os.Exit(1)
	}

	if err := log.Init(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File, string(cfg.Network)); err != nil {
		fatal("init logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := flags.Args[0]
	cmdArgs := flags.Args[1:]

	switch cmd {
	case "version":
		cmdVersion(ctx, newNode(cfg))
		return
	case "help":
		usage()
		return
	case "return-address":
		cmdReturnAddress(ctx, cfg, cmdArgs)
		return
	case "stake-key":
		cmdStakeKey(ctx, cfg, cmdArgs)
		return
	}

	a, err := newApp(cfg)
	if err != nil {
		fatal("%v", err)
	}
	defer a.close()

	switch cmd {
	case "init":
		a.cmdInit(ctx, cmdArgs)
	case "addresses":
		a.cmdAddresses(ctx)
	case "utxos":
		a.cmdUTXOs(ctx, cmdArgs)
	case "tip":
		a.cmdTip(ctx)
	case "mint":
		a.cmdMint(ctx, cmdArgs)
	case "burn":
		a.cmdBurn(ctx, cmdArgs)
	case "send":
		a.cmdSend(ctx, cmdArgs)
	case "refund":
		a.cmdRefund(ctx, cmdArgs)
	case "cache":
		a.cmdCache(cmdArgs)
	case "seal":
		a.cmdSeal(ctx, cmdArgs)
	case "validate-metadata":
		a.cmdValidateMetadata(cmdArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: automint [global flags] <command> [flags]

Global flags:
  --network <net>       mainnet (default) or testnet
  --testnet-magic <n>   Testnet magic (default: 1)
  --datadir <path>      Data directory (default: ~/.automint)
  --config <path>       Config file (default: <datadir>/automint.conf)
  --cli <path>          cardano-cli binary (default: cardano-cli)
  --cli-timeout <dur>   Per-command timeout (default: 2m)
  --socket <path>       cardano-node socket (CARDANO_NODE_SOCKET_PATH)
  --fee-multiplier <x>  Multiplier on the calculated minimum fee (default: 2)
  --ttl <slots>         Slots past the tip before a transaction expires (default: 3600)
  --keep                Keep per-run transaction files under <network>/tmp
  --retries <n>         Submit retries on transient failures (default: 3)
  --no-cache            Do not read or write the local UTXO snapshot cache
  --loglevel <level>    trace, debug, info (default), warn, error
  --logfile <path>      Also write JSON logs to a file
  --log-json            JSON console logs

Commands:
  init                  Create payment and policy keys and the minting policy
  addresses             Show wallet addresses and the policy id
  utxos                 List UTXOs at a wallet address
  tip                   Show the chain tip
  mint                  Mint tokens into the payment wallet
  burn                  Burn tokens held by the payment wallet
  send                  Send ADA from the payment wallet
  refund                Return a received UTXO to its sender
  cache clear           Drop this network's cached UTXO snapshots
  seal                  Encrypt a wallet signing key with a password
  validate-metadata     Check a 721 metadata file against the policy
  return-address        Show the sender of a UTXO (block explorer)
  stake-key             Show the stake key of an address (block explorer)
  version               Show automint and cardano-cli versions

Run 'automint <command> -h' for command flags.
`)
}

// newNode creates the cardano-cli client for cfg.
func newNode(cfg *config.Config) *cardano.Client {
	var env []string
	if cfg.CLI.SocketPath != "" {
		env = append(env, "CARDANO_NODE_SOCKET_PATH="+cfg.CLI.SocketPath)
	}
	return cardano.New(cardano.Options{
		Path: cfg.CLI.Path,
		Network: cardano.Network{
			Mainnet: cfg.Network == config.Mainnet,
			Magic:   cfg.TestnetMagic,
		},
		Timeout: cfg.CLI.Timeout,
		Retries: cfg.Submit.Retries,
		Runner:  cardano.ExecRunner{Env: env},
	})
}

func newApp(cfg *config.Config) (*app, error) {
	if err := config.EnsureDataDirs(cfg); err != nil {
		return nil, fmt.Errorf("ensuring data dirs: %w", err)
	}
	a := &app{cfg: cfg, node: newNode(cfg)}

	if cfg.Cache.Enabled {
		bdb, err := storage.NewBadger(cfg.CacheDir())
		if err != nil {
			return nil, fmt.Errorf("open cache: %w", err)
		}
		a.db = bdb
		// Mainnet and testnet snapshots share one database.
		a.ns = storage.NewPrefixDB(bdb, []byte(string(cfg.Network)+"/"))
		a.store = utxo.NewStore(a.ns)
	}

	log.CLI.Debug().
		Str("network", string(cfg.Network)).
		Str("datadir", cfg.DataDir).
		Bool("cache", cfg.Cache.Enabled).
		Msg("Starting")
	return a, nil
}

func (a *app) close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.Storage.Warn().Err(err).Msg("Failed to close cache")
		}
	}
}

// openWallet opens (creating if needed) the named wallet under keys/.
func (a *app) openWallet(ctx context.Context, name string) *wallet.Wallet {
	w, err := wallet.Open(ctx, a.node, a.cfg.KeysDir(), name)
	if err != nil {
		fatal("open wallet %s: %v", name, err)
	}
	w.SetPolicy(wallet.Policy{MinLovelace: a.cfg.Select.MinLovelace})
	if a.store != nil {
		w.SetStore(a.store)
	}
	return w
}

// walletByRole maps "payment"/"policy" to the configured wallet names.
func (a *app) walletByRole(role string) string {
	switch role {
	case "", "payment":
		return a.cfg.Wallet.Payment
	case "policy":
		return a.cfg.Wallet.Policy
	default:
		return role
	}
}

// ── Password helper ─────────────────────────────────────────────────────

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return password, nil
}

// ── Confirmation helper ─────────────────────────────────────────────────

// confirm asks a yes/no question on the terminal. Without a terminal it
// returns false so scripted runs must pass --yes.
func confirm(question string) bool {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false
	}
	fmt.Fprintf(os.Stderr, "%s [y/N]: ", question)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

// ── Flag helpers ────────────────────────────────────────────────────────

// parseFlags parses command flags, exiting on error like flag.ExitOnError
// but with the command's usage line.
func parseFlags(fs *flag.FlagSet, args []string) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}
}

// splitList parses a comma-separated flag value.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ── Error helper ────────────────────────────────────────────────────────

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
