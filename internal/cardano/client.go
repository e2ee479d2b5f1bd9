// Package cardano wraps the cardano-cli binary. Every node interaction in
// automint goes through Client; nothing else execs cardano-cli.
package cardano

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/Klingon-tech/automint/internal/log"
)

// ErrCommandFailed is returned when cardano-cli exits with an error.
var ErrCommandFailed = errors.New("cardano-cli command failed")

// ErrBadOutput is returned when cardano-cli output cannot be parsed.
var ErrBadOutput = errors.New("unexpected cardano-cli output")

// Network selects mainnet or a testnet by magic number.
type Network struct {
	Mainnet bool
	Magic   uint32
}

// Args returns the network selection flags.
func (n Network) Args() []string {
	if n.Mainnet {
		return []string{"--mainnet"}
	}
	return []string{"--testnet-magic", strconv.FormatUint(uint64(n.Magic), 10)}
}

// String returns "mainnet" or "testnet-<magic>".
func (n Network) String() string {
	if n.Mainnet {
		return "mainnet"
	}
	return fmt.Sprintf("testnet-%d", n.Magic)
}

// Options configures a Client.
type Options struct {
	Path    string        // cardano-cli binary
	Network Network       // network flags appended to node commands
	Timeout time.Duration // per command, 0 for none
	Retries uint64        // extra submit attempts
	Runner  Runner        // defaults to ExecRunner
}

// Client runs cardano-cli commands.
type Client struct {
	opts   Options
	runner Runner

	// retryInterval is the first backoff interval for Submit.
	retryInterval time.Duration
}

// New creates a client.
func New(opts Options) *Client {
	if opts.Path == "" {
		opts.Path = "cardano-cli"
	}
	r := opts.Runner
	if r == nil {
		r = ExecRunner{}
	}
	return &Client{opts: opts, runner: r, retryInterval: 2 * time.Second}
}

// Network returns the configured network.
func (c *Client) Network() Network {
	return c.opts.Network
}

// run executes cardano-cli with args and returns trimmed stdout.
func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	log.Node.Debug().Str("cmd", ShellJoin(c.opts.Path, args...)).Msg("Running")
	start := time.Now()
	stdout, stderr, err := c.runner.Run(ctx, c.opts.Path, args...)
	log.Node.Debug().Dur("took", time.Since(start)).Int("stdout", len(stdout)).Msg("Done")

	msg := strings.TrimSpace(string(stderr))
	if err != nil {
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("%w: %s: %s", ErrCommandFailed, subcommand(args), msg)
	}
	if msg != "" {
		log.Node.Warn().Str("cmd", subcommand(args)).Str("stderr", msg).Msg("cardano-cli wrote to stderr")
	}
	return strings.TrimSpace(string(stdout)), nil
}

// subcommand returns the leading non-flag words of args, e.g. "query utxo".
func subcommand(args []string) string {
	var words []string
	for _, a := range args {
		if strings.HasPrefix(a, "-") || len(words) == 2 {
			break
		}
		words = append(words, a)
	}
	return strings.Join(words, " ")
}

func (c *Client) withNetwork(args ...string) []string {
	return append(args, c.opts.Network.Args()...)
}

// Version returns the first line of `cardano-cli --version`.
func (c *Client) Version(ctx context.Context) (string, error) {
	out, err := c.run(ctx, "--version")
	if err != nil {
		return "", err
	}
	line, _, _ := strings.Cut(out, "\n")
	return line, nil
}

// KeyGen generates a payment key pair.
func (c *Client) KeyGen(ctx context.Context, vkeyPath, skeyPath string) error {
	_, err := c.run(ctx, "address", "key-gen",
		"--verification-key-file", vkeyPath,
		"--signing-key-file", skeyPath)
	return err
}

// BuildAddress writes the payment address for vkeyPath to outPath.
func (c *Client) BuildAddress(ctx context.Context, vkeyPath, outPath string) error {
	_, err := c.run(ctx, c.withNetwork("address", "build",
		"--payment-verification-key-file", vkeyPath,
		"--out-file", outPath)...)
	return err
}

// KeyHash returns the hash of a payment verification key.
func (c *Client) KeyHash(ctx context.Context, vkeyPath string) (string, error) {
	out, err := c.run(ctx, "address", "key-hash", "--payment-verification-key-file", vkeyPath)
	if err != nil {
		return "", err
	}
	if out == "" {
		return "", fmt.Errorf("%w: empty key hash", ErrBadOutput)
	}
	return out, nil
}

// QueryUTXO returns the raw UTXO listing for addr.
func (c *Client) QueryUTXO(ctx context.Context, addr string) (string, error) {
	return c.run(ctx, c.withNetwork("query", "utxo", "--address", addr)...)
}

// Tip is the chain tip reported by `query tip`.
type Tip struct {
	Slot         uint64 `json:"slot"`
	Block        uint64 `json:"block"`
	Epoch        uint64 `json:"epoch"`
	Era          string `json:"era"`
	Hash         string `json:"hash"`
	SyncProgress string `json:"syncProgress"`
}

// QueryTip returns the current chain tip.
func (c *Client) QueryTip(ctx context.Context) (*Tip, error) {
	out, err := c.run(ctx, c.withNetwork("query", "tip")...)
	if err != nil {
		return nil, err
	}
	var tip Tip
	if err := json.Unmarshal([]byte(out), &tip); err != nil {
		return nil, fmt.Errorf("%w: tip: %v", ErrBadOutput, err)
	}
	return &tip, nil
}

// ProtocolParameters writes the current protocol parameters to outPath.
func (c *Client) ProtocolParameters(ctx context.Context, outPath string) error {
	_, err := c.run(ctx, c.withNetwork("query", "protocol-parameters", "--out-file", outPath)...)
	return err
}

// PolicyID returns the policy id of a minting script.
func (c *Client) PolicyID(ctx context.Context, scriptPath string) (string, error) {
	out, err := c.run(ctx, "transaction", "policyid", "--script-file", scriptPath)
	if err != nil {
		return "", err
	}
	if out == "" {
		return "", fmt.Errorf("%w: empty policy id", ErrBadOutput)
	}
	return out, nil
}

// BuildRawArgs are the inputs of `transaction build-raw`.
type BuildRawArgs struct {
	TxIns            []string // "<tx_hash>#<index>"
	TxOuts           []string // "<addr>+<value>" in argv form
	Mint             string   // mint value in argv form, empty for none
	MintScripts      []string
	MetadataFile     string
	InvalidHereafter uint64 // 0 for none
	Fee              int64
	OutFile          string
}

// BuildRaw assembles a transaction body.
func (c *Client) BuildRaw(ctx context.Context, a BuildRawArgs) error {
	args := []string{"transaction", "build-raw"}
	for _, in := range a.TxIns {
		args = append(args, "--tx-in", in)
	}
	for _, out := range a.TxOuts {
		args = append(args, "--tx-out", out)
	}
	if a.Mint != "" {
		args = append(args, "--mint", a.Mint)
		for _, s := range a.MintScripts {
			args = append(args, "--mint-script-file", s)
		}
	}
	if a.MetadataFile != "" {
		args = append(args, "--metadata-json-file", a.MetadataFile)
	}
	if a.InvalidHereafter > 0 {
		args = append(args, "--invalid-hereafter", strconv.FormatUint(a.InvalidHereafter, 10))
	}
	args = append(args, "--fee", strconv.FormatInt(a.Fee, 10), "--out-file", a.OutFile)
	_, err := c.run(ctx, args...)
	return err
}

// FeeArgs are the inputs of `transaction calculate-min-fee`.
type FeeArgs struct {
	TxBodyFile         string
	ProtocolParamsFile string
	TxIns              int
	TxOuts             int
	Witnesses          int
}

// CalculateMinFee returns the minimum fee for a draft body. The command
// prints "<n> Lovelace".
func (c *Client) CalculateMinFee(ctx context.Context, a FeeArgs) (int64, error) {
	out, err := c.run(ctx, c.withNetwork("transaction", "calculate-min-fee",
		"--tx-body-file", a.TxBodyFile,
		"--tx-in-count", strconv.Itoa(a.TxIns),
		"--tx-out-count", strconv.Itoa(a.TxOuts),
		"--witness-count", strconv.Itoa(a.Witnesses),
		"--protocol-params-file", a.ProtocolParamsFile)...)
	if err != nil {
		return 0, err
	}
	return ParseFee(out)
}

// ParseFee parses the first field of calculate-min-fee output.
func ParseFee(out string) (int64, error) {
	fields := strings.Fields(out)
	if len(fields) == 0 {
		return 0, fmt.Errorf("%w: empty fee", ErrBadOutput)
	}
	fee, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || fee < 0 {
		return 0, fmt.Errorf("%w: fee %q", ErrBadOutput, fields[0])
	}
	return fee, nil
}

// Sign signs a body with each signing key.
func (c *Client) Sign(ctx context.Context, bodyPath string, skeyPaths []string, outPath string) error {
	args := []string{"transaction", "sign", "--tx-body-file", bodyPath}
	for _, k := range skeyPaths {
		args = append(args, "--signing-key-file", k)
	}
	args = append(args, "--out-file", outPath)
	_, err := c.run(ctx, c.withNetwork(args...)...)
	return err
}

// TxID returns the id of a signed transaction.
func (c *Client) TxID(ctx context.Context, txPath string) (string, error) {
	out, err := c.run(ctx, "transaction", "txid", "--tx-file", txPath)
	if err != nil {
		return "", err
	}
	// Newer cardano-cli versions print JSON.
	if strings.HasPrefix(out, "{") {
		var v struct {
			TxHash string `json:"txhash"`
		}
		if err := json.Unmarshal([]byte(out), &v); err != nil {
			return "", fmt.Errorf("%w: txid: %v", ErrBadOutput, err)
		}
		out = v.TxHash
	}
	return out, nil
}

// ledgerRejection marks a submit error the node returned after validating
// the transaction. Retrying it cannot succeed.
const ledgerRejection = "ApplyTxError"

// Submit submits a signed transaction, retrying connection failures with
// exponential backoff.
func (c *Client) Submit(ctx context.Context, txPath string) error {
	attempt := 0
	operation := func() error {
		attempt++
		_, err := c.run(ctx, c.withNetwork("transaction", "submit", "--tx-file", txPath)...)
		if err == nil {
			return nil
		}
		if strings.Contains(err.Error(), ledgerRejection) || ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		log.Node.Warn().Err(err).Int("attempt", attempt).Msg("Submit failed, retrying")
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInterval
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 2 * time.Minute
	b.Multiplier = 2.0
	b.RandomizationFactor = 0.5

	if err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(b, c.opts.Retries), ctx)); err != nil {
		return fmt.Errorf("submit after %d attempt(s): %w", attempt, err)
	}
	return nil
}
