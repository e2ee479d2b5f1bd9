package txbuilder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/Klingon-tech/automint/internal/cardano"
	"github.com/Klingon-tech/automint/internal/log"
)

// Node is the part of the cardano-cli client the flow needs.
type Node interface {
	ProtocolParameters(ctx context.Context, outPath string) error
	BuildRaw(ctx context.Context, a cardano.BuildRawArgs) error
	CalculateMinFee(ctx context.Context, a cardano.FeeArgs) (int64, error)
	Sign(ctx context.Context, bodyPath string, skeyPaths []string, outPath string) error
	Submit(ctx context.Context, txPath string) error
	TxID(ctx context.Context, txPath string) (string, error)
}

// Options configures a Flow.
type Options struct {
	TmpDir        string
	FeeMultiplier float64
	// Witnesses is the witness count for the fee calculation. Zero uses
	// the number of signing keys.
	Witnesses int
	// Keep leaves the work directory in place after Cleanup.
	Keep bool
}

// Flow runs the build, sign and submit steps against cardano-cli.
type Flow struct {
	node Node
	opts Options
}

// NewFlow creates a flow.
func NewFlow(node Node, opts Options) *Flow {
	if opts.FeeMultiplier == 0 {
		opts.FeeMultiplier = DefaultFeeMultiplier
	}
	return &Flow{node: node, opts: opts}
}

// Prepared is a transaction body with its fee settled.
type Prepared struct {
	ID         string // work directory name
	WorkDir    string
	Fee        int64
	BodyPath   string
	SignedPath string
	TxID       string
	keep       bool
}

// Cleanup removes the work directory.
func (p *Prepared) Cleanup() {
	if p.keep {
		return
	}
	os.RemoveAll(p.WorkDir)
}

func (f *Flow) rawArgs(b *Builder, out string) cardano.BuildRawArgs {
	a := cardano.BuildRawArgs{
		MetadataFile:     b.metadataFile,
		InvalidHereafter: b.invalidHereafter,
		Fee:              b.fee,
		OutFile:          out,
	}
	for _, u := range b.inputs {
		a.TxIns = append(a.TxIns, u.String())
	}
	for _, o := range b.outputs {
		a.TxOuts = append(a.TxOuts, o.Arg())
	}
	if b.mint != nil && !b.mint.IsEmpty() {
		a.Mint = b.mint.Arg()
		a.MintScripts = b.mintScripts
	}
	return a
}

// Prepare drafts b with a zero fee, calculates the fee for signers signing
// keys, deducts it from the change output and builds the final body.
func (f *Flow) Prepare(ctx context.Context, b *Builder, signers int) (*Prepared, error) {
	if err := b.check(); err != nil {
		return nil, err
	}
	if b.change == nil {
		return nil, ErrNoChange
	}

	id := uuid.NewString()
	p := &Prepared{ID: id, WorkDir: filepath.Join(f.opts.TmpDir, id), keep: f.opts.Keep}
	if err := os.MkdirAll(p.WorkDir, 0700); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	logger := log.Tx.With().Str("run", id).Logger()
	defer log.Timer(logger, "prepare")()

	ppPath := filepath.Join(p.WorkDir, "protocol.json")
	if err := f.node.ProtocolParameters(ctx, ppPath); err != nil {
		return p, fmt.Errorf("protocol parameters: %w", err)
	}

	draftPath := filepath.Join(p.WorkDir, "tx.draft")
	if err := f.node.BuildRaw(ctx, f.rawArgs(b, draftPath)); err != nil {
		return p, fmt.Errorf("draft: %w", err)
	}

	witnesses := f.opts.Witnesses
	if witnesses == 0 {
		witnesses = signers
	}
	minFee, err := f.node.CalculateMinFee(ctx, cardano.FeeArgs{
		TxBodyFile:         draftPath,
		ProtocolParamsFile: ppPath,
		TxIns:              len(b.inputs),
		TxOuts:             len(b.outputs),
		Witnesses:          witnesses,
	})
	if err != nil {
		return p, fmt.Errorf("calculate fee: %w", err)
	}
	fee := ApplyMultiplier(minFee, f.opts.FeeMultiplier)
	logger.Info().Int64("min_fee", minFee).Int64("fee", fee).Msg("Calculated fee")

	if err := b.deductFee(fee); err != nil {
		return p, err
	}
	if err := b.Validate(); err != nil {
		return p, err
	}

	p.Fee = fee
	p.BodyPath = filepath.Join(p.WorkDir, "tx.raw")
	if err := f.node.BuildRaw(ctx, f.rawArgs(b, p.BodyPath)); err != nil {
		return p, fmt.Errorf("build: %w", err)
	}
	logger.Debug().Str("body", p.BodyPath).Msg("Built transaction body")
	return p, nil
}

// Sign signs the prepared body with the given signing keys.
func (f *Flow) Sign(ctx context.Context, p *Prepared, skeyPaths []string) error {
	p.SignedPath = filepath.Join(p.WorkDir, "tx.signed")
	if err := f.node.Sign(ctx, p.BodyPath, skeyPaths, p.SignedPath); err != nil {
		return fmt.Errorf("sign: %w", err)
	}
	id, err := f.node.TxID(ctx, p.SignedPath)
	if err != nil {
		return fmt.Errorf("txid: %w", err)
	}
	p.TxID = id
	return nil
}

// Submit submits the signed transaction.
func (f *Flow) Submit(ctx context.Context, p *Prepared) error {
	if p.SignedPath == "" {
		return fmt.Errorf("submit: transaction %s is not signed", p.ID)
	}
	if err := f.node.Submit(ctx, p.SignedPath); err != nil {
		return err
	}
	log.Tx.Info().Str("txid", p.TxID).Int64("fee", p.Fee).Msg("Submitted transaction")
	return nil
}
