// Package wallet manages cardano-cli key pairs on disk and chooses which of
// a wallet's UTXOs to spend.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Klingon-tech/automint/internal/log"
	"github.com/Klingon-tech/automint/internal/utxo"
)

// Wallet errors.
var (
	ErrIncompleteWallet = errors.New("wallet files missing")
	ErrEmptyAddress     = errors.New("wallet address is empty")
)

// Node is the part of the cardano-cli client a wallet needs.
type Node interface {
	KeyGen(ctx context.Context, vkeyPath, skeyPath string) error
	BuildAddress(ctx context.Context, vkeyPath, outPath string) error
	QueryUTXO(ctx context.Context, addr string) (string, error)
}

// Wallet is one payment key pair and its address, stored as
// <name>.skey, <name>.vkey and <name>.addr in a directory.
type Wallet struct {
	name     string
	skeyPath string
	vkeyPath string
	addrPath string
	addr     string

	policy Policy
	store  *utxo.Store
	utxos  *utxo.Set
}

// Open loads the wallet called name from dir, generating the key pair and
// address with node when they do not exist yet.
func Open(ctx context.Context, node Node, dir, name string) (*Wallet, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create wallet dir: %w", err)
	}
	w := &Wallet{
		name:     name,
		skeyPath: filepath.Join(dir, name+".skey"),
		vkeyPath: filepath.Join(dir, name+".vkey"),
		addrPath: filepath.Join(dir, name+".addr"),
		policy:   DefaultPolicy(),
		utxos:    utxo.NewSet(),
	}
	if err := w.setup(ctx, node); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Wallet) setup(ctx context.Context, node Node) error {
	if !w.hasSigningKey() && !exists(w.vkeyPath) {
		log.Wallet.Info().Str("wallet", w.name).Msg("Keys not found, generating")
		if err := node.KeyGen(ctx, w.vkeyPath, w.skeyPath); err != nil {
			return fmt.Errorf("generate keys for %s: %w", w.name, err)
		}
	}
	if !exists(w.addrPath) {
		log.Wallet.Info().Str("wallet", w.name).Msg("Address file not found, generating")
		if err := node.BuildAddress(ctx, w.vkeyPath, w.addrPath); err != nil {
			return fmt.Errorf("build address for %s: %w", w.name, err)
		}
	}

	for _, p := range []string{w.vkeyPath, w.addrPath} {
		if !exists(p) {
			return fmt.Errorf("%w: %s", ErrIncompleteWallet, p)
		}
	}
	if !w.hasSigningKey() {
		return fmt.Errorf("%w: %s", ErrIncompleteWallet, w.skeyPath)
	}

	data, err := os.ReadFile(w.addrPath)
	if err != nil {
		return fmt.Errorf("read address: %w", err)
	}
	w.addr = strings.TrimSpace(string(data))
	if w.addr == "" {
		return fmt.Errorf("%w: %s", ErrEmptyAddress, w.addrPath)
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (w *Wallet) hasSigningKey() bool {
	return exists(w.skeyPath) || exists(w.skeyPath+SealedExt)
}

// Name returns the wallet name.
func (w *Wallet) Name() string { return w.name }

// Address returns the bech32 payment address.
func (w *Wallet) Address() string { return w.addr }

// SkeyPath returns the path of the plaintext signing key.
func (w *Wallet) SkeyPath() string { return w.skeyPath }

// VkeyPath returns the path of the verification key.
func (w *Wallet) VkeyPath() string { return w.vkeyPath }

// Sealed reports whether the signing key is stored encrypted.
func (w *Wallet) Sealed() bool {
	return !exists(w.skeyPath) && exists(w.skeyPath+SealedExt)
}

// SetPolicy sets the automatic selection policy.
func (w *Wallet) SetPolicy(p Policy) { w.policy = p }

// SetStore makes Query persist every listing to s.
func (w *Wallet) SetStore(s *utxo.Store) { w.store = s }

// SigningKey returns a path cardano-cli can sign with. A sealed key is
// decrypted into workDir; the returned cleanup removes it again.
func (w *Wallet) SigningKey(workDir string, password []byte) (string, func(), error) {
	if !w.Sealed() {
		return w.skeyPath, func() {}, nil
	}
	dst := filepath.Join(workDir, w.name+".skey")
	if err := OpenKeyFile(w.skeyPath+SealedExt, dst, password); err != nil {
		return "", nil, err
	}
	return dst, func() { os.Remove(dst) }, nil
}

// Seal encrypts the signing key at rest.
func (w *Wallet) Seal(password []byte, params SealParams) error {
	if w.Sealed() {
		return nil
	}
	return SealKeyFile(w.skeyPath, password, params)
}

// Query replaces the wallet's UTXO set with a fresh listing from node.
func (w *Wallet) Query(ctx context.Context, node Node) (*utxo.Set, error) {
	out, err := node.QueryUTXO(ctx, w.addr)
	if err != nil {
		return nil, fmt.Errorf("query utxos for %s: %w", w.name, err)
	}
	utxos, err := utxo.ParseListing(out)
	if err != nil {
		return nil, fmt.Errorf("parse utxos for %s: %w", w.name, err)
	}
	w.utxos.Replace(utxos)

	if w.store != nil {
		if err := w.store.Replace(w.addr, utxos); err != nil {
			// The cache is optional; a failed write only affects --cached.
			log.Wallet.Warn().Err(err).Str("wallet", w.name).Msg("Failed to cache utxo snapshot")
		}
	}
	log.Wallet.Debug().Str("wallet", w.name).Int("utxos", len(utxos)).Msg("Queried utxos")
	return w.utxos, nil
}

// UTXOs returns the set from the last Query.
func (w *Wallet) UTXOs() *utxo.Set { return w.utxos }

// SelectUTXO returns the UTXO with identifier id, or applies the default
// selection policy when id is empty.
func (w *Wallet) SelectUTXO(id string) (*utxo.UTXO, error) {
	if id == "" {
		return SelectDefault(w.utxos, w.policy)
	}
	u, ok := w.utxos.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s in wallet %s", ErrUTXONotFound, id, w.name)
	}
	return u, nil
}
