// Package policy writes and loads the native-script minting policy:
// policy.script, policy.id and the key hash they are derived from.
package policy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Klingon-tech/automint/internal/cardano"
	"github.com/Klingon-tech/automint/internal/log"
	"github.com/Klingon-tech/automint/pkg/types"
)

// File names inside the policy directory.
const (
	ScriptFile = "policy.script"
	IDFile     = "policy.id"
)

// DefaultLockSlots is how far past the current tip a time-locked policy
// stays open: seven days of one-second slots.
const DefaultLockSlots = 60 * 60 * 24 * 7

// ErrNoPolicy is returned by Load when the policy files do not exist.
var ErrNoPolicy = errors.New("policy not initialized")

// Script types.
const (
	TypeSig    = "sig"
	TypeAll    = "all"
	TypeAny    = "any"
	TypeBefore = "before"
	TypeAfter  = "after"
)

// Script is a cardano native script.
type Script struct {
	Type    string   `json:"type"`
	KeyHash string   `json:"keyHash,omitempty"`
	Slot    uint64   `json:"slot,omitempty"`
	Scripts []Script `json:"scripts,omitempty"`
}

// Sig requires a signature from the key with the given hash.
func Sig(keyHash string) Script {
	return Script{Type: TypeSig, KeyHash: keyHash}
}

// Before only validates before slot.
func Before(slot uint64) Script {
	return Script{Type: TypeBefore, Slot: slot}
}

// All requires every sub-script.
func All(scripts ...Script) Script {
	return Script{Type: TypeAll, Scripts: scripts}
}

// LockSlot returns the earliest "before" slot in the script tree. Minting
// transactions must set --invalid-hereafter below it.
func (s Script) LockSlot() (uint64, bool) {
	var (
		min   uint64
		found bool
	)
	if s.Type == TypeBefore {
		min, found = s.Slot, true
	}
	for _, sub := range s.Scripts {
		if slot, ok := sub.LockSlot(); ok && (!found || slot < min) {
			min, found = slot, true
		}
	}
	return min, found
}

// Node is the part of the cardano-cli client a policy needs.
type Node interface {
	KeyHash(ctx context.Context, vkeyPath string) (string, error)
	PolicyID(ctx context.Context, scriptPath string) (string, error)
	QueryTip(ctx context.Context) (*cardano.Tip, error)
}

// Options configures Setup.
type Options struct {
	// LockSlots adds a "before" clause this many slots past the tip.
	// Zero writes a signature-only policy that never expires.
	LockSlots uint64
	// Force overwrites an existing policy.script.
	Force bool
}

// Policy is an initialized minting policy.
type Policy struct {
	ID         string
	Script     Script
	ScriptPath string
}

// TokenID returns the qualified id of the asset name under this policy.
func (p *Policy) TokenID(name string) string {
	return types.NewTokenID(p.ID, name).String()
}

// Setup writes policy.script for the key in vkeyPath unless one exists
// (or opts.Force is set), then derives and stores policy.id.
func Setup(ctx context.Context, node Node, dir, vkeyPath string, opts Options) (*Policy, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create policy dir: %w", err)
	}
	scriptPath := filepath.Join(dir, ScriptFile)

	if opts.Force || !exists(scriptPath) {
		keyHash, err := node.KeyHash(ctx, vkeyPath)
		if err != nil {
			return nil, fmt.Errorf("policy key hash: %w", err)
		}
		script := Sig(keyHash)
		if opts.LockSlots > 0 {
			tip, err := node.QueryTip(ctx)
			if err != nil {
				return nil, fmt.Errorf("query tip: %w", err)
			}
			script = All(script, Before(tip.Slot+opts.LockSlots))
		}
		if err := writeJSON(scriptPath, script); err != nil {
			return nil, err
		}
		log.Policy.Info().Str("path", scriptPath).Msg("Wrote policy script")
	} else {
		log.Policy.Info().Str("path", scriptPath).Msg("Policy script exists, keeping it")
	}

	script, err := readScript(scriptPath)
	if err != nil {
		return nil, err
	}
	id, err := node.PolicyID(ctx, scriptPath)
	if err != nil {
		return nil, fmt.Errorf("policy id: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, IDFile), []byte(id+"\n"), 0644); err != nil {
		return nil, fmt.Errorf("write policy id: %w", err)
	}
	return &Policy{ID: id, Script: script, ScriptPath: scriptPath}, nil
}

// Load reads a policy written by Setup.
func Load(dir string) (*Policy, error) {
	scriptPath := filepath.Join(dir, ScriptFile)
	data, err := os.ReadFile(filepath.Join(dir, IDFile))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w in %s (run init)", ErrNoPolicy, dir)
	}
	if err != nil {
		return nil, fmt.Errorf("read policy id: %w", err)
	}
	id := strings.TrimSpace(string(data))
	if id == "" {
		return nil, fmt.Errorf("%w: empty %s", ErrNoPolicy, IDFile)
	}
	script, err := readScript(scriptPath)
	if err != nil {
		return nil, err
	}
	return &Policy{ID: id, Script: script, ScriptPath: scriptPath}, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal policy script: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write policy script: %w", err)
	}
	return nil
}

func readScript(path string) (Script, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Script{}, fmt.Errorf("%w: %s missing", ErrNoPolicy, path)
	}
	if err != nil {
		return Script{}, fmt.Errorf("read policy script: %w", err)
	}
	var s Script
	if err := json.Unmarshal(data, &s); err != nil {
		return Script{}, fmt.Errorf("parse policy script: %w", err)
	}
	return s, nil
}
