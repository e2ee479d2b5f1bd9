package wallet

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// SealedExt is appended to a signing key file name once it is sealed.
const SealedExt = ".sealed"

// Sealing constants.
const (
	SaltSize = 32
	// Sealed format: [magic(4)][salt(32)][memory(4)][iterations(4)][parallelism(1)][nonce(24)][ciphertext...]
	headerSize = len(sealMagic) + SaltSize + 4 + 4 + 1
)

const sealMagic = "AMK1"

// Sealing errors.
var (
	ErrNotSealed     = errors.New("not a sealed key file")
	ErrWrongPassword = errors.New("wrong password or corrupted key file")
)

// SealParams holds Argon2id parameters.
type SealParams struct {
	Memory      uint32 // in KiB
	Iterations  uint32
	Parallelism uint8
}

// DefaultSealParams returns recommended Argon2id parameters.
func DefaultSealParams() SealParams {
	return SealParams{
		Memory:      64 * 1024, // 64 MB
		Iterations:  3,
		Parallelism: 4,
	}
}

func deriveKey(password, salt []byte, params SealParams) []byte {
	return argon2.IDKey(password, salt, params.Iterations, params.Memory, params.Parallelism, chacha20poly1305.KeySize)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// Seal encrypts data with password using Argon2id + XChaCha20-Poly1305.
func Seal(data, password []byte, params SealParams) ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	key := deriveKey(password, salt, params)
	defer zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	out := make([]byte, 0, headerSize+len(nonce)+len(data)+aead.Overhead())
	out = append(out, sealMagic...)
	out = append(out, salt...)
	out = binary.LittleEndian.AppendUint32(out, params.Memory)
	out = binary.LittleEndian.AppendUint32(out, params.Iterations)
	out = append(out, params.Parallelism)
	out = append(out, nonce...)
	// The header is authenticated so the cost parameters cannot be swapped.
	header := append([]byte(nil), out[:headerSize]...)
	return aead.Seal(out, nonce, data, header), nil
}

// OpenSealed decrypts data produced by Seal.
func OpenSealed(sealed, password []byte) ([]byte, error) {
	nonceSize := chacha20poly1305.NonceSizeX
	if len(sealed) < headerSize+nonceSize+chacha20poly1305.Overhead || string(sealed[:len(sealMagic)]) != sealMagic {
		return nil, ErrNotSealed
	}

	off := len(sealMagic)
	salt := sealed[off : off+SaltSize]
	off += SaltSize
	params := SealParams{
		Memory:      binary.LittleEndian.Uint32(sealed[off:]),
		Iterations:  binary.LittleEndian.Uint32(sealed[off+4:]),
		Parallelism: sealed[off+8],
	}
	if params.Iterations == 0 || params.Parallelism == 0 {
		return nil, ErrNotSealed
	}
	nonce := sealed[headerSize : headerSize+nonceSize]
	ciphertext := sealed[headerSize+nonceSize:]

	key := deriveKey(password, salt, params)
	defer zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, sealed[:headerSize])
	if err != nil {
		return nil, ErrWrongPassword
	}
	return plaintext, nil
}

// SealKeyFile encrypts the signing key at path into path+SealedExt and
// removes the plaintext file.
func SealKeyFile(path string, password []byte, params SealParams) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read key: %w", err)
	}
	defer zero(data)

	sealed, err := Seal(data, password, params)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path+SealedExt, sealed, 0600); err != nil {
		return fmt.Errorf("write sealed key: %w", err)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove plaintext key: %w", err)
	}
	return nil
}

// OpenKeyFile decrypts a sealed key file into dst with owner-only
// permissions. The caller removes dst when done.
func OpenKeyFile(sealedPath, dst string, password []byte) error {
	sealed, err := os.ReadFile(sealedPath)
	if err != nil {
		return fmt.Errorf("read sealed key: %w", err)
	}
	plain, err := OpenSealed(sealed, password)
	if err != nil {
		return fmt.Errorf("%s: %w", sealedPath, err)
	}
	defer zero(plain)
	if err := os.WriteFile(dst, plain, 0600); err != nil {
		return fmt.Errorf("write key: %w", err)
	}
	return nil
}
