// Package aescrypt implements the encryption scheme used for account blobs
// stored in the user's Drive: AES-256-CBC with PKCS#7 padding, where the
// effective key and IV are derived from configured base material salted with
// the account owner's email. The email salt makes the same base material
// yield a different key per user without any per-user key storage.
//
// Derivation is case sensitive on the email by design: existing blobs were
// encrypted against the literal login email, so normalizing case here would
// make them undecryptable.
package aescrypt

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

const (
	keyLength = 32
	ivLength  = 16
)

var (
	// ErrInvalidPadding indicates the ciphertext did not decrypt to valid
	// PKCS#7 padding, typically wrong key material or an email case mismatch.
	ErrInvalidPadding = errors.New("aescrypt: invalid padding")

	// ErrInvalidMaterialLength indicates base key/IV material of the wrong size.
	ErrInvalidMaterialLength = errors.New("aescrypt: invalid key or IV length")
)

// Encrypt encrypts data under a key/IV derived from the base material and the
// owner's email.
func Encrypt(data, keyMaterial, ivMaterial []byte, email string) ([]byte, error) {
	block, err := aes.NewCipher(deriveKey(keyMaterial, email, keyLength))
	if err != nil {
		return nil, fmt.Errorf("aescrypt: new cipher: %w", err)
	}

	padded := pad(data, block.BlockSize())
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, deriveKey(ivMaterial, email, ivLength)).CryptBlocks(out, padded)
	return out, nil
}

// Decrypt is the inverse of Encrypt for the same (keyMaterial, ivMaterial,
// email) triple.
func Decrypt(cipherData, keyMaterial, ivMaterial []byte, email string) ([]byte, error) {
	block, err := aes.NewCipher(deriveKey(keyMaterial, email, keyLength))
	if err != nil {
		return nil, fmt.Errorf("aescrypt: new cipher: %w", err)
	}
	if len(cipherData) == 0 || len(cipherData)%block.BlockSize() != 0 {
		return nil, fmt.Errorf("aescrypt: ciphertext length %d is not a multiple of the block size", len(cipherData))
	}

	out := make([]byte, len(cipherData))
	cipher.NewCBCDecrypter(block, deriveKey(ivMaterial, email, ivLength)).CryptBlocks(out, cipherData)
	return unpad(out, block.BlockSize())
}

// MakeAesID returns a short identifier for a key/IV generation: the first 6
// bytes of SHA-256(key ‖ iv) as lowercase hex. It is a filename discriminator,
// not a secret. The raw key must be exactly 32 bytes and the IV 16 bytes.
func MakeAesID(key, iv []byte) (string, error) {
	if len(key) != keyLength || len(iv) != ivLength {
		return "", fmt.Errorf("%w: key %d bytes, iv %d bytes", ErrInvalidMaterialLength, len(key), len(iv))
	}
	sum := sha256.Sum256(append(append([]byte{}, key...), iv...))
	return hex.EncodeToString(sum[:6]), nil
}

// deriveKey hashes the base material concatenated with the email and
// truncates to the requested length.
func deriveKey(base []byte, email string, length int) []byte {
	sum := sha256.Sum256(append(append([]byte{}, base...), []byte(email)...))
	return sum[:length]
}

func pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(append([]byte{}, data...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrInvalidPadding
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, ErrInvalidPadding
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrInvalidPadding
		}
	}
	return data[:len(data)-n], nil
}
