// Package arc76 derives deterministic AVM accounts from an email address and
// a secret, following the ARC-0076 password-account scheme: the ed25519 seed
// is PBKDF2-SHA256 over the secret with a salt binding the email and the
// account slot. The same (email, secret, slot) always yields the same account
// on any device, which is what lets a paired device reconstruct the user's
// address without the blob ever leaving the server.
package arc76

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base32"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// Iterations is the PBKDF2 iteration count. Part of the derivation
	// contract, changing it re-keys every existing account.
	Iterations = 210000

	seedLength     = ed25519.SeedSize
	checksumLength = 4
	secretLength   = 32
)

// addressEncoding is RFC 4648 base32 without padding, the AVM address alphabet.
var addressEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Account is a derived signing identity.
type Account struct {
	Address    string
	PublicKey  ed25519.PublicKey
	privateKey ed25519.PrivateKey
}

// DeriveAccount derives the account at the given slot for an email/secret
// pair. Slot 0 is the primary account, higher slots allow multiple accounts
// from one secret.
func DeriveAccount(email, secret string, slot uint64) (*Account, error) {
	if email == "" {
		return nil, fmt.Errorf("arc76: email is required")
	}
	if secret == "" {
		return nil, fmt.Errorf("arc76: secret is required")
	}

	salt := fmt.Sprintf("ARC-0076-%s-%d", email, slot)
	seed := pbkdf2.Key([]byte(secret), []byte(salt), Iterations, seedLength, sha256.New)

	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)

	return &Account{
		Address:    encodeAddress(pub),
		PublicKey:  pub,
		privateKey: priv,
	}, nil
}

// SignTransaction signs a canonically encoded transaction. The domain
// separation prefix "TX" is prepended before signing, as AVM nodes expect.
func (a *Account) SignTransaction(txn []byte) []byte {
	msg := make([]byte, 0, 2+len(txn))
	msg = append(msg, 'T', 'X')
	msg = append(msg, txn...)
	return ed25519.Sign(a.privateKey, msg)
}

// encodeAddress renders a public key as an AVM address: base32 of the key
// followed by the last 4 bytes of its SHA-512/256 digest as a checksum.
func encodeAddress(pub ed25519.PublicKey) string {
	digest := sha512.Sum512_256(pub)
	body := make([]byte, 0, len(pub)+checksumLength)
	body = append(body, pub...)
	body = append(body, digest[len(digest)-checksumLength:]...)
	return addressEncoding.EncodeToString(body)
}

// NewSecret returns a fresh random account secret, base64 encoded.
func NewSecret() (string, error) {
	raw := make([]byte, secretLength)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("arc76: read random: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
