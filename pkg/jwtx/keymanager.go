package jwtx

import (
	"fmt"
	"math/rand/v2"

	"github.com/aussiebroadwan/devhub/pkg/cryptox"
)

// KeyManager owns the process's signing keys and the matching verifier.
// Keys are ephemeral: they are generated on start and only live in memory,
// so restarting the service ends every session.
type KeyManager struct {
	Verifier Verifier
	KeySet   *KeySet

	signers []Signer
}

// KeyManagerOptions configures NewEphemeralKeyManager.
type KeyManagerOptions struct {
	// Issuer is the iss claim stamped on and required of session tokens.
	Issuer string

	// Audience values required at verification. Empty means no check.
	Audience []string

	// NumKeys is the number of signing keys (default 3, max 10).
	NumKeys int

	// KeyPrefix is prepended to generated key ids.
	KeyPrefix string
}

// NewEphemeralKeyManager generates opts.NumKeys Ed25519 keys and wires them
// into a KeySet and verifier.
func NewEphemeralKeyManager(opts KeyManagerOptions) (*KeyManager, error) {
	if opts.Issuer == "" {
		return nil, fmt.Errorf("jwtx: Issuer is required")
	}

	numKeys := opts.NumKeys
	if numKeys <= 0 {
		numKeys = 3
	}
	numKeys = min(numKeys, 10)

	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = "devhub"
	}

	keyset := NewKeySet()
	signers := make([]Signer, 0, numKeys)

	for i := range numKeys {
		kid, err := cryptox.GenerateToken(cryptox.TokenSize128)
		if err != nil {
			return nil, fmt.Errorf("jwtx: failed to generate key ID: %w", err)
		}

		key, err := cryptox.GenerateSigningKey()
		if err != nil {
			return nil, fmt.Errorf("jwtx: failed to generate key %d: %w", i+1, err)
		}

		signer := NewSignerFromKey(prefix+"-"+kid, key)

		if err := keyset.AddSigner(signer); err != nil {
			return nil, fmt.Errorf("jwtx: failed to add signer %d to keyset: %w", i+1, err)
		}
		signers = append(signers, signer)
	}

	return &KeyManager{
		Verifier: NewVerifierEdDSA(keyset, opts.Issuer, opts.Audience),
		KeySet:   keyset,
		signers:  signers,
	}, nil
}

// IsReady returns true if the KeyManager has valid keys loaded.
func (km *KeyManager) IsReady() bool {
	return km.KeySet.IsReady()
}

// GetSigner returns a randomly selected signer so signing load spreads
// across all keys.
func (km *KeyManager) GetSigner() Signer {
	if len(km.signers) == 1 {
		return km.signers[0]
	}
	return km.signers[rand.IntN(len(km.signers))]
}

// NumSigners returns the number of active signing keys.
func (km *KeyManager) NumSigners() int {
	return len(km.signers)
}
