/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package account

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcutil/hdkeychain"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/text/unicode/norm"
)

const (
	seedIterations = 2048
	seedLength     = 64

	purpose  = 44
	coinType = 60

	p256KeyInfo = "vcwallet p256 key"
)

var ErrInvalidMnemonic = errors.New("invalid mnemonic")

// Keyring derives secp256k1 key pairs along m/44'/60'/0'/0/<index> from a BIP39 seed.
type Keyring struct {
	external *hdkeychain.ExtendedKey
}

// NewKeyring creates a keyring from a BIP39 mnemonic and optional passphrase.
func NewKeyring(mnemonic, passphrase string) (*Keyring, error) {
	seed, err := Seed(mnemonic, passphrase)
	if err != nil {
		return nil, err
	}

	return NewKeyringFromSeed(seed)
}

// Seed stretches a BIP39 mnemonic into a 64-byte seed. The word list is not checked.
func Seed(mnemonic, passphrase string) ([]byte, error) {
	words := strings.Fields(norm.NFKD.String(mnemonic))

	switch len(words) {
	case 12, 15, 18, 21, 24: //nolint:gomnd
	default:
		return nil, fmt.Errorf("%w: %d words", ErrInvalidMnemonic, len(words))
	}

	return pbkdf2.Key(
		[]byte(strings.Join(words, " ")),
		[]byte("mnemonic"+norm.NFKD.String(passphrase)),
		seedIterations, seedLength, sha512.New,
	), nil
}

// NewKeyringFromSeed creates a keyring from a raw BIP32 seed.
func NewKeyringFromSeed(seed []byte) (*Keyring, error) {
	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("create master key: %w", err)
	}

	key := master

	for _, i := range []uint32{
		hdkeychain.HardenedKeyStart + purpose,
		hdkeychain.HardenedKeyStart + coinType,
		hdkeychain.HardenedKeyStart,
		0,
	} {
		key, err = key.Derive(i)
		if err != nil {
			return nil, fmt.Errorf("derive account path: %w", err)
		}
	}

	return &Keyring{external: key}, nil
}

// PrivateKey returns the key pair at index.
func (k *Keyring) PrivateKey(index int) (*ecdsa.PrivateKey, error) {
	if index < 0 || uint32(index) >= hdkeychain.HardenedKeyStart {
		return nil, fmt.Errorf("account index %d out of range", index)
	}

	child, err := k.external.Derive(uint32(index))
	if err != nil {
		return nil, fmt.Errorf("derive index %d: %w", index, err)
	}

	priv, err := child.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("derive index %d: %w", index, err)
	}

	return priv.ToECDSA(), nil
}

// P256PrivateKey returns a P-256 key pair derived from the key at index.
// The result is stable for a given seed and index.
func (k *Keyring) P256PrivateKey(index int) (*ecdsa.PrivateKey, error) {
	base, err := k.PrivateKey(index)
	if err != nil {
		return nil, err
	}

	curve := elliptic.P256()
	params := curve.Params()

	// 64 extra bits keep the modular reduction bias negligible.
	buf := make([]byte, params.BitSize/8+8)

	kdf := hkdf.New(sha256.New, base.D.FillBytes(make([]byte, 32)), nil, []byte(p256KeyInfo))
	if _, err = io.ReadFull(kdf, buf); err != nil {
		return nil, fmt.Errorf("derive p-256 index %d: %w", index, err)
	}

	one := big.NewInt(1)

	d := new(big.Int).SetBytes(buf)
	d.Mod(d, new(big.Int).Sub(params.N, one))
	d.Add(d, one)

	priv := &ecdsa.PrivateKey{D: d, PublicKey: ecdsa.PublicKey{Curve: curve}}
	priv.PublicKey.X, priv.PublicKey.Y = curve.ScalarBaseMult(d.FillBytes(make([]byte, 32)))

	return priv, nil
}
