/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package dataprotect compresses and encrypts data that leaves the wallet, such as backups.
package dataprotect

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// KeySize is the size of the keys DeriveKey returns.
	KeySize = 32

	formatV1 byte = 1
)

var ErrUnsupportedFormat = errors.New("unsupported sealed data format")

// Sealer compresses with zstd, then encrypts with AES-256-GCM. Sealed data starts with a format byte that is
// also authenticated.
type Sealer struct {
	compressor *ZStd
	cipher     *AES
}

// NewSealer returns a Sealer for a KeySize key.
func NewSealer(key []byte) (*Sealer, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("invalid key size %d", len(key))
	}

	c, err := NewAES(key)
	if err != nil {
		return nil, err
	}

	return &Sealer{compressor: NewZStd(), cipher: c}, nil
}

func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	compressed, err := s.compressor.Compress(plaintext)
	if err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}

	header := []byte{formatV1}

	ciphertext, err := s.cipher.Encrypt(compressed, header)
	if err != nil {
		return nil, fmt.Errorf("encrypt: %w", err)
	}

	return append(header, ciphertext...), nil
}

func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	if len(sealed) == 0 || sealed[0] != formatV1 {
		return nil, ErrUnsupportedFormat
	}

	compressed, err := s.cipher.Decrypt(sealed[1:], sealed[:1])
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}

	plaintext, err := s.compressor.Decompress(compressed)
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}

	return plaintext, nil
}

// DeriveKey expands secret into a KeySize key bound to info with HKDF-SHA256.
func DeriveKey(secret []byte, info string) ([]byte, error) {
	key := make([]byte, KeySize)

	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	return key, nil
}
