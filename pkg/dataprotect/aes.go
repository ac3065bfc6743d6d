/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package dataprotect

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"io"
)

// AES seals data with AES-GCM under a fixed key. The random nonce is prepended to the ciphertext.
type AES struct {
	gcm cipher.AEAD
}

// NewAES returns AES for a 16, 24 or 32 byte key.
func NewAES(key []byte) (*AES, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &AES{gcm: gcm}, nil
}

func (a *AES) Encrypt(data, additionalData []byte) ([]byte, error) {
	nonce := make([]byte, a.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return a.gcm.Seal(nonce, nonce, data, additionalData), nil
}

func (a *AES) Decrypt(data, additionalData []byte) ([]byte, error) {
	if len(data) < a.gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce, ciphertext := data[:a.gcm.NonceSize()], data[a.gcm.NonceSize():]

	return a.gcm.Open(nil, nonce, ciphertext, additionalData)
}
