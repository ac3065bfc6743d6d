/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package dataprotect_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustbloc/vcwallet/pkg/dataprotect"
)

func TestEncryptDecrypt(t *testing.T) {
	aes, err := dataprotect.NewAES(bytes.Repeat([]byte{7}, 32))
	require.NoError(t, err)

	var finalData []byte
	for len(finalData) < 2000000 {
		finalData = append(finalData, []byte("This is a secret message")...)
	}

	ciphertext, err := aes.Encrypt(finalData, []byte("ad"))
	require.NoError(t, err)

	plaintext, err := aes.Decrypt(ciphertext, []byte("ad"))
	require.NoError(t, err)
	assert.Equal(t, finalData, plaintext)

	_, err = aes.Decrypt(ciphertext, []byte("other"))
	assert.Error(t, err)

	_, err = aes.Decrypt([]byte("short"), nil)
	assert.ErrorContains(t, err, "ciphertext too short")
}

func TestTooLongKey(t *testing.T) {
	aes, err := dataprotect.NewAES(make([]byte, 64))
	assert.Nil(t, aes)
	assert.ErrorContains(t, err, "invalid key size 64")
}
