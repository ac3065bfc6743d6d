/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package dataprotect_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trustbloc/vcwallet/pkg/dataprotect"
)

func TestZStd(t *testing.T) {
	data := bytes.Repeat([]byte(`{"rp":"https://verifier.example.com","accountIndex":0}`), 100)

	zstd := dataprotect.NewZStd()
	compressed, err := zstd.Compress(data)

	assert.NoError(t, err, "Compress should not return an error")
	assert.Less(t, len(compressed), len(data))

	resp, err := zstd.Decompress(compressed)
	assert.NoError(t, err)
	assert.Equal(t, data, resp)
}

func TestZStdDecompressError(t *testing.T) {
	_, err := dataprotect.NewZStd().Decompress([]byte("not zstd"))
	assert.ErrorContains(t, err, "error reading decompressed data")
}
