/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package oauth2client

import (
	"net/url"
)

type setParam struct{ k, v string }

func (p setParam) setValue(m url.Values) { m.Set(p.k, p.v) }

// TokenOption adds a parameter to the token request.
type TokenOption interface {
	setValue(url.Values)
}

// SetTokenParam sets key to value in the token request. An empty value is skipped.
func SetTokenParam(key, value string) TokenOption {
	return setParam{key, value}
}

// WithTxCode sets the transaction code the issuer sent out of band.
func WithTxCode(txCode string) TokenOption {
	return setParam{"tx_code", txCode}
}

// WithClientID identifies a public client.
func WithClientID(clientID string) TokenOption {
	return setParam{"client_id", clientID}
}

func applyOptions(v url.Values, opts ...TokenOption) {
	for _, o := range opts {
		if p, ok := o.(setParam); ok && p.v == "" {
			continue
		}

		o.setValue(v)
	}
}
