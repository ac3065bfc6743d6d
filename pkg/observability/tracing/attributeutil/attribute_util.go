/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package attributeutil

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.opentelemetry.io/otel/attribute"
)

const redacted = "[REDACTED]"

// JSON returns attribute with the value marshaled to JSON. Value can be redacted using WithRedacted option.
func JSON(key string, value interface{}, opts ...Opt) attribute.KeyValue {
	op := newOptions(opts)

	b, err := json.Marshal(value)
	if err != nil {
		return attribute.KeyValue{
			Key:   attribute.Key(key),
			Value: attribute.Value{},
		}
	}

	for _, path := range op.redacted {
		if gjson.GetBytes(b, path).Exists() {
			b, _ = sjson.SetBytes(b, path, redacted)
		}
	}

	return attribute.String(key, string(b))
}

// FormParams returns attribute with value represented as form params sorted by key. Value can be redacted using
// WithRedacted option.
func FormParams(key string, params map[string][]string, opts ...Opt) attribute.KeyValue {
	op := newOptions(opts)

	var buf strings.Builder

	keys := lo.Keys(params)
	sort.Strings(keys)

	for _, k := range keys {
		v := params[k]

		if lo.Contains(op.redacted, k) {
			v = []string{redacted}
		}

		for _, s := range v {
			if buf.Len() > 0 {
				buf.WriteByte('&')
			}

			buf.WriteString(k)
			buf.WriteByte('=')
			buf.WriteString(s)
		}
	}

	return attribute.String(key, buf.String())
}

type options struct {
	redacted []string
}

type Opt func(*options)

func newOptions(opts []Opt) *options {
	op := &options{}

	for _, opt := range opts {
		opt(op)
	}

	return op
}

// WithRedacted returns option that replaces value with [REDACTED] for the given key. In case of JSON attribute, key is
// a path to the value to be redacted. Refer to https://github.com/tidwall/gjson/blob/master/SYNTAX.md for path syntax.
func WithRedacted(key string) Opt {
	return func(o *options) {
		o.redacted = append(o.redacted, key)
	}
}
