/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package jsonutil copies values decoded from JSON.
package jsonutil

import "encoding/json"

// Clone returns a deep copy of a value built from JSON objects, arrays and scalars.
// Values of other types are returned as is.
func Clone(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return CloneMap(t)
	case []interface{}:
		return CloneSlice(t)
	case json.RawMessage:
		return CloneRaw(t)
	default:
		return v
	}
}

// CloneMap returns a deep copy of m. A nil map stays nil.
func CloneMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}

	c := make(map[string]interface{}, len(m))

	for k, v := range m {
		c[k] = Clone(v)
	}

	return c
}

// CloneSlice returns a deep copy of s. A nil slice stays nil.
func CloneSlice(s []interface{}) []interface{} {
	if s == nil {
		return nil
	}

	c := make([]interface{}, len(s))

	for i, v := range s {
		c[i] = Clone(v)
	}

	return c
}

func CloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}

	return append(json.RawMessage{}, raw...)
}

func CloneStrings(s []string) []string {
	if s == nil {
		return nil
	}

	return append([]string{}, s...)
}
