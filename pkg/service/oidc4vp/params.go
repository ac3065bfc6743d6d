/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package oidc4vp

import (
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"strconv"

	"github.com/mitchellh/mapstructure"
	"github.com/valyala/fastjson"

	"github.com/trustbloc/vcwallet/pkg/doc/presexch"
)

var jsonParamTypes = map[reflect.Type]bool{ //nolint:gochecknoglobals
	reflect.TypeOf(&ClientMetadata{}):                  true,
	reflect.TypeOf(&presexch.PresentationDefinition{}): true,
}

// decodeQuery decodes every query parameter as a JSON value, falling back to the raw string when
// the parameter is not valid JSON. Numbers are kept as json.Number to preserve their text.
func decodeQuery(rawQuery string) (map[string]interface{}, error) {
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return nil, fmt.Errorf("parse query: %w", err)
	}

	params := make(map[string]interface{}, len(values))

	var parser fastjson.Parser

	for key := range values {
		raw := values.Get(key)

		v, parseErr := parser.Parse(raw)
		if parseErr != nil {
			params[key] = raw

			continue
		}

		params[key] = fromFastJSON(v)
	}

	return params, nil
}

func fromFastJSON(v *fastjson.Value) interface{} {
	switch v.Type() {
	case fastjson.TypeObject:
		o, _ := v.Object() //nolint:errcheck

		m := make(map[string]interface{}, o.Len())

		o.Visit(func(k []byte, val *fastjson.Value) {
			m[string(k)] = fromFastJSON(val)
		})

		return m
	case fastjson.TypeArray:
		items, _ := v.Array() //nolint:errcheck

		arr := make([]interface{}, 0, len(items))

		for _, item := range items {
			arr = append(arr, fromFastJSON(item))
		}

		return arr
	case fastjson.TypeString:
		return string(v.GetStringBytes())
	case fastjson.TypeNumber:
		return json.Number(v.String())
	case fastjson.TypeTrue:
		return true
	case fastjson.TypeFalse:
		return false
	default:
		return nil
	}
}

// decodeAuthorizationRequest maps typed query parameters onto an AuthorizationRequest.
func decodeAuthorizationRequest(params map[string]interface{}) (*AuthorizationRequest, error) {
	req := &AuthorizationRequest{}

	d, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     req,
		TagName:    "json",
		DecodeHook: paramDecodeHook(),
	})
	if err != nil {
		return nil, fmt.Errorf("new params decoder: %w", err)
	}

	if err = d.Decode(params); err != nil {
		return nil, fmt.Errorf("decode params: %w", err)
	}

	return req, nil
}

// paramDecodeHook turns scalar JSON values back into strings for string fields, and decodes
// embedded JSON objects (inline or still encoded as a string) into their model types.
func paramDecodeHook() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if jsonParamTypes[t] {
			return decodeJSONParam(t, data)
		}

		if t.Kind() != reflect.String {
			return data, nil
		}

		switch v := data.(type) {
		case bool:
			return strconv.FormatBool(v), nil
		case json.Number:
			return v.String(), nil
		default:
			return data, nil
		}
	}
}

func decodeJSONParam(t reflect.Type, data interface{}) (interface{}, error) {
	var (
		raw []byte
		err error
	)

	switch v := data.(type) {
	case string:
		raw = []byte(v)
	case map[string]interface{}:
		if raw, err = json.Marshal(v); err != nil {
			return nil, err
		}
	default:
		return data, nil
	}

	target := reflect.New(t.Elem())

	if err = json.Unmarshal(raw, target.Interface()); err != nil {
		return nil, fmt.Errorf("decode %s: %w", t.Elem().Name(), err)
	}

	return target.Interface(), nil
}
