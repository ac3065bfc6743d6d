/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package presexch

import (
	"errors"
	"sort"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/trustbloc/logutil-go/pkg/log"

	"github.com/trustbloc/vcwallet/internal/logfields"
	"github.com/trustbloc/vcwallet/pkg/doc/sdjwt"
)

var logger = log.New("presentation-exchange")

// ErrNoMatch is returned when no input descriptor of the definition is satisfied.
var ErrNoMatch = errors.New("no input descriptor matches the credential")

// DisclosureWithOptionality is a disclosure with the holder's send decision.
// Required claims are submitted and fixed, optional claims are selectable, unrequested claims are neither.
type DisclosureWithOptionality struct {
	Disclosure       sdjwt.Disclosure `json:"disclosure"`
	IsSubmit         bool             `json:"isSubmit"`
	IsUserSelectable bool             `json:"isUserSelectable"`
}

// MatchResult is the input descriptor satisfied by a credential and the per-claim decisions.
type MatchResult struct {
	InputDescriptor *InputDescriptor
	Claims          []DisclosureWithOptionality
}

// Submitted returns the disclosures currently selected for sending.
func (r *MatchResult) Submitted() []sdjwt.Disclosure {
	var out []sdjwt.Disclosure

	for _, c := range r.Claims {
		if c.IsSubmit {
			out = append(out, c.Disclosure)
		}
	}

	return out
}

func (r *MatchResult) satisfied() bool {
	for _, c := range r.Claims {
		if c.IsSubmit || c.IsUserSelectable {
			return true
		}
	}

	return false
}

// MatchSDJWT returns the first input descriptor, in definition order, for which at least one disclosure is
// submitted or selectable.
func MatchSDJWT(pd *PresentationDefinition, disclosures []sdjwt.Disclosure) (*MatchResult, error) {
	values := make(map[string]interface{}, len(disclosures))

	for _, d := range disclosures {
		if d.Key != "" {
			values[d.Key] = d.Value
		}
	}

	for _, descriptor := range pd.InputDescriptors {
		optional := requestedKeys(descriptor, func(field *Field, path, key string) (interface{}, bool) {
			v, ok := values[key]

			return v, ok
		})

		result := &MatchResult{InputDescriptor: descriptor}

		for _, d := range disclosures {
			isOptional, requested := optional[d.Key]

			switch {
			case d.Key != "" && requested:
				result.Claims = append(result.Claims, DisclosureWithOptionality{
					Disclosure:       d,
					IsSubmit:         !isOptional,
					IsUserSelectable: isOptional,
				})
			default:
				result.Claims = append(result.Claims, DisclosureWithOptionality{Disclosure: d})
			}
		}

		if result.satisfied() {
			logger.Debug("sd-jwt credential matched",
				logfields.WithPresDefID(pd.ID), logfields.WithInputDescriptorID(descriptor.ID))

			return result, nil
		}
	}

	return nil, ErrNoMatch
}

// MatchJWTVC returns the first input descriptor whose every field names a claim of vc.credentialSubject.
// All subject claims are then required: the format has no selective disclosure.
func MatchJWTVC(pd *PresentationDefinition, payload map[string]interface{}) (*MatchResult, error) {
	subject := credentialSubject(payload)
	if len(subject) == 0 {
		return nil, ErrNoMatch
	}

	for _, descriptor := range pd.InputDescriptors {
		if !allFieldsMatch(descriptor, payload, subject) {
			continue
		}

		keys := make([]string, 0, len(subject))
		for k := range subject {
			keys = append(keys, k)
		}

		sort.Strings(keys)

		result := &MatchResult{InputDescriptor: descriptor}

		for _, k := range keys {
			result.Claims = append(result.Claims, DisclosureWithOptionality{
				Disclosure: sdjwt.Disclosure{Key: k, Value: subject[k]},
				IsSubmit:   true,
			})
		}

		logger.Debug("jwt_vc_json credential matched",
			logfields.WithPresDefID(pd.ID), logfields.WithInputDescriptorID(descriptor.ID))

		return result, nil
	}

	return nil, ErrNoMatch
}

type lookupFunc func(field *Field, path, key string) (interface{}, bool)

// requestedKeys returns, for every field that resolves to a claim passing its filter, the claim key mapped
// to the field's optional flag.
func requestedKeys(descriptor *InputDescriptor, lookup lookupFunc) map[string]bool {
	keys := map[string]bool{}

	if descriptor.Constraints == nil {
		return keys
	}

	for _, field := range descriptor.Constraints.Fields {
		if key, ok := resolveField(field, lookup); ok {
			keys[key] = field.Optional
		}
	}

	return keys
}

func allFieldsMatch(descriptor *InputDescriptor, payload, subject map[string]interface{}) bool {
	if descriptor.Constraints == nil {
		return true
	}

	lookup := func(field *Field, path, key string) (interface{}, bool) {
		if _, ok := subject[key]; !ok {
			return nil, false
		}

		if v, err := jsonpath.Get(path, payload); err == nil {
			return v, true
		}

		return subject[key], true
	}

	for _, field := range descriptor.Constraints.Fields {
		if _, ok := resolveField(field, lookup); !ok {
			return false
		}
	}

	return true
}

func resolveField(field *Field, lookup lookupFunc) (string, bool) {
	for _, path := range field.Path {
		key := TrailingKey(path)
		if key == "" {
			continue
		}

		value, ok := lookup(field, path, key)
		if !ok {
			continue
		}

		if field.Filter != nil {
			matched, err := field.Filter.Match(value)
			if err != nil {
				logger.Warn("filter evaluation failed", log.WithError(err))

				continue
			}

			if !matched {
				continue
			}
		}

		return key, true
	}

	return "", false
}

// TrailingKey returns the last property name of a JSONPath such as $.vc.credentialSubject.comment or
// $['given_name'].
func TrailingKey(path string) string {
	p := strings.TrimPrefix(strings.TrimSpace(path), "$")

	if strings.HasSuffix(p, "']") || strings.HasSuffix(p, `"]`) {
		p = strings.TrimSuffix(strings.TrimSuffix(p, "']"), `"]`)

		if i := strings.LastIndexAny(p, `'"`); i >= 0 {
			return p[i+1:]
		}
	}

	p = strings.TrimPrefix(p, ".")
	p = strings.TrimPrefix(p, "vc.")

	if i := strings.LastIndex(p, "."); i >= 0 {
		return p[i+1:]
	}

	return p
}

func credentialSubject(payload map[string]interface{}) map[string]interface{} {
	vc, ok := payload["vc"].(map[string]interface{})
	if !ok {
		return nil
	}

	subject, _ := vc["credentialSubject"].(map[string]interface{}) //nolint:errcheck

	return subject
}
