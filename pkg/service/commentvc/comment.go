/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package commentvc

import (
	"errors"
	"fmt"
	"math"

	"github.com/samber/lo"

	"github.com/trustbloc/vcwallet/pkg/doc/presexch"
)

const (
	InputDescriptorID = "true_false_comment"
	CredentialType    = "CommentCredential"

	CommentPath   = "$.vc.credentialSubject.comment"
	URLPath       = "$.vc.credentialSubject.url"
	BoolValuePath = "$.vc.credentialSubject.bool_value"
)

var (
	ErrNoCommentDescriptor   = errors.New("presentation definition has no comment input descriptor")
	ErrSigningTargetNotFound = errors.New("comment signing target not found")
)

// ContentTruth is the commenter's verdict on the content at the URL.
type ContentTruth int

const (
	FalseContent         ContentTruth = 0
	TrueContent          ContentTruth = 1
	IndeterminateContent ContentTruth = 2
)

func (c ContentTruth) Valid() bool {
	return c >= FalseContent && c <= IndeterminateContent
}

// Comment is the subject of a CommentCredential.
type Comment struct {
	URL       string       `json:"url"`
	Comment   string       `json:"comment"`
	BoolValue ContentTruth `json:"bool_value"`
}

// Requested reports whether pd asks for a comment credential.
func Requested(pd *presexch.PresentationDefinition) bool {
	_, err := commentDescriptor(pd)

	return err == nil
}

// TargetFromDefinition reads the comment the verifier asks the holder to sign.
// The url and comment come from const filters, the verdict from the maximum filter of bool_value.
func TargetFromDefinition(pd *presexch.PresentationDefinition) (*Comment, *presexch.InputDescriptor, error) {
	descriptor, err := commentDescriptor(pd)
	if err != nil {
		return nil, nil, err
	}

	var (
		url, comment *string
		boolValue    *ContentTruth
		fields       []*presexch.Field
	)

	if descriptor.Constraints != nil {
		fields = descriptor.Constraints.Fields
	}

	for _, field := range fields {
		if field.Filter == nil {
			continue
		}

		switch {
		case lo.Contains(field.Path, CommentPath):
			if s, ok := field.Filter.Const.(string); ok {
				comment = &s
			}
		case lo.Contains(field.Path, URLPath):
			if s, ok := field.Filter.Const.(string); ok {
				url = &s
			}
		case lo.Contains(field.Path, BoolValuePath):
			if field.Filter.Maximum != nil && *field.Filter.Maximum == math.Trunc(*field.Filter.Maximum) {
				v := ContentTruth(*field.Filter.Maximum)
				boolValue = &v
			}
		}
	}

	if url == nil || comment == nil || boolValue == nil {
		return nil, nil, ErrSigningTargetNotFound
	}

	if !boolValue.Valid() {
		return nil, nil, fmt.Errorf("%w: bool_value %d", ErrSigningTargetNotFound, *boolValue)
	}

	return &Comment{URL: *url, Comment: *comment, BoolValue: *boolValue}, descriptor, nil
}

func commentDescriptor(pd *presexch.PresentationDefinition) (*presexch.InputDescriptor, error) {
	if pd == nil {
		return nil, ErrNoCommentDescriptor
	}

	descriptor, ok := lo.Find(pd.InputDescriptors, func(d *presexch.InputDescriptor) bool {
		return d.ID == InputDescriptorID
	})
	if !ok {
		return nil, ErrNoCommentDescriptor
	}

	return descriptor, nil
}
