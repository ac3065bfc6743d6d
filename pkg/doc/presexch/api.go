/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package presexch

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/samber/lo"
	"github.com/xeipuuv/gojsonschema"
)

const (
	// All rule requires every input descriptor of the group.
	All Rule = "all"
	// Pick rule requires a subset of input descriptors of the group.
	Pick Rule = "pick"

	// Required limit_disclosure preference.
	Required Preference = "required"
	// Preferred limit_disclosure preference.
	Preferred Preference = "preferred"
)

var ErrInvalidDefinition = errors.New("invalid presentation definition")

type (
	// Rule is a submission requirement rule.
	Rule string
	// Preference is a limit_disclosure value.
	Preference string
)

// PresentationDefinition describes the proofs a verifier requires.
type PresentationDefinition struct {
	ID                     string                   `json:"id"`
	Name                   string                   `json:"name,omitempty"`
	Purpose                string                   `json:"purpose,omitempty"`
	Format                 map[string]interface{}   `json:"format,omitempty"`
	SubmissionRequirements []*SubmissionRequirement `json:"submission_requirements,omitempty"`
	InputDescriptors       []*InputDescriptor       `json:"input_descriptors"`
}

// SubmissionRequirement describes which input descriptors must be submitted.
type SubmissionRequirement struct {
	Name       string                   `json:"name,omitempty"`
	Purpose    string                   `json:"purpose,omitempty"`
	Rule       Rule                     `json:"rule,omitempty"`
	Count      *int                     `json:"count,omitempty"`
	Min        *int                     `json:"min,omitempty"`
	Max        *int                     `json:"max,omitempty"`
	From       string                   `json:"from,omitempty"`
	FromNested []*SubmissionRequirement `json:"from_nested,omitempty"`
}

// InputDescriptor is a named constraint set.
type InputDescriptor struct {
	ID          string                 `json:"id"`
	Group       []string               `json:"group,omitempty"`
	Name        string                 `json:"name,omitempty"`
	Purpose     string                 `json:"purpose,omitempty"`
	Format      map[string]interface{} `json:"format,omitempty"`
	Constraints *Constraints           `json:"constraints,omitempty"`
}

// Constraints of an input descriptor.
type Constraints struct {
	LimitDisclosure *Preference `json:"limit_disclosure,omitempty"`
	Fields          []*Field    `json:"fields,omitempty"`
}

// Field selects a claim by JSONPath and optionally filters its value.
type Field struct {
	Path           []string `json:"path"`
	ID             string   `json:"id,omitempty"`
	Purpose        string   `json:"purpose,omitempty"`
	Name           string   `json:"name,omitempty"`
	Filter         *Filter  `json:"filter,omitempty"`
	Optional       bool     `json:"optional,omitempty"`
	IntentToRetain bool     `json:"intent_to_retain,omitempty"`
}

// Filter is a JSON Schema fragment a claim value must satisfy.
type Filter struct {
	Type             string                 `json:"type,omitempty"`
	Format           string                 `json:"format,omitempty"`
	Pattern          string                 `json:"pattern,omitempty"`
	Const            interface{}            `json:"const,omitempty"`
	Enum             []interface{}          `json:"enum,omitempty"`
	Minimum          *float64               `json:"minimum,omitempty"`
	Maximum          *float64               `json:"maximum,omitempty"`
	ExclusiveMinimum *float64               `json:"exclusiveMinimum,omitempty"`
	ExclusiveMaximum *float64               `json:"exclusiveMaximum,omitempty"`
	MinLength        *int                   `json:"minLength,omitempty"`
	MaxLength        *int                   `json:"maxLength,omitempty"`
	Required         []string               `json:"required,omitempty"`
	Properties       map[string]interface{} `json:"properties,omitempty"`
}

// PresentationSubmission maps input descriptors to locations in the vp_token.
type PresentationSubmission struct {
	ID            string           `json:"id"`
	DefinitionID  string           `json:"definition_id"`
	DescriptorMap []*DescriptorMap `json:"descriptor_map"`
}

// DescriptorMap locates the proof for one input descriptor.
type DescriptorMap struct {
	ID         string         `json:"id"`
	Format     string         `json:"format"`
	Path       string         `json:"path"`
	PathNested *DescriptorMap `json:"path_nested,omitempty"`
}

// Validate checks the structural invariants of the definition.
func (pd *PresentationDefinition) Validate() error {
	if pd.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidDefinition)
	}

	if len(pd.InputDescriptors) == 0 {
		return fmt.Errorf("%w: no input descriptors", ErrInvalidDefinition)
	}

	ids := lo.Map(pd.InputDescriptors, func(d *InputDescriptor, _ int) string { return d.ID })
	if lo.Contains(ids, "") {
		return fmt.Errorf("%w: input descriptor without id", ErrInvalidDefinition)
	}

	if dup := lo.FindDuplicates(ids); len(dup) > 0 {
		return fmt.Errorf("%w: duplicate input descriptor ids %v", ErrInvalidDefinition, dup)
	}

	for _, d := range pd.InputDescriptors {
		if d.Constraints == nil {
			continue
		}

		for _, f := range d.Constraints.Fields {
			if len(f.Path) == 0 {
				return fmt.Errorf("%w: field without path in %s", ErrInvalidDefinition, d.ID)
			}
		}
	}

	for _, sr := range pd.SubmissionRequirements {
		if err := sr.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// Validate checks that exactly one of from/from_nested is set and that count/min/max are consistent.
func (sr *SubmissionRequirement) Validate() error {
	hasFrom := sr.From != ""
	hasNested := len(sr.FromNested) > 0

	if hasFrom == hasNested {
		return fmt.Errorf("%w: exactly one of from and from_nested must be set", ErrInvalidDefinition)
	}

	if sr.Rule != All && sr.Rule != Pick {
		return fmt.Errorf("%w: unsupported rule %q", ErrInvalidDefinition, sr.Rule)
	}

	if sr.Count != nil && *sr.Count <= 0 {
		return fmt.Errorf("%w: count must be positive", ErrInvalidDefinition)
	}

	if sr.Min != nil && *sr.Min < 0 {
		return fmt.Errorf("%w: min must not be negative", ErrInvalidDefinition)
	}

	if sr.Max != nil {
		if *sr.Max <= 0 {
			return fmt.Errorf("%w: max must be positive", ErrInvalidDefinition)
		}

		if sr.Min != nil && *sr.Max <= *sr.Min {
			return fmt.Errorf("%w: max must be greater than min", ErrInvalidDefinition)
		}
	}

	for _, nested := range sr.FromNested {
		if err := nested.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// Match reports whether value satisfies the filter schema.
func (f *Filter) Match(value interface{}) (bool, error) {
	schema, err := json.Marshal(f)
	if err != nil {
		return false, fmt.Errorf("marshal filter: %w", err)
	}

	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schema), gojsonschema.NewGoLoader(value))
	if err != nil {
		return false, fmt.Errorf("evaluate filter: %w", err)
	}

	return result.Valid(), nil
}
