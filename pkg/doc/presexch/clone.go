/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package presexch

import (
	"github.com/trustbloc/vcwallet/internal/jsonutil"
)

// Clone returns a deep copy of the definition.
func (pd *PresentationDefinition) Clone() *PresentationDefinition {
	if pd == nil {
		return nil
	}

	c := *pd
	c.Format = jsonutil.CloneMap(pd.Format)
	c.SubmissionRequirements = cloneRequirements(pd.SubmissionRequirements)

	if pd.InputDescriptors != nil {
		c.InputDescriptors = make([]*InputDescriptor, len(pd.InputDescriptors))

		for i, d := range pd.InputDescriptors {
			c.InputDescriptors[i] = d.clone()
		}
	}

	return &c
}

func cloneRequirements(reqs []*SubmissionRequirement) []*SubmissionRequirement {
	if reqs == nil {
		return nil
	}

	c := make([]*SubmissionRequirement, len(reqs))

	for i, r := range reqs {
		if r == nil {
			continue
		}

		cr := *r
		cr.Count = clonePtr(r.Count)
		cr.Min = clonePtr(r.Min)
		cr.Max = clonePtr(r.Max)
		cr.FromNested = cloneRequirements(r.FromNested)
		c[i] = &cr
	}

	return c
}

func (d *InputDescriptor) clone() *InputDescriptor {
	if d == nil {
		return nil
	}

	c := *d
	c.Group = jsonutil.CloneStrings(d.Group)
	c.Format = jsonutil.CloneMap(d.Format)

	if d.Constraints != nil {
		cc := Constraints{LimitDisclosure: clonePtr(d.Constraints.LimitDisclosure)}

		if d.Constraints.Fields != nil {
			cc.Fields = make([]*Field, len(d.Constraints.Fields))

			for i, f := range d.Constraints.Fields {
				cc.Fields[i] = f.clone()
			}
		}

		c.Constraints = &cc
	}

	return &c
}

func (f *Field) clone() *Field {
	if f == nil {
		return nil
	}

	c := *f
	c.Path = jsonutil.CloneStrings(f.Path)

	if f.Filter != nil {
		fc := *f.Filter
		fc.Const = jsonutil.Clone(f.Filter.Const)
		fc.Enum = jsonutil.CloneSlice(f.Filter.Enum)
		fc.Minimum = clonePtr(f.Filter.Minimum)
		fc.Maximum = clonePtr(f.Filter.Maximum)
		fc.ExclusiveMinimum = clonePtr(f.Filter.ExclusiveMinimum)
		fc.ExclusiveMaximum = clonePtr(f.Filter.ExclusiveMaximum)
		fc.MinLength = clonePtr(f.Filter.MinLength)
		fc.MaxLength = clonePtr(f.Filter.MaxLength)
		fc.Required = jsonutil.CloneStrings(f.Filter.Required)
		fc.Properties = jsonutil.CloneMap(f.Filter.Properties)
		c.Filter = &fc
	}

	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}

	v := *p

	return &v
}
