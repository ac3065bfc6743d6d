/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package oidc4vp

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

const requestObjectJSON = `{
  "client_id": "verifier.example.com",
  "response_uri": "https://verifier.example.com/cb",
  "client_metadata": {"client_name": "Verifier", "jwks": {"keys": []}, "vp_formats": {"jwt_vp": {"alg": ["ES256"]}}},
  "presentation_definition": {"id": "pd-1", "input_descriptors": [{"id": "id-1"}]},
  "aud": ["https://self-issued.me/v2"],
  "claims": {"vp_token": {"presentation_definition": {"id": "pd-2", "input_descriptors": []}}}
}`

func TestRequestObject_Clone(t *testing.T) {
	var ro RequestObject
	require.NoError(t, json.Unmarshal([]byte(requestObjectJSON), &ro))

	c := ro.Clone()
	require.Equal(t, &ro, c)

	c.ClientMetadata.ClientName = "changed"
	c.ClientMetadata.JWKS[0] = '['
	c.ClientMetadata.VPFormats["jwt_vp"].(map[string]interface{})["alg"] = nil
	c.PresentationDefinition.InputDescriptors[0].ID = "changed"
	c.Audience.([]interface{})[0] = "changed"
	c.Claims.VPToken.PresentationDefinition.ID = "changed"

	var want RequestObject
	require.NoError(t, json.Unmarshal([]byte(requestObjectJSON), &want))
	require.Equal(t, &want, &ro)

	require.Nil(t, (*RequestObject)(nil).Clone())
	require.Nil(t, (*AuthorizationRequest)(nil).Clone())
	require.Nil(t, (*ClientMetadata)(nil).Clone())
}
