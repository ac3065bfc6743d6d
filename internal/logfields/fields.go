/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package logfields

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log Fields.
const (
	FieldAccountIndex      = "accountIndex"
	FieldBackupLocation    = "backupLocation"
	FieldClientID          = "clientID"
	FieldClientIDScheme    = "clientIDScheme"
	FieldCommand           = "command"
	FieldCredentialFormat  = "credentialFormat"
	FieldCredentialID      = "credentialID"
	FieldCredentialIssuer  = "credentialIssuer"
	FieldDatabase          = "database"
	FieldDuration          = "duration"
	FieldHTTPStatus        = "httpStatus"
	FieldIDToken           = "idToken"
	FieldInputDescriptorID = "inputDescriptorID"
	FieldPresDefID         = "presDefID"
	FieldRelyingParty      = "relyingParty"
	FieldRequestURI        = "requestURI"
	FieldResponseMode      = "responseMode"
	FieldResponseURI       = "responseURI"
	FieldUseCase           = "useCase"
	FieldUserLogLevel      = "userLogLevel"
	FieldVPToken           = "vpToken"
	FieldClaimKeys         = "claimKeys"
	FieldObject            = "object"
)

// WithAccountIndex sets the AccountIndex field.
func WithAccountIndex(index int) zap.Field {
	return zap.Int(FieldAccountIndex, index)
}

// WithBackupLocation sets the BackupLocation field.
func WithBackupLocation(location string) zap.Field {
	return zap.String(FieldBackupLocation, location)
}

// WithClientID sets the ClientID field.
func WithClientID(clientID string) zap.Field {
	return zap.String(FieldClientID, clientID)
}

// WithClientIDScheme sets the ClientIDScheme field.
func WithClientIDScheme(scheme string) zap.Field {
	return zap.String(FieldClientIDScheme, scheme)
}

// WithCommand sets the Command field.
func WithCommand(command string) zap.Field {
	return zap.String(FieldCommand, command)
}

// WithCredentialFormat sets the CredentialFormat field.
func WithCredentialFormat(format string) zap.Field {
	return zap.String(FieldCredentialFormat, format)
}

// WithCredentialID sets the CredentialID field.
func WithCredentialID(id string) zap.Field {
	return zap.String(FieldCredentialID, id)
}

// WithCredentialIssuer sets the CredentialIssuer field.
func WithCredentialIssuer(issuer string) zap.Field {
	return zap.String(FieldCredentialIssuer, issuer)
}

// WithDatabase sets the Database field.
func WithDatabase(name string) zap.Field {
	return zap.String(FieldDatabase, name)
}

// WithDuration sets the Duration field.
func WithDuration(value time.Duration) zap.Field {
	return zap.Duration(FieldDuration, value)
}

// WithHTTPStatus sets the HTTPStatus field.
func WithHTTPStatus(status int) zap.Field {
	return zap.Int(FieldHTTPStatus, status)
}

// WithIDToken sets the id token field.
func WithIDToken(idToken string) zap.Field {
	return zap.String(FieldIDToken, idToken)
}

// WithInputDescriptorID sets the InputDescriptorID field.
func WithInputDescriptorID(id string) zap.Field {
	return zap.String(FieldInputDescriptorID, id)
}

// WithPresDefID sets the PresDefID (presentation definition ID) field.
func WithPresDefID(presDefID string) zap.Field {
	return zap.String(FieldPresDefID, presDefID)
}

// WithRelyingParty sets the RelyingParty field.
func WithRelyingParty(rp string) zap.Field {
	return zap.String(FieldRelyingParty, rp)
}

// WithRequestURI sets the RequestURI field.
func WithRequestURI(uri string) zap.Field {
	return zap.String(FieldRequestURI, uri)
}

// WithResponseMode sets the ResponseMode field.
func WithResponseMode(mode string) zap.Field {
	return zap.String(FieldResponseMode, mode)
}

// WithResponseURI sets the ResponseURI field.
func WithResponseURI(uri string) zap.Field {
	return zap.String(FieldResponseURI, uri)
}

// WithUseCase sets the UseCase field.
func WithUseCase(useCase string) zap.Field {
	return zap.String(FieldUseCase, useCase)
}

// WithUserLogLevel sets the UserLogLevel field.
func WithUserLogLevel(logLevel string) zap.Field {
	return zap.String(FieldUserLogLevel, logLevel)
}

// WithVPToken sets the vp token field.
func WithVPToken(vpToken string) zap.Field {
	return zap.String(FieldVPToken, vpToken)
}

// WithClaimKeys sets the Claim fields.
func WithClaimKeys(claimKeys []string) zap.Field {
	return zap.Strings(FieldClaimKeys, claimKeys)
}

// WithObject marshals an arbitrary value under the Object field.
func WithObject(obj interface{}) zap.Field {
	return zap.Inline(NewObjectMarshaller(FieldObject, obj))
}

// ObjectMarshaller uses reflection to marshal an object's fields.
type ObjectMarshaller struct {
	key string
	obj interface{}
}

// NewObjectMarshaller returns a new ObjectMarshaller.
func NewObjectMarshaller(key string, obj interface{}) *ObjectMarshaller {
	return &ObjectMarshaller{key: key, obj: obj}
}

// MarshalLogObject marshals the object's fields.
func (m *ObjectMarshaller) MarshalLogObject(e zapcore.ObjectEncoder) error {
	return e.AddReflected(m.key, m.obj)
}
