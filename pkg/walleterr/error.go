/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package walleterr

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrDataNotFound = errors.New("data not found")

// Error is a typed error returned by the wallet engine. T is the code type of the package producing it.
type Error[T ~string] struct {
	ErrorKind      Kind
	ErrorCode      T
	ErrorComponent Component
	Operation      string
	IncorrectValue string
	HTTPStatus     int
	Err            error
}

// ErrorJSON is a helper struct for JSON encoding/decoding of Error.
type ErrorJSON[T comparable] struct {
	Kind            Kind      `json:"kind"`
	ErrorCode       T         `json:"error"`
	Component       Component `json:"component,omitempty"`
	Operation       string    `json:"operation,omitempty"`
	IncorrectValue  string    `json:"incorrect_value,omitempty"`
	HTTPStatusField int       `json:"http_status,omitempty"`
	Description     string    `json:"error_description,omitempty"`
}

func New[T ~string](kind Kind, code T, err error) *Error[T] {
	return &Error[T]{
		ErrorKind: kind,
		ErrorCode: code,
		Err:       err,
	}
}

func (e *Error[T]) MarshalJSON() ([]byte, error) {
	var description string
	if e.Err != nil {
		description = e.Err.Error()
	}

	return json.Marshal(&ErrorJSON[T]{
		Kind:            e.ErrorKind,
		ErrorCode:       e.ErrorCode,
		Component:       e.ErrorComponent,
		Operation:       e.Operation,
		IncorrectValue:  e.IncorrectValue,
		HTTPStatusField: e.HTTPStatus,
		Description:     description,
	})
}

func (e *Error[T]) UnmarshalJSON(b []byte) error {
	var data ErrorJSON[T]

	if err := json.Unmarshal(b, &data); err != nil {
		return err
	}

	e.ErrorKind = data.Kind
	e.ErrorCode = data.ErrorCode
	e.ErrorComponent = data.Component
	e.Operation = data.Operation
	e.IncorrectValue = data.IncorrectValue
	e.HTTPStatus = data.HTTPStatusField
	e.Err = errors.New(data.Description)

	return nil
}

func (e *Error[T]) Error() string {
	var description []string

	if e.ErrorComponent != "" {
		description = append(description, fmt.Sprintf("component: %s", e.ErrorComponent))
	}

	if e.Operation != "" {
		description = append(description, fmt.Sprintf("operation: %s", e.Operation))
	}

	if e.IncorrectValue != "" {
		description = append(description, fmt.Sprintf("incorrect value: %s", e.IncorrectValue))
	}

	if e.HTTPStatus != 0 {
		description = append(description, fmt.Sprintf("http status: %d", e.HTTPStatus))
	}

	return fmt.Sprintf("%s %s[%s]: %v", e.ErrorKind, e.ErrorCode, strings.Join(description, "; "), e.Err)
}

func (e *Error[T]) WithComponent(component Component) *Error[T] {
	e.ErrorComponent = component

	return e
}

func (e *Error[T]) WithOperation(operation string) *Error[T] {
	e.Operation = operation

	return e
}

func (e *Error[T]) WithIncorrectValue(incorrectValue string) *Error[T] {
	e.IncorrectValue = incorrectValue

	return e
}

func (e *Error[T]) WithHTTPStatusField(httpStatus int) *Error[T] {
	e.HTTPStatus = httpStatus

	return e
}

func (e *Error[T]) WithErrorPrefix(errPrefix string) *Error[T] {
	e.Err = fmt.Errorf("%s: %w", errPrefix, e.Err)

	return e
}

func (e *Error[T]) Kind() Kind {
	return e.ErrorKind
}

func (e *Error[T]) Code() string {
	return string(e.ErrorCode)
}

func (e *Error[T]) Component() string {
	return string(e.ErrorComponent)
}

func (e *Error[T]) Unwrap() error {
	return e.Err
}

type kinded interface {
	Kind() Kind
}

// KindOf returns the kind of the first typed error in the chain of err, or an empty Kind.
func KindOf(err error) Kind {
	var k kinded

	if errors.As(err, &k) {
		return k.Kind()
	}

	return ""
}

// IsKind reports whether err carries a typed error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
