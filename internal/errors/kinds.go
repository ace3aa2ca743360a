// Copyright 2021 Kaleido

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies the failures of the loyalty operations
type Kind string

const (
	KindIdentityExists       Kind = "IdentityExists"
	KindAdminIdentityMissing Kind = "AdminIdentityMissing"
	KindIdentityMissing      Kind = "IdentityMissing"
	KindEnrollmentFailed     Kind = "EnrollmentFailed"
	KindLedgerUnavailable    Kind = "LedgerUnavailable"
	KindTransactionRejected  Kind = "TransactionRejected"
	KindInvalidResponse      Kind = "InvalidResponse"
)

// HTTPStatus maps a kind to the status code returned by the REST gateway
func (k Kind) HTTPStatus() int {
	switch k {
	case KindIdentityExists:
		return 409
	case KindIdentityMissing:
		return 404
	case KindAdminIdentityMissing, KindLedgerUnavailable:
		return 503
	case KindEnrollmentFailed, KindInvalidResponse:
		return 502
	default:
		return 500
	}
}

// LoyaltyError carries the kind of failure alongside the message
// reported back to the caller
type LoyaltyError struct {
	Kind    Kind
	Message string
}

func (e *LoyaltyError) Error() string {
	return e.Message
}

// NewLoyaltyError builds a tagged error from the message catalogue
func NewLoyaltyError(kind Kind, msg ErrorID, inserts ...interface{}) error {
	return errors.WithStack(&LoyaltyError{
		Kind:    kind,
		Message: fmt.Sprintf(string(msg), inserts...),
	})
}

// WithKind tags an existing error, keeping its message
func WithKind(kind Kind, err error) error {
	return errors.WithStack(&LoyaltyError{
		Kind:    kind,
		Message: err.Error(),
	})
}

// KindOf returns the kind of a (possibly wrapped) LoyaltyError
func KindOf(err error) (Kind, bool) {
	var le *LoyaltyError
	if errors.As(err, &le) {
		return le.Kind, true
	}
	return "", false
}

// StatusOf returns the HTTP status for any error, defaulting to 500
func StatusOf(err error) int {
	if kind, ok := KindOf(err); ok {
		return kind.HTTPStatus()
	}
	return 500
}
