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
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorf(t *testing.T) {
	assert := assert.New(t)
	err := Errorf(IdentityEnrollFailed, "card1", "pop")
	assert.EqualError(err, "Failed to enroll user card1: pop")
	_, tagged := KindOf(err)
	assert.False(tagged)
	assert.Equal(500, StatusOf(err))
}

func TestLoyaltyErrorKind(t *testing.T) {
	assert := assert.New(t)
	err := NewLoyaltyError(KindIdentityExists, IdentityExists, "card1")
	assert.EqualError(err, "An identity for the user card1 already exists in the wallet")
	kind, ok := KindOf(err)
	assert.True(ok)
	assert.Equal(KindIdentityExists, kind)
	assert.Equal(409, StatusOf(err))
}

func TestLoyaltyErrorKindThroughWrapping(t *testing.T) {
	assert := assert.New(t)
	err := errors.Wrap(NewLoyaltyError(KindLedgerUnavailable, LedgerConnectFailed, "card1", "refused"), "outer")
	kind, ok := KindOf(err)
	assert.True(ok)
	assert.Equal(KindLedgerUnavailable, kind)
	assert.Equal(503, StatusOf(err))
}

func TestKindStatuses(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(404, KindIdentityMissing.HTTPStatus())
	assert.Equal(503, KindAdminIdentityMissing.HTTPStatus())
	assert.Equal(502, KindEnrollmentFailed.HTTPStatus())
	assert.Equal(502, KindInvalidResponse.HTTPStatus())
	assert.Equal(500, KindTransactionRejected.HTTPStatus())
}

func TestRestErrReply(t *testing.T) {
	assert := assert.New(t)
	req := httptest.NewRequest("GET", "/members/ACC1", nil)
	res := httptest.NewRecorder()
	RestErrReply(res, req, fmt.Errorf("network down"), 503)
	assert.Equal(503, res.Code)
	assert.Equal("application/json", res.Header().Get("Content-Type"))
	assert.JSONEq(`{"error":"network down"}`, res.Body.String())
}

func TestWithKind(t *testing.T) {
	assert := assert.New(t)
	err := WithKind(KindEnrollmentFailed, Errorf(IdentityRegisterFailed, "card1", "pop"))
	assert.EqualError(err, "Failed to register user card1: pop")
	assert.Equal(502, StatusOf(err))
}
