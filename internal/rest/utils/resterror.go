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

package util

import "github.com/hyperledger/firefly-loyaltyconnect/internal/errors"

type RestError struct {
	Error      error
	StatusCode int
}

// NewRestError wraps an error with the HTTP status to reply with. The status
// defaults to the one for the error kind
func NewRestError(err error, code ...int) *RestError {
	statusCode := errors.StatusOf(err)
	if len(code) > 0 {
		statusCode = code[0]
	}
	return &RestError{
		Error:      err,
		StatusCode: statusCode,
	}
}
