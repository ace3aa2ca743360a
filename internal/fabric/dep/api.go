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

package dep

import (
	"github.com/hyperledger/fabric-sdk-go/pkg/common/providers/msp"
	mspApi "github.com/hyperledger/fabric-sdk-go/pkg/msp/api"
)

// CAClient is the part of the SDK CA client used to onboard identities
type CAClient interface {
	Register(*mspApi.RegistrationRequest) (string, error)
	Enroll(*mspApi.EnrollmentRequest) error
}

// IdentityManager looks up identities the SDK has enrolled
type IdentityManager interface {
	GetSigningIdentity(name string) (msp.SigningIdentity, error)
}
