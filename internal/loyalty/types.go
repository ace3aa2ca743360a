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

package loyalty

const (
	FnCreateMember               = "CreateMember"
	FnCreatePartner              = "CreatePartner"
	FnEarnPoints                 = "EarnPoints"
	FnUsePoints                  = "UsePoints"
	FnGetState                   = "GetState"
	FnEarnPointsTransactionsInfo = "EarnPointsTransactionsInfo"
	FnUsePointsTransactionsInfo  = "UsePointsTransactionsInfo"

	// AllPartnersKey is the ledger key of the partner list
	AllPartnersKey = "all-partners"

	UserTypeMember  = "member"
	UserTypePartner = "partner"
)

// Member is a loyalty program member. The balance is owned by the ledger,
// and always starts at zero
type Member struct {
	AccountNumber string `json:"accountNumber"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Email         string `json:"email"`
	PhoneNumber   string `json:"phoneNumber"`
	Points        int    `json:"points"`
}

// Partner is a business that awards and redeems points
type Partner struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PointsTransaction moves points between a member and a partner
type PointsTransaction struct {
	Points  int    `json:"points"`
	Member  string `json:"member"`
	Partner string `json:"partner"`
}
